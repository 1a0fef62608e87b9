package circulation

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/domain/loan"
	"library-engine/internal/event"
	"library-engine/internal/infrastructure/monitoring"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
)

func notFound(err error, what string, id int64) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", apperrors.ErrNotFound, what, id)
	}
	return err
}

func (s *service) Borrow(ctx context.Context, actor Actor, bookID, borrowerID int64) (*BorrowResult, error) {
	if err := actor.requireFor(borrowerID); err != nil {
		return nil, err
	}
	logCtx := s.logger.With(slog.Int64("bookID", bookID), slog.Int64("borrowerID", borrowerID))
	logCtx.InfoContext(ctx, "Attempting to borrow book")

	result := &BorrowResult{}
	err := s.inTx(ctx, "borrow", func(sc *txScope) error {
		book, err := s.Books.GetBookForUpdateInTx(ctx, sc.tx, bookID)
		if err != nil {
			return notFound(err, "book", bookID)
		}
		b, err := s.Borrowers.GetForUpdateInTx(ctx, sc.tx, borrowerID)
		if err != nil {
			return notFound(err, "borrower", borrowerID)
		}
		if !b.Active {
			return fmt.Errorf("%w: borrower %d is deactivated", apperrors.ErrForbidden, borrowerID)
		}

		heldByOthers, err := s.Reservations.CountHeldInTx(ctx, sc.tx, bookID, borrowerID, sc.now)
		if err != nil {
			return err
		}
		if book.AvailableCopies-heldByOthers <= 0 {
			return fmt.Errorf("%w: book %d has %d copies on the shelf, %d held for other borrowers",
				apperrors.ErrUnavailable, bookID, book.AvailableCopies, heldByOthers)
		}

		onLoan, err := s.Loans.HasCheckedOutInTx(ctx, sc.tx, bookID, borrowerID)
		if err != nil {
			return err
		}
		if onLoan {
			return fmt.Errorf("%w: book %d", apperrors.ErrAlreadyBorrowed, bookID)
		}

		hasFines, err := s.Fines.HasPendingInTx(ctx, sc.tx, borrowerID)
		if err != nil {
			return err
		}
		if hasFines {
			return fmt.Errorf("%w: borrower %d", apperrors.ErrFinesOutstanding, borrowerID)
		}

		count, err := s.Loans.CountCheckedOutInTx(ctx, sc.tx, borrowerID)
		if err != nil {
			return err
		}
		if limit := b.EffectiveLoanLimit(s.policy.MaxLoanLimit); count >= limit {
			return fmt.Errorf("%w: %d of %d loans in use", apperrors.ErrLoanLimitReached, count, limit)
		}

		l := loan.NewLoan(bookID, borrowerID, sc.now, s.policy.LoanPeriod)
		l.BookTitle = book.Title
		if err := s.Loans.CreateInTx(ctx, sc.tx, l); err != nil {
			return err
		}
		if err := book.CheckOut(); err != nil {
			return err
		}
		if err := s.Books.UpdateCopiesInTx(ctx, sc.tx, book); err != nil {
			return err
		}
		result.Loan = l
		sc.emit(loanEvent(event.RoutingKeyLoanBorrowed, l, sc.now))

		own, err := s.Reservations.FindOpenInTx(ctx, sc.tx, bookID, borrowerID)
		switch {
		case err == nil:
			if err := own.Fulfill(sc.now); err != nil {
				return err
			}
			if err := s.Reservations.UpdateInTx(ctx, sc.tx, own); err != nil {
				return err
			}
			result.Fulfilled = own
			sc.emit(reservationEvent(event.RoutingKeyReservationFulfilled, own, 0, sc.now))
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		result.Promoted, err = s.promoteNext(ctx, sc, book)
		return err
	})
	if err != nil {
		logCtx.WarnContext(ctx, "Borrow rejected", slog.String("code", apperrors.CodeOf(err)), slog.Any("error", err))
		return nil, err
	}

	logCtx.InfoContext(ctx, "Book borrowed", slog.Int64("loanID", result.Loan.ID), slog.Time("dueAt", result.Loan.DueAt))
	return result, nil
}

func (s *service) Return(ctx context.Context, actor Actor, loanID int64) (*ReturnResult, error) {
	logCtx := s.logger.With(slog.Int64("loanID", loanID))
	logCtx.InfoContext(ctx, "Attempting to return loan")

	result := &ReturnResult{}
	err := s.inTx(ctx, "return", func(sc *txScope) error {
		l, err := s.Loans.GetForUpdateInTx(ctx, sc.tx, loanID)
		if err != nil {
			return notFound(err, "loan", loanID)
		}
		if err := actor.requireFor(l.BorrowerID); err != nil {
			return err
		}
		if !l.IsCheckedOut() {
			return fmt.Errorf("%w: loan %d is %s", apperrors.ErrNotFound, loanID, l.Status)
		}

		book, err := s.Books.GetBookForUpdateInTx(ctx, sc.tx, l.BookID)
		if err != nil {
			return notFound(err, "book", l.BookID)
		}

		amount := l.AccruedFine(sc.now, s.policy.FinePerDay)
		l.Close(sc.now, amount)
		if err := s.Loans.UpdateInTx(ctx, sc.tx, l); err != nil {
			return err
		}
		result.Loan = l
		result.FineAmount = amount

		if amount.IsPositive() {
			result.Fine, _, err = s.recordFine(ctx, sc, l, book.Title, amount)
			if err != nil {
				return err
			}
		}

		if err := book.CheckIn(); err != nil {
			return err
		}
		if err := s.Books.UpdateCopiesInTx(ctx, sc.tx, book); err != nil {
			return err
		}
		sc.emit(loanEvent(event.RoutingKeyLoanReturned, l, sc.now))

		result.Promoted, err = s.promoteNext(ctx, sc, book)
		return err
	})
	if err != nil {
		logCtx.WarnContext(ctx, "Return rejected", slog.String("code", apperrors.CodeOf(err)), slog.Any("error", err))
		return nil, err
	}

	logCtx.InfoContext(ctx, "Loan returned", slog.String("fine", result.FineAmount.StringFixed(2)), slog.Bool("promoted", result.Promoted != nil))
	return result, nil
}

func (s *service) Renew(ctx context.Context, actor Actor, loanID int64) (*loan.Loan, error) {
	var renewed *loan.Loan
	err := s.inTx(ctx, "renew", func(sc *txScope) error {
		l, err := s.Loans.GetForUpdateInTx(ctx, sc.tx, loanID)
		if err != nil {
			return notFound(err, "loan", loanID)
		}
		if err := actor.requireFor(l.BorrowerID); err != nil {
			return err
		}
		if !l.IsCheckedOut() {
			return fmt.Errorf("%w: loan %d is %s", apperrors.ErrNotFound, loanID, l.Status)
		}

		// Serialises with Reserve on the same book.
		if _, err := s.Books.GetBookForUpdateInTx(ctx, sc.tx, l.BookID); err != nil {
			return notFound(err, "book", l.BookID)
		}
		waiting, err := s.Reservations.HasPendingInTx(ctx, sc.tx, l.BookID)
		if err != nil {
			return err
		}
		if err := l.CheckRenewal(sc.now, s.policy.MaxRenewals, waiting); err != nil {
			return err
		}

		l.Renew(sc.now, s.policy.LoanPeriod)
		if err := s.Loans.UpdateInTx(ctx, sc.tx, l); err != nil {
			return err
		}
		renewed = l
		sc.emit(loanEvent(event.RoutingKeyLoanRenewed, l, sc.now))
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Renewal rejected", slog.Int64("loanID", loanID), slog.String("code", apperrors.CodeOf(err)), slog.Any("error", err))
		return nil, err
	}
	s.logger.InfoContext(ctx, "Loan renewed", slog.Int64("loanID", loanID), slog.Int("renewalCount", renewed.RenewalCount))
	return renewed, nil
}

// SweepOverdue flags the borrower's past-due loans as overdue and brings
// their pending fines up to date. Running it twice at the same instant
// changes nothing the second time.
func (s *service) SweepOverdue(ctx context.Context, borrowerID int64) (OverdueSweepResult, error) {
	var res OverdueSweepResult
	err := s.inTx(ctx, "sweep_overdue", func(sc *txScope) error {
		loans, err := s.Loans.ListPastDueForUpdateInTx(ctx, sc.tx, borrowerID, sc.now)
		if err != nil {
			return err
		}
		for _, l := range loans {
			amount := l.AccruedFine(sc.now, s.policy.FinePerDay)
			if l.Status == loan.StatusOverdue && l.FineAmount.Equal(amount) {
				continue
			}
			if l.MarkOverdue(sc.now, amount) {
				res.MarkedOverdue++
				sc.emit(loanEvent(event.RoutingKeyLoanOverdue, l, sc.now))
			}
			if err := s.Loans.UpdateInTx(ctx, sc.tx, l); err != nil {
				return err
			}
			if !amount.IsPositive() {
				continue
			}
			_, changed, err := s.recordFine(ctx, sc, l, l.BookTitle, amount)
			if err != nil {
				return err
			}
			if changed {
				res.FinesChanged++
			}
		}
		return nil
	})
	if err != nil {
		return OverdueSweepResult{}, err
	}
	monitoring.RecordSwept("overdue", res.MarkedOverdue)
	if res.MarkedOverdue > 0 || res.FinesChanged > 0 {
		s.logger.InfoContext(ctx, "Overdue sweep applied", slog.Int64("borrowerID", borrowerID),
			slog.Int("markedOverdue", res.MarkedOverdue), slog.Int("finesChanged", res.FinesChanged))
	}
	return res, nil
}

func (s *service) ListLoans(ctx context.Context, actor Actor, borrowerID int64) ([]*loan.Loan, error) {
	if err := actor.requireFor(borrowerID); err != nil {
		return nil, err
	}
	if _, err := s.SweepOverdue(ctx, borrowerID); err != nil {
		return nil, fmt.Errorf("overdue sweep failed: %w", err)
	}
	return s.Loans.ListByBorrower(ctx, borrowerID)
}
