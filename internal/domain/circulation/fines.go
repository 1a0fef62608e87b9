package circulation

import (
	"context"
	"library-engine/internal/domain/fine"
	"library-engine/internal/domain/loan"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/event"
	"library-engine/internal/infrastructure/monitoring"
	"log/slog"

	"github.com/shopspring/decimal"
)

// recordFine creates the loan's fine or raises its pending amount. Settled
// and disputed fines are left as they are.
func (s *service) recordFine(ctx context.Context, sc *txScope, l *loan.Loan, title string, amount decimal.Decimal) (*fine.Fine, bool, error) {
	f, err := fine.NewFine(l.BorrowerID, l.ID, amount, fine.LateReturnReason(title), sc.now)
	if err != nil {
		return nil, false, err
	}
	stored, changed, err := s.Fines.UpsertPendingInTx(ctx, sc.tx, f)
	if err != nil {
		return nil, false, err
	}
	if changed {
		monitoring.RecordFineAssessed()
		sc.emit(fineEvent(event.RoutingKeyFineAssessed, stored, sc.now))
		s.logger.InfoContext(ctx, "Fine assessed", slog.Int64("loanID", l.ID), slog.Int64("fineID", stored.ID), slog.String("amount", stored.Amount.StringFixed(2)))
	}
	return stored, changed, nil
}

func (s *service) ListFines(ctx context.Context, actor Actor, borrowerID int64) (*FineStatement, error) {
	if err := actor.requireFor(borrowerID); err != nil {
		return nil, err
	}
	fines, err := s.Fines.ListByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	total, err := s.Fines.TotalPending(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	return &FineStatement{Fines: fines, PendingTotal: total}, nil
}

func (s *service) PayFine(ctx context.Context, actor Actor, fineID int64, method string) (*fine.Fine, error) {
	return s.settleFine(ctx, "pay_fine", fineID, event.RoutingKeyFinePaid, func(sc *txScope, f *fine.Fine) error {
		if err := actor.requireFor(f.BorrowerID); err != nil {
			return err
		}
		return f.MarkPaid(sc.now, method)
	})
}

func (s *service) WaiveFine(ctx context.Context, actor Actor, fineID int64, note string) (*fine.Fine, error) {
	if err := actor.requireLibrarian(); err != nil {
		return nil, err
	}
	return s.settleFine(ctx, "waive_fine", fineID, event.RoutingKeyFineWaived, func(_ *txScope, f *fine.Fine) error {
		return f.Waive(note)
	})
}

func (s *service) DisputeFine(ctx context.Context, actor Actor, fineID int64, note string) (*fine.Fine, error) {
	if err := actor.requireLibrarian(); err != nil {
		return nil, err
	}
	return s.settleFine(ctx, "dispute_fine", fineID, event.RoutingKeyFineDisputed, func(_ *txScope, f *fine.Fine) error {
		return f.Dispute(note)
	})
}

func (s *service) settleFine(ctx context.Context, op string, fineID int64, routingKey string, apply func(sc *txScope, f *fine.Fine) error) (*fine.Fine, error) {
	var updated *fine.Fine
	err := s.inTx(ctx, op, func(sc *txScope) error {
		f, err := s.Fines.GetForUpdateInTx(ctx, sc.tx, fineID)
		if err != nil {
			return notFound(err, "fine", fineID)
		}
		if err := apply(sc, f); err != nil {
			return err
		}
		if err := s.Fines.UpdateInTx(ctx, sc.tx, f); err != nil {
			return err
		}
		updated = f
		sc.emit(fineEvent(routingKey, f, sc.now))
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Fine update rejected", slog.String("operation", op), slog.Int64("fineID", fineID), slog.Any("error", err))
		return nil, err
	}
	s.logger.InfoContext(ctx, "Fine updated", slog.String("operation", op), slog.Int64("fineID", fineID), slog.String("status", string(updated.Status)))
	return updated, nil
}

// Summary runs both sweeps, then reports the borrower's standing.
func (s *service) Summary(ctx context.Context, actor Actor, borrowerID int64) (*Summary, error) {
	if err := actor.requireFor(borrowerID); err != nil {
		return nil, err
	}
	b, err := s.Borrowers.FindByID(ctx, borrowerID)
	if err != nil {
		return nil, notFound(err, "borrower", borrowerID)
	}

	loans, err := s.ListLoans(ctx, actor, borrowerID)
	if err != nil {
		return nil, err
	}
	reservations, err := s.ListReservations(ctx, actor, borrowerID)
	if err != nil {
		return nil, err
	}
	pending, err := s.Fines.TotalPending(ctx, borrowerID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		BorrowerID:   borrowerID,
		LoanLimit:    b.EffectiveLoanLimit(s.policy.MaxLoanLimit),
		PendingFines: pending,
	}
	for _, l := range loans {
		if l.IsCheckedOut() {
			sum.ActiveLoans++
		}
		if l.Status == loan.StatusOverdue {
			sum.OverdueLoans++
		}
	}
	for _, r := range reservations {
		switch r.Status {
		case reservation.StatusAvailable:
			sum.ReadyReservations++
		case reservation.StatusPending:
			sum.PendingQueue++
		}
	}
	return sum, nil
}
