package circulation

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/domain/catalog"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/event"
	"library-engine/internal/infrastructure/monitoring"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"sort"
)

func (s *service) Reserve(ctx context.Context, actor Actor, bookID, borrowerID int64) (*ReserveResult, error) {
	if err := actor.requireFor(borrowerID); err != nil {
		return nil, err
	}

	result := &ReserveResult{}
	err := s.inTx(ctx, "reserve", func(sc *txScope) error {
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
		if book.AvailableCopies-heldByOthers > 0 {
			return fmt.Errorf("%w: book %d", apperrors.ErrBookAvailable, bookID)
		}

		// A lapsed reservation the sweep has not reached yet is expired here
		// so that it neither blocks the new one nor trips the unique index.
		open, err := s.Reservations.FindOpenInTx(ctx, sc.tx, bookID, borrowerID)
		switch {
		case err == nil && open.IsExpired(sc.now, s.policy.ExpirePendingReservations):
			open.Expire(sc.now)
			if err := s.Reservations.UpdateInTx(ctx, sc.tx, open); err != nil {
				return err
			}
			sc.emit(reservationEvent(event.RoutingKeyReservationExpired, open, 0, sc.now))
		case err == nil:
			return fmt.Errorf("%w: book %d", apperrors.ErrDuplicateReservation, bookID)
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		onLoan, err := s.Loans.HasCheckedOutInTx(ctx, sc.tx, bookID, borrowerID)
		if err != nil {
			return err
		}
		if onLoan {
			return fmt.Errorf("%w: book %d", apperrors.ErrAlreadyHolding, bookID)
		}

		r := reservation.NewReservation(bookID, borrowerID, sc.now, s.policy.HoldPeriod)
		r.BookTitle = book.Title
		if err := s.Reservations.CreateInTx(ctx, sc.tx, r); err != nil {
			return err
		}
		position, err := s.Reservations.QueuePositionInTx(ctx, sc.tx, bookID, borrowerID)
		if err != nil {
			return err
		}
		result.Reservation = r
		result.QueuePosition = position
		sc.emit(reservationEvent(event.RoutingKeyReservationCreated, r, position, sc.now))
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Reservation rejected", slog.Int64("bookID", bookID), slog.Int64("borrowerID", borrowerID),
			slog.String("code", apperrors.CodeOf(err)), slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Reservation queued", slog.Int64("reservationID", result.Reservation.ID), slog.Int("queuePosition", result.QueuePosition))
	return result, nil
}

// CancelReservation withdraws a pending reservation or releases a hold. It
// never promotes: the released copy stays on the shelf for whoever comes
// first, and the expiry job hands it to the queue.
func (s *service) CancelReservation(ctx context.Context, actor Actor, reservationID int64) (*reservation.Reservation, error) {
	var cancelled *reservation.Reservation
	err := s.inTx(ctx, "cancel_reservation", func(sc *txScope) error {
		r, err := s.Reservations.GetForUpdateInTx(ctx, sc.tx, reservationID)
		if err != nil {
			return notFound(err, "reservation", reservationID)
		}
		if err := actor.requireFor(r.BorrowerID); err != nil {
			return err
		}
		if err := r.Cancel(sc.now); err != nil {
			return err
		}
		if err := s.Reservations.UpdateInTx(ctx, sc.tx, r); err != nil {
			return err
		}
		cancelled = r
		sc.emit(reservationEvent(event.RoutingKeyReservationCancelled, r, 0, sc.now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Reservation cancelled", slog.Int64("reservationID", reservationID))
	return cancelled, nil
}

// SetTotalCopies changes how many copies the library owns. Copies on loan are
// untouched, so the shelf count moves by the same delta. Copies that end up
// free go to the head of the queue in the same transaction.
func (s *service) SetTotalCopies(ctx context.Context, actor Actor, bookID int64, total int) (*catalog.Book, error) {
	if err := actor.requireLibrarian(); err != nil {
		return nil, err
	}

	var (
		book     *catalog.Book
		promoted int
	)
	err := s.inTx(ctx, "set_copies", func(sc *txScope) error {
		b, err := s.Books.GetBookForUpdateInTx(ctx, sc.tx, bookID)
		if err != nil {
			return notFound(err, "book", bookID)
		}
		if err := b.Resize(total); err != nil {
			return err
		}
		if err := s.Books.UpdateCopiesInTx(ctx, sc.tx, b); err != nil {
			return err
		}
		for {
			next, err := s.promoteNext(ctx, sc, b)
			if err != nil {
				return err
			}
			if next == nil {
				break
			}
			promoted++
		}
		book = b
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected copy count change", slog.Int64("bookID", bookID), slog.Int("total", total), slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Book copies updated", slog.Int64("bookID", bookID), slog.Int("total", book.TotalCopies),
		slog.Int("available", book.AvailableCopies), slog.Int("promoted", promoted))
	return book, nil
}

// promoteNext hands a free copy to the head of the queue. It does nothing
// when every shelf copy is already held or nobody is waiting. The book must
// be locked by the caller.
func (s *service) promoteNext(ctx context.Context, sc *txScope, book *catalog.Book) (*reservation.Reservation, error) {
	held, err := s.Reservations.CountHeldInTx(ctx, sc.tx, book.ID, 0, sc.now)
	if err != nil {
		return nil, err
	}
	if book.AvailableCopies-held <= 0 {
		return nil, nil
	}

	next, err := s.Reservations.NextPendingForUpdateInTx(ctx, sc.tx, book.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := next.Promote(sc.now, s.policy.HoldPeriod); err != nil {
		return nil, err
	}
	if err := s.Reservations.UpdateInTx(ctx, sc.tx, next); err != nil {
		return nil, err
	}
	sc.emit(reservationEvent(event.RoutingKeyReservationAvailable, next, 0, sc.now))
	s.logger.InfoContext(ctx, "Reservation promoted", slog.Int64("reservationID", next.ID), slog.Int64("bookID", book.ID),
		slog.Int64("borrowerID", next.BorrowerID), slog.Time("expiresAt", next.ExpiresAt))
	return next, nil
}

func (s *service) expire(ctx context.Context, sc *txScope, borrowerID *int64) ([]*reservation.Reservation, error) {
	due, err := s.Reservations.ListExpirableForUpdateInTx(ctx, sc.tx, borrowerID, sc.now, s.policy.ExpirePendingReservations)
	if err != nil {
		return nil, err
	}
	expired := make([]*reservation.Reservation, 0, len(due))
	for _, r := range due {
		if !r.IsExpired(sc.now, s.policy.ExpirePendingReservations) {
			continue
		}
		r.Expire(sc.now)
		if err := s.Reservations.UpdateInTx(ctx, sc.tx, r); err != nil {
			return nil, err
		}
		expired = append(expired, r)
		sc.emit(reservationEvent(event.RoutingKeyReservationExpired, r, 0, sc.now))
	}
	return expired, nil
}

// SweepExpired expires the borrower's lapsed reservations. It only touches
// reservation rows; promotion for the freed copies is left to
// ExpireReservations so that no book lock is taken after a reservation lock.
func (s *service) SweepExpired(ctx context.Context, borrowerID int64) (int, error) {
	var n int
	err := s.inTx(ctx, "sweep_expired", func(sc *txScope) error {
		expired, err := s.expire(ctx, sc, &borrowerID)
		n = len(expired)
		return err
	})
	if err != nil {
		return 0, err
	}
	monitoring.RecordSwept("reservation_expiry", n)
	return n, nil
}

// ExpireReservations runs the library-wide expiry sweep, then promotes the
// queue of every book that has an unheld copy on the shelf. Each book is
// promoted in its own transaction.
func (s *service) ExpireReservations(ctx context.Context) (ExpirySweepResult, error) {
	var res ExpirySweepResult
	err := s.inTx(ctx, "expire_reservations", func(sc *txScope) error {
		expired, err := s.expire(ctx, sc, nil)
		res.Expired = len(expired)
		return err
	})
	if err != nil {
		return res, err
	}
	monitoring.RecordSwept("reservation_expiry", res.Expired)

	bookIDs, err := s.Reservations.ListPromotableBookIDs(ctx, s.clock().UTC())
	if err != nil {
		return res, fmt.Errorf("failed to list books awaiting promotion: %w", err)
	}
	sort.Slice(bookIDs, func(i, j int) bool { return bookIDs[i] < bookIDs[j] })

	for _, bookID := range bookIDs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := s.inTx(ctx, "promote", func(sc *txScope) error {
			book, err := s.Books.GetBookForUpdateInTx(ctx, sc.tx, bookID)
			if err != nil {
				return notFound(err, "book", bookID)
			}
			for {
				promoted, err := s.promoteNext(ctx, sc, book)
				if err != nil {
					return err
				}
				if promoted == nil {
					return nil
				}
				res.Promoted++
			}
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to promote reservations", slog.Int64("bookID", bookID), slog.Any("error", err))
			return res, err
		}
	}

	if res.Expired > 0 || res.Promoted > 0 {
		s.logger.InfoContext(ctx, "Reservation expiry sweep applied", slog.Int("expired", res.Expired), slog.Int("promoted", res.Promoted))
	}
	return res, nil
}

func (s *service) ListReservations(ctx context.Context, actor Actor, borrowerID int64) ([]*reservation.Reservation, error) {
	if err := actor.requireFor(borrowerID); err != nil {
		return nil, err
	}
	if _, err := s.SweepExpired(ctx, borrowerID); err != nil {
		return nil, fmt.Errorf("reservation expiry sweep failed: %w", err)
	}
	return s.Reservations.ListByBorrower(ctx, borrowerID)
}

func (s *service) Availability(ctx context.Context, bookID int64) (catalog.Availability, error) {
	book, err := s.Books.GetBookByID(ctx, bookID)
	if err != nil {
		return catalog.Availability{}, notFound(err, "book", bookID)
	}
	held, err := s.Reservations.CountHeld(ctx, bookID, s.clock().UTC())
	if err != nil {
		return catalog.Availability{}, err
	}
	return catalog.Availability{
		BookID:          book.ID,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		HeldCopies:      held,
	}, nil
}

// QueuePosition is the 1-based rank of the borrower's pending reservation.
func (s *service) QueuePosition(ctx context.Context, bookID, borrowerID int64) (int, error) {
	pos, err := s.Reservations.QueuePosition(ctx, bookID, borrowerID)
	if err != nil {
		return 0, notFound(err, "pending reservation for book", bookID)
	}
	return pos, nil
}
