package reservation

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, r *Reservation) error

	GetForUpdateInTx(ctx context.Context, tx pgx.Tx, reservationID int64) (*Reservation, error)

	// FindOpenInTx returns apperrors.ErrNotFound when the borrower has no
	// pending or available reservation for the book.
	FindOpenInTx(ctx context.Context, tx pgx.Tx, bookID, borrowerID int64) (*Reservation, error)

	UpdateInTx(ctx context.Context, tx pgx.Tx, r *Reservation) error

	// NextPendingForUpdateInTx locks the queue head, ordered by reservation
	// time with the id as tie-breaker. It returns apperrors.ErrNotFound on an
	// empty queue.
	NextPendingForUpdateInTx(ctx context.Context, tx pgx.Tx, bookID int64) (*Reservation, error)

	HasPendingInTx(ctx context.Context, tx pgx.Tx, bookID int64) (bool, error)

	// CountHeldInTx counts unexpired holds on the book, excluding those of
	// excludeBorrowerID (0 excludes nobody).
	CountHeldInTx(ctx context.Context, tx pgx.Tx, bookID, excludeBorrowerID int64, now time.Time) (int, error)

	CountHeld(ctx context.Context, bookID int64, now time.Time) (int, error)

	QueuePositionInTx(ctx context.Context, tx pgx.Tx, bookID, borrowerID int64) (int, error)

	QueuePosition(ctx context.Context, bookID, borrowerID int64) (int, error)

	// ListExpirableForUpdateInTx locks open reservations past their expiry.
	// A nil borrowerID sweeps every borrower.
	ListExpirableForUpdateInTx(ctx context.Context, tx pgx.Tx, borrowerID *int64, now time.Time, includePending bool) ([]*Reservation, error)

	// ListPromotableBookIDs returns books with a waiting queue and at least
	// one copy on the shelf that no hold covers.
	ListPromotableBookIDs(ctx context.Context, now time.Time) ([]int64, error)

	ListByBorrower(ctx context.Context, borrowerID int64) ([]*Reservation, error)

	GetByID(ctx context.Context, reservationID int64) (*Reservation, error)

	MarkNotified(ctx context.Context, reservationID int64) error
}
