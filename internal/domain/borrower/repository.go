package borrower

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	Save(ctx context.Context, borrower *Borrower) error

	FindByID(ctx context.Context, borrowerID int64) (*Borrower, error)

	FindByEmail(ctx context.Context, email string) (*Borrower, error)

	FindAll(ctx context.Context, activeOnly bool) ([]*Borrower, error)

	GetForUpdateInTx(ctx context.Context, tx pgx.Tx, borrowerID int64) (*Borrower, error)

	SetActiveStatus(ctx context.Context, borrowerID int64, isActive bool) error
}
