package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error

	GetForUpdateInTx(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	UpdateInTx(ctx context.Context, tx pgx.Tx, loan *Loan) error

	HasCheckedOutInTx(ctx context.Context, tx pgx.Tx, bookID, borrowerID int64) (bool, error)

	CountCheckedOutInTx(ctx context.Context, tx pgx.Tx, borrowerID int64) (int, error)

	ListPastDueForUpdateInTx(ctx context.Context, tx pgx.Tx, borrowerID int64, now time.Time) ([]*Loan, error)

	ListByBorrower(ctx context.Context, borrowerID int64) ([]*Loan, error)

	ListBorrowersWithPastDue(ctx context.Context, now time.Time) ([]int64, error)

	HasBorrowed(ctx context.Context, bookID, borrowerID int64) (bool, error)
}
