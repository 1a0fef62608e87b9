package fine

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// UpsertPendingInTx records the fine for a loan or raises the amount of the
	// existing pending fine. It returns the stored row and whether it changed.
	// Settled or disputed fines are left untouched.
	UpsertPendingInTx(ctx context.Context, tx pgx.Tx, f *Fine) (*Fine, bool, error)

	HasPendingInTx(ctx context.Context, tx pgx.Tx, borrowerID int64) (bool, error)

	GetForUpdateInTx(ctx context.Context, tx pgx.Tx, fineID int64) (*Fine, error)

	UpdateInTx(ctx context.Context, tx pgx.Tx, f *Fine) error

	ListByBorrower(ctx context.Context, borrowerID int64) ([]*Fine, error)

	TotalPending(ctx context.Context, borrowerID int64) (decimal.Decimal, error)
}
