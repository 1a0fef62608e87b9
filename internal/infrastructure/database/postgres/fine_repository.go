package postgres

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/domain/fine"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const fineColumns = `f.id, f.borrower_id, f.loan_id, b.title, f.amount::text, f.reason, f.status,
        f.created_at, f.paid_at, f.payment_method, f.notes`

const fineFrom = `
        FROM fines f
        JOIN loans l ON l.id = f.loan_id
        JOIN books b ON b.id = l.book_id`

type FineRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ fine.Repository = (*FineRepository)(nil)

func NewFineRepository(db DBPool, logger *slog.Logger) *FineRepository {
	return &FineRepository{db: db, logger: logger.With("component", "FineRepository")}
}

func scanFine(row rowScanner) (*fine.Fine, error) {
	var (
		f      fine.Fine
		amount string
		status string
	)
	if err := row.Scan(
		&f.ID, &f.BorrowerID, &f.LoanID, &f.BookTitle, &amount, &f.Reason, &status,
		&f.CreatedAt, &f.PaidAt, &f.PaymentMethod, &f.Notes,
	); err != nil {
		return nil, err
	}
	f.Status = fine.Status(status)
	parsed, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	f.Amount = parsed
	return &f, nil
}

// UpsertPendingInTx relies on the unique loan_id: a second assessment for the
// same loan only raises a pending amount.
func (r *FineRepository) UpsertPendingInTx(ctx context.Context, tx pgx.Tx, f *fine.Fine) (*fine.Fine, bool, error) {
	query := `
        INSERT INTO fines (borrower_id, loan_id, amount, reason, status, created_at, payment_method, notes)
        VALUES ($1, $2, $3::numeric, $4, $5, $6, '', '')
        ON CONFLICT (loan_id) DO UPDATE
        SET amount = EXCLUDED.amount, reason = EXCLUDED.reason
        WHERE fines.status = 'pending' AND fines.amount < EXCLUDED.amount
        RETURNING id`
	startTime := time.Now()

	changed := true
	var id int64
	err := tx.QueryRow(ctx, query,
		f.BorrowerID, f.LoanID, f.Amount.String(), f.Reason, string(f.Status), f.CreatedAt,
	).Scan(&id)
	observe("UpsertFine", startTime, err)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.ErrorContext(ctx, "Failed to upsert fine", "loan_id", f.LoanID, "error", err)
			return nil, false, translateDBError(err, r.logger)
		}
		changed = false
	}

	query = `SELECT ` + fineColumns + fineFrom + `
        WHERE f.loan_id = $1`
	stored, err := scanFine(tx.QueryRow(ctx, query, f.LoanID))
	if err != nil {
		return nil, false, translateDBError(err, r.logger)
	}
	return stored, changed, nil
}

func (r *FineRepository) HasPendingInTx(ctx context.Context, tx pgx.Tx, borrowerID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM fines WHERE borrower_id = $1 AND status = 'pending')`

	var exists bool
	if err := tx.QueryRow(ctx, query, borrowerID).Scan(&exists); err != nil {
		return false, translateDBError(err, r.logger)
	}
	return exists, nil
}

func (r *FineRepository) GetForUpdateInTx(ctx context.Context, tx pgx.Tx, fineID int64) (*fine.Fine, error) {
	query := `SELECT ` + fineColumns + fineFrom + `
        WHERE f.id = $1
        FOR UPDATE OF f`

	f, err := scanFine(tx.QueryRow(ctx, query, fineID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return f, nil
}

func (r *FineRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, f *fine.Fine) error {
	query := `
        UPDATE fines
        SET amount = $1::numeric,
            status = $2,
            paid_at = $3,
            payment_method = $4,
            notes = $5
        WHERE id = $6`
	startTime := time.Now()

	cmdTag, err := tx.Exec(ctx, query, f.Amount.String(), string(f.Status), f.PaidAt, f.PaymentMethod, f.Notes, f.ID)
	observe("UpdateFine", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update fine", "fine_id", f.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: fine %d", apperrors.ErrNotFound, f.ID)
	}
	return nil
}

func (r *FineRepository) ListByBorrower(ctx context.Context, borrowerID int64) ([]*fine.Fine, error) {
	query := `SELECT ` + fineColumns + fineFrom + `
        WHERE f.borrower_id = $1
        ORDER BY f.created_at DESC, f.id DESC`

	rows, err := r.db.Query(ctx, query, borrowerID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	defer rows.Close()

	fines := make([]*fine.Fine, 0)
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan fine row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		fines = append(fines, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return fines, nil
}

func (r *FineRepository) TotalPending(ctx context.Context, borrowerID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0)::text FROM fines WHERE borrower_id = $1 AND status = 'pending'`

	var total string
	if err := r.db.QueryRow(ctx, query, borrowerID).Scan(&total); err != nil {
		return decimal.Zero, translateDBError(err, r.logger)
	}
	return parseAmount(total)
}
