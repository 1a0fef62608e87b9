package postgres

import (
	"context"
	"fmt"
	"library-engine/internal/domain/loan"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const loanColumns = `l.id, l.book_id, l.borrower_id, b.title, l.loaned_at, l.due_at, l.returned_at,
        l.status, l.renewal_count, l.fine_amount::text, l.notes, l.updated_at`

const loanFrom = `
        FROM loans l
        JOIN books b ON b.id = l.book_id`

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func scanLoan(row rowScanner) (*loan.Loan, error) {
	var (
		l      loan.Loan
		status string
		amount string
	)
	if err := row.Scan(
		&l.ID, &l.BookID, &l.BorrowerID, &l.BookTitle, &l.LoanedAt, &l.DueAt, &l.ReturnedAt,
		&status, &l.RenewalCount, &amount, &l.Notes, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.Status = loan.LoanStatus(status)
	fine, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	l.FineAmount = fine
	return &l, nil
}

func (r *LoanRepository) collect(ctx context.Context, rows pgx.Rows, queryName string) ([]*loan.Loan, error) {
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "query", queryName, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "query", queryName, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return loans, nil
}

func (r *LoanRepository) CreateInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	query := `
        INSERT INTO loans (book_id, borrower_id, loaned_at, due_at, status, renewal_count, fine_amount, notes, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
        RETURNING id`
	startTime := time.Now()

	err := tx.QueryRow(ctx, query,
		l.BookID, l.BorrowerID, l.LoanedAt, l.DueAt, string(l.Status), l.RenewalCount, l.FineAmount.String(), l.Notes, l.UpdatedAt,
	).Scan(&l.ID)
	observe("CreateLoan", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "book_id", l.BookID, "borrower_id", l.BorrowerID, "error", err)
		return translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", l.ID)
	return nil
}

func (r *LoanRepository) GetForUpdateInTx(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + loanFrom + `
        WHERE l.id = $1
        FOR UPDATE OF l`
	startTime := time.Now()

	l, err := scanLoan(tx.QueryRow(ctx, query, loanID))
	observe("GetLoanForUpdate", startTime, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return l, nil
}

func (r *LoanRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	query := `
        UPDATE loans
        SET due_at = $1,
            returned_at = $2,
            status = $3,
            renewal_count = $4,
            fine_amount = $5::numeric,
            notes = $6,
            updated_at = $7
        WHERE id = $8`
	startTime := time.Now()

	cmdTag, err := tx.Exec(ctx, query,
		l.DueAt, l.ReturnedAt, string(l.Status), l.RenewalCount, l.FineAmount.String(), l.Notes, l.UpdatedAt, l.ID,
	)
	observe("UpdateLoan", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, l.ID)
	}
	return nil
}

func (r *LoanRepository) HasCheckedOutInTx(ctx context.Context, tx pgx.Tx, bookID, borrowerID int64) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM loans
            WHERE book_id = $1 AND borrower_id = $2 AND status IN ('active', 'overdue'))`

	var exists bool
	if err := tx.QueryRow(ctx, query, bookID, borrowerID).Scan(&exists); err != nil {
		return false, translateDBError(err, r.logger)
	}
	return exists, nil
}

func (r *LoanRepository) CountCheckedOutInTx(ctx context.Context, tx pgx.Tx, borrowerID int64) (int, error) {
	query := `
        SELECT COUNT(*) FROM loans
        WHERE borrower_id = $1 AND status IN ('active', 'overdue')`

	var count int
	if err := tx.QueryRow(ctx, query, borrowerID).Scan(&count); err != nil {
		return 0, translateDBError(err, r.logger)
	}
	return count, nil
}

func (r *LoanRepository) ListPastDueForUpdateInTx(ctx context.Context, tx pgx.Tx, borrowerID int64, now time.Time) ([]*loan.Loan, error) {
	query := `SELECT ` + loanColumns + loanFrom + `
        WHERE l.borrower_id = $1 AND l.status IN ('active', 'overdue') AND l.due_at < $2
        ORDER BY l.id
        FOR UPDATE OF l`
	startTime := time.Now()

	rows, err := tx.Query(ctx, query, borrowerID, now)
	observe("ListPastDueLoans", startTime, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return r.collect(ctx, rows, "ListPastDueLoans")
}

func (r *LoanRepository) ListByBorrower(ctx context.Context, borrowerID int64) ([]*loan.Loan, error) {
	query := `SELECT ` + loanColumns + loanFrom + `
        WHERE l.borrower_id = $1
        ORDER BY l.loaned_at DESC, l.id DESC`
	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, borrowerID)
	observe("ListLoansByBorrower", startTime, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return r.collect(ctx, rows, "ListLoansByBorrower")
}

func (r *LoanRepository) ListBorrowersWithPastDue(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
        SELECT DISTINCT borrower_id FROM loans
        WHERE status IN ('active', 'overdue') AND due_at < $1
        ORDER BY borrower_id`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return ids, nil
}

func (r *LoanRepository) HasBorrowed(ctx context.Context, bookID, borrowerID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = $1 AND borrower_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, bookID, borrowerID).Scan(&exists); err != nil {
		return false, translateDBError(err, r.logger)
	}
	return exists, nil
}
