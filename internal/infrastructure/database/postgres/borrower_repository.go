package postgres

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
)

const borrowerColumns = `id, name, email, phone, address, loan_limit, is_librarian, active,
        notification_preference, password_hash, member_since, updated_at`

type BorrowerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ borrower.Repository = (*BorrowerRepository)(nil)

func NewBorrowerRepository(db DBPool, logger *slog.Logger) *BorrowerRepository {
	if db == nil {
		panic("DBPool cannot be nil for BorrowerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewBorrowerRepository, using default stderr handler")
	}
	return &BorrowerRepository{
		db:     db,
		logger: logger.With("component", "BorrowerRepository"),
	}
}

func scanBorrower(row rowScanner) (*borrower.Borrower, error) {
	var b borrower.Borrower
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Email,
		&b.Phone,
		&b.Address,
		&b.LoanLimit,
		&b.Librarian,
		&b.Active,
		&b.NotificationPreference,
		&b.PasswordHash,
		&b.MemberSince,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BorrowerRepository) Save(ctx context.Context, b *borrower.Borrower) error {
	if b == nil {
		return fmt.Errorf("%w: borrower cannot be nil", apperrors.ErrInvalidArgument)
	}

	if b.ID == 0 {
		return r.createBorrower(ctx, b)
	}
	return r.updateBorrower(ctx, b)
}

func (r *BorrowerRepository) createBorrower(ctx context.Context, b *borrower.Borrower) error {
	r.logger.InfoContext(ctx, "Attempting to insert new borrower", slog.String("email", b.Email))

	query := `
        INSERT INTO borrowers (name, email, phone, address, loan_limit, is_librarian, active, notification_preference, password_hash, member_since, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id, member_since, updated_at`

	err := r.db.QueryRow(ctx, query,
		b.Name,
		b.Email,
		b.Phone,
		b.Address,
		b.LoanLimit,
		b.Librarian,
		b.Active,
		b.NotificationPreference,
		b.PasswordHash,
	).Scan(
		&b.ID,
		&b.MemberSince,
		&b.UpdatedAt,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert borrower due to unique constraint violation", slog.String("email", b.Email))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert borrower", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert borrower: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Borrower inserted successfully", slog.Int64("borrowerID", b.ID))
	return nil
}

func (r *BorrowerRepository) updateBorrower(ctx context.Context, b *borrower.Borrower) error {
	r.logger.InfoContext(ctx, "Attempting to update borrower", slog.Int64("borrowerID", b.ID))

	query := `
        UPDATE borrowers
        SET name = $1,
            email = $2,
            phone = $3,
            address = $4,
            loan_limit = $5,
            is_librarian = $6,
            active = $7,
            notification_preference = $8,
            updated_at = NOW()
        WHERE id = $9`

	cmdTag, err := r.db.Exec(ctx, query,
		b.Name,
		b.Email,
		b.Phone,
		b.Address,
		b.LoanLimit,
		b.Librarian,
		b.Active,
		b.NotificationPreference,
		b.ID,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to update borrower due to unique constraint violation", slog.Any("error", err))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to update borrower", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update borrower: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, borrower likely not found")
		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Borrower updated successfully")
	return nil
}

func (r *BorrowerRepository) FindByID(ctx context.Context, borrowerID int64) (*borrower.Borrower, error) {
	query := `SELECT ` + borrowerColumns + `
        FROM borrowers
        WHERE id = $1`

	b, err := scanBorrower(r.db.QueryRow(ctx, query, borrowerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Borrower not found", slog.Int64("borrowerID", borrowerID))
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan borrower by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get borrower by ID: %w", apperrors.ErrDatabase, err)
	}
	return b, nil
}

func (r *BorrowerRepository) FindByEmail(ctx context.Context, email string) (*borrower.Borrower, error) {
	query := `SELECT ` + borrowerColumns + `
        FROM borrowers
        WHERE email = $1`

	b, err := scanBorrower(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan borrower by email", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get borrower by email: %w", apperrors.ErrDatabase, err)
	}
	return b, nil
}

func (r *BorrowerRepository) GetForUpdateInTx(ctx context.Context, tx pgx.Tx, borrowerID int64) (*borrower.Borrower, error) {
	query := `SELECT ` + borrowerColumns + `
        FROM borrowers
        WHERE id = $1
        FOR UPDATE`

	b, err := scanBorrower(tx.QueryRow(ctx, query, borrowerID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return b, nil
}

func (r *BorrowerRepository) FindAll(ctx context.Context, activeOnly bool) ([]*borrower.Borrower, error) {
	query := `SELECT ` + borrowerColumns + `
        FROM borrowers`
	args := []any{}
	if activeOnly {
		query += " WHERE active = $1"
		args = append(args, true)
	}
	query += " ORDER BY id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query borrowers", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query borrowers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	borrowers := make([]*borrower.Borrower, 0)
	for rows.Next() {
		b, err := scanBorrower(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan borrower row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan borrower row: %w", apperrors.ErrDatabase, err)
		}
		borrowers = append(borrowers, b)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating borrower rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating borrower rows: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Finished finding borrowers", slog.Int("count", len(borrowers)))
	return borrowers, nil
}

func (r *BorrowerRepository) SetActiveStatus(ctx context.Context, borrowerID int64, isActive bool) error {
	query := `UPDATE borrowers SET active = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, isActive, borrowerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to execute update active status", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update active status: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update active status affected zero rows, borrower likely not found")
		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Borrower active status updated successfully", slog.Int64("borrowerID", borrowerID), slog.Bool("active", isActive))
	return nil
}
