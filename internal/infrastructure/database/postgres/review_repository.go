package postgres

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/domain/review"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
)

const reviewColumns = `rv.id, rv.book_id, rv.borrower_id, br.name, rv.rating, rv.title, rv.comment,
        rv.approved, rv.helpful_count, rv.created_at, rv.updated_at`

const reviewFrom = `
        FROM reviews rv
        JOIN borrowers br ON br.id = rv.borrower_id`

type ReviewRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ review.Repository = (*ReviewRepository)(nil)

func NewReviewRepository(db DBPool, logger *slog.Logger) *ReviewRepository {
	return &ReviewRepository{db: db, logger: logger.With("component", "ReviewRepository")}
}

func scanReview(row rowScanner) (*review.Review, error) {
	var rv review.Review
	err := row.Scan(
		&rv.ID, &rv.BookID, &rv.BorrowerID, &rv.BorrowerName, &rv.Rating, &rv.Title, &rv.Comment,
		&rv.Approved, &rv.HelpfulCount, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	query := `
        INSERT INTO reviews (book_id, borrower_id, rating, title, comment, approved, helpful_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, rv.BookID, rv.BorrowerID, rv.Rating, rv.Title, rv.Comment, rv.Approved).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		translated := translateDBError(err, r.logger)
		if errors.Is(translated, apperrors.ErrAlreadyExists) {
			return fmt.Errorf("%w: borrower %d already reviewed book %d", apperrors.ErrAlreadyExists, rv.BorrowerID, rv.BookID)
		}
		return translated
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, reviewID int64) (*review.Review, error) {
	query := `SELECT ` + reviewColumns + reviewFrom + `
        WHERE rv.id = $1`

	rv, err := scanReview(r.db.QueryRow(ctx, query, reviewID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return rv, nil
}

func (r *ReviewRepository) Update(ctx context.Context, rv *review.Review) error {
	query := `
        UPDATE reviews
        SET rating = $1, title = $2, comment = $3, updated_at = NOW()
        WHERE id = $4`

	cmdTag, err := r.db.Exec(ctx, query, rv.Rating, rv.Title, rv.Comment, rv.ID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, reviewID int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) SetApproval(ctx context.Context, reviewID int64, approved bool) error {
	query := `UPDATE reviews SET approved = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, approved, reviewID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) ListApprovedByBook(ctx context.Context, bookID int64) ([]*review.Review, error) {
	query := `SELECT ` + reviewColumns + reviewFrom + `
        WHERE rv.book_id = $1 AND rv.approved
        ORDER BY rv.created_at DESC, rv.id DESC`

	rows, err := r.db.Query(ctx, query, bookID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	defer rows.Close()

	reviews := make([]*review.Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return reviews, nil
}

func (r *ReviewRepository) AverageRating(ctx context.Context, bookID int64) (review.Rating, error) {
	query := `
        SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
        FROM reviews
        WHERE book_id = $1 AND approved`

	rating := review.Rating{BookID: bookID}
	if err := r.db.QueryRow(ctx, query, bookID).Scan(&rating.Average, &rating.Count); err != nil {
		return review.Rating{}, translateDBError(err, r.logger)
	}
	return rating, nil
}
