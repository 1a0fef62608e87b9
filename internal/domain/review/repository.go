package review

import "context"

type Repository interface {
	// Create returns apperrors.ErrAlreadyExists when the borrower already
	// reviewed the book.
	Create(ctx context.Context, r *Review) error

	GetByID(ctx context.Context, reviewID int64) (*Review, error)

	Update(ctx context.Context, r *Review) error

	Delete(ctx context.Context, reviewID int64) error

	SetApproval(ctx context.Context, reviewID int64, approved bool) error

	ListApprovedByBook(ctx context.Context, bookID int64) ([]*Review, error)

	AverageRating(ctx context.Context, bookID int64) (Rating, error)
}

// LoanHistory answers whether a borrower ever borrowed a book.
type LoanHistory interface {
	HasBorrowed(ctx context.Context, bookID, borrowerID int64) (bool, error)
}
