package review

import (
	"library-engine/internal/pkg/apperrors"
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID           int64
	BookID       int64
	BorrowerID   int64
	BorrowerName string
	Rating       int
	Title        string
	Comment      string
	Approved     bool
	HelpfulCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Rating summarises the approved reviews of a book.
type Rating struct {
	BookID  int64
	Average float64
	Count   int
}

func NewReview(bookID, borrowerID int64, rating int, title, comment string) (*Review, error) {
	now := time.Now()
	r := &Review{
		BookID:     bookID,
		BorrowerID: borrowerID,
		Approved:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.Edit(rating, title, comment); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Review) Edit(rating int, title, comment string) error {
	if rating < MinRating || rating > MaxRating {
		return apperrors.NewValidationError("rating", "rating must be between 1 and 5")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return apperrors.NewValidationError("title", "title cannot be empty")
	}
	if len(title) > 200 {
		return apperrors.NewValidationError("title", "title cannot exceed 200 characters")
	}
	r.Rating = rating
	r.Title = title
	r.Comment = strings.TrimSpace(comment)
	r.UpdatedAt = time.Now()
	return nil
}
