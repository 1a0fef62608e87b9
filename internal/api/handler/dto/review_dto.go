package dto

import (
	"library-engine/internal/domain/review"
	"time"
)

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Title   string `json:"title,omitempty" validate:"omitempty,max=255"`
	Comment string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

func (r *ReviewRequest) Validate() error {
	return validate.Validate(r)
}

type ReviewApprovalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

func (r *ReviewApprovalRequest) Validate() error {
	return validate.Validate(r)
}

type ReviewResponse struct {
	ID           int64     `json:"id"`
	BookID       int64     `json:"bookId"`
	BorrowerID   int64     `json:"borrowerId"`
	BorrowerName string    `json:"borrowerName,omitempty"`
	Rating       int       `json:"rating"`
	Title        string    `json:"title,omitempty"`
	Comment      string    `json:"comment,omitempty"`
	Approved     bool      `json:"approved"`
	HelpfulCount int       `json:"helpfulCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewReviewResponse(r *review.Review) ReviewResponse {
	return ReviewResponse{
		ID:           r.ID,
		BookID:       r.BookID,
		BorrowerID:   r.BorrowerID,
		BorrowerName: r.BorrowerName,
		Rating:       r.Rating,
		Title:        r.Title,
		Comment:      r.Comment,
		Approved:     r.Approved,
		HelpfulCount: r.HelpfulCount,
		CreatedAt:    r.CreatedAt,
	}
}

type ReviewListResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
	Rating  RatingResponse   `json:"rating"`
}

func NewReviewListResponse(reviews []*review.Review, rating review.Rating) ReviewListResponse {
	resp := ReviewListResponse{
		Reviews: make([]ReviewResponse, len(reviews)),
		Rating:  NewRatingResponse(rating),
	}
	for i, r := range reviews {
		resp.Reviews[i] = NewReviewResponse(r)
	}
	return resp
}
