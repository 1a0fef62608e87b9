package review

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
)

type Service interface {
	Add(ctx context.Context, bookID, borrowerID int64, rating int, title, comment string) (*Review, error)
	Edit(ctx context.Context, reviewID, borrowerID int64, rating int, title, comment string) (*Review, error)
	Delete(ctx context.Context, reviewID, borrowerID int64) error
	SetApproval(ctx context.Context, reviewID int64, approved bool) error
	ListForBook(ctx context.Context, bookID int64) ([]*Review, error)
	RatingForBook(ctx context.Context, bookID int64) (Rating, error)
}

type service struct {
	repo    Repository
	history LoanHistory
	logger  *slog.Logger
}

var _ Service = (*service)(nil)

func NewService(repo Repository, history LoanHistory, logger *slog.Logger) Service {
	if repo == nil || history == nil {
		panic("review repository and loan history cannot be nil")
	}
	return &service{
		repo:    repo,
		history: history,
		logger:  logger.With(slog.String("component", "reviewService")),
	}
}

func (s *service) Add(ctx context.Context, bookID, borrowerID int64, rating int, title, comment string) (*Review, error) {
	borrowed, err := s.history.HasBorrowed(ctx, bookID, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check loan history: %w", err)
	}
	if !borrowed {
		s.logger.WarnContext(ctx, "Review rejected, book never borrowed", slog.Int64("bookID", bookID), slog.Int64("borrowerID", borrowerID))
		return nil, fmt.Errorf("%w: only borrowers who borrowed book %d may review it", apperrors.ErrForbidden, bookID)
	}

	r, err := NewReview(bookID, borrowerID, rating, title, comment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: borrower %d already reviewed book %d", apperrors.ErrAlreadyExists, borrowerID, bookID)
		}
		s.logger.ErrorContext(ctx, "Repository failed to create review", slog.Any("error", err))
		return nil, err
	}
	s.logger.InfoContext(ctx, "Review added", slog.Int64("reviewID", r.ID), slog.Int64("bookID", bookID))
	return r, nil
}

func (s *service) owned(ctx context.Context, reviewID, borrowerID int64) (*Review, error) {
	r, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: review %d", apperrors.ErrNotFound, reviewID)
		}
		return nil, err
	}
	if r.BorrowerID != borrowerID {
		return nil, fmt.Errorf("%w: review %d belongs to another borrower", apperrors.ErrForbidden, reviewID)
	}
	return r, nil
}

func (s *service) Edit(ctx context.Context, reviewID, borrowerID int64, rating int, title, comment string) (*Review, error) {
	r, err := s.owned(ctx, reviewID, borrowerID)
	if err != nil {
		return nil, err
	}
	if err := r.Edit(rating, title, comment); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) Delete(ctx context.Context, reviewID, borrowerID int64) error {
	if _, err := s.owned(ctx, reviewID, borrowerID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, reviewID)
}

func (s *service) SetApproval(ctx context.Context, reviewID int64, approved bool) error {
	if err := s.repo.SetApproval(ctx, reviewID, approved); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: review %d", apperrors.ErrNotFound, reviewID)
		}
		return err
	}
	s.logger.InfoContext(ctx, "Review approval changed", slog.Int64("reviewID", reviewID), slog.Bool("approved", approved))
	return nil
}

func (s *service) ListForBook(ctx context.Context, bookID int64) ([]*Review, error) {
	return s.repo.ListApprovedByBook(ctx, bookID)
}

func (s *service) RatingForBook(ctx context.Context, bookID int64) (Rating, error) {
	return s.repo.AverageRating(ctx, bookID)
}
