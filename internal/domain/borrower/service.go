package borrower

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/event"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"os"
	"strings"
	"time"
)

const borrowerNotFound = "Borrower not found by repository"

type Service interface {
	Register(ctx context.Context, name, email, password, phone, address string) (*Borrower, error)
	GetBorrower(ctx context.Context, borrowerID int64) (*Borrower, error)
	Authenticate(ctx context.Context, email, password string) (*Borrower, error)
	ListBorrowers(ctx context.Context, activeOnly bool) ([]*Borrower, error)
	UpdateLoanLimit(ctx context.Context, borrowerID int64, limit int) (*Borrower, error)
	UpdateNotificationPreference(ctx context.Context, borrowerID int64, pref string) (*Borrower, error)
	Deactivate(ctx context.Context, borrowerID int64) error
	Reactivate(ctx context.Context, borrowerID int64) error
}

var _ Service = (*borrowerService)(nil)

type borrowerService struct {
	repo   Repository
	pub    event.Publisher
	logger *slog.Logger
}

func NewService(repo Repository, publisher event.Publisher, logger *slog.Logger) Service {
	if repo == nil {
		panic("borrower repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to borrower.NewService, using default stderr handler")
	}
	if publisher == nil {
		publisher = event.NewNopPublisher(logger)
	}
	return &borrowerService{
		repo:   repo,
		pub:    publisher,
		logger: logger.With(slog.String("component", "borrowerService")),
	}
}

func (s *borrowerService) publish(ctx context.Context, routingKey string, b *Borrower) {
	evt := event.BorrowerEvent{
		Type:       routingKey,
		BorrowerID: b.ID,
		Name:       b.Name,
		Email:      b.Email,
		LoanLimit:  b.LoanLimit,
		Active:     b.Active,
		Timestamp:  time.Now(),
	}
	if err := s.pub.Publish(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish borrower event", slog.String("routingKey", routingKey), slog.Int64("borrowerID", b.ID), slog.Any("error", err))
	}
}

func (s *borrowerService) notFound(err error, borrowerID int64) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: borrower %d", apperrors.ErrNotFound, borrowerID)
	}
	return fmt.Errorf("failed to load borrower %d: %w", borrowerID, err)
}

func (s *borrowerService) Register(ctx context.Context, name, email, password, phone, address string) (*Borrower, error) {
	s.logger.InfoContext(ctx, "Attempting to register borrower")

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, apperrors.NewValidationError("name", "name cannot be empty")
	}
	if email == "" {
		return nil, apperrors.NewValidationError("email", "email cannot be empty")
	}

	b := NewBorrower(name, email)
	if err := b.SetPassword(password); err != nil {
		return nil, err
	}
	b.Phone = strings.TrimSpace(phone)
	b.Address = strings.TrimSpace(address)

	if err := s.repo.Save(ctx, b); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Borrower email already registered")
			return nil, fmt.Errorf("%w: email %s is already registered", apperrors.ErrAlreadyExists, email)
		}
		s.logger.ErrorContext(ctx, "Repository failed to save new borrower", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new borrower: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully registered borrower", slog.Int64("borrowerID", b.ID))
	s.publish(ctx, event.RoutingKeyBorrowerRegistered, b)
	return b, nil
}

func (s *borrowerService) GetBorrower(ctx context.Context, borrowerID int64) (*Borrower, error) {
	b, err := s.repo.FindByID(ctx, borrowerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, borrowerNotFound, slog.Int64("borrowerID", borrowerID))
		} else {
			s.logger.ErrorContext(ctx, "Repository error finding borrower", slog.Any("error", err))
		}
		return nil, s.notFound(err, borrowerID)
	}
	return b, nil
}

// Authenticate returns the active borrower whose email and password match.
// Unknown emails and wrong passwords fail the same way.
func (s *borrowerService) Authenticate(ctx context.Context, email, password string) (*Borrower, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	b, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Authentication failed for unknown email")
			return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
		}
		s.logger.ErrorContext(ctx, "Repository error finding borrower by email", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load borrower by email: %w", err)
	}
	if !b.CheckPassword(password) {
		s.logger.WarnContext(ctx, "Authentication failed on password", slog.Int64("borrowerID", b.ID))
		return nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}
	if !b.Active {
		return nil, fmt.Errorf("%w: borrower %d is deactivated", apperrors.ErrUnauthorized, b.ID)
	}
	return b, nil
}

func (s *borrowerService) ListBorrowers(ctx context.Context, activeOnly bool) ([]*Borrower, error) {
	borrowers, err := s.repo.FindAll(ctx, activeOnly)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing borrowers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list borrowers: %w", err)
	}
	return borrowers, nil
}

func (s *borrowerService) UpdateLoanLimit(ctx context.Context, borrowerID int64, limit int) (*Borrower, error) {
	b, err := s.GetBorrower(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	if b.LoanLimit == limit {
		return b, nil
	}
	if err := b.SetLoanLimit(limit); err != nil {
		s.logger.WarnContext(ctx, "Rejected loan limit", slog.Int("limit", limit))
		return nil, err
	}
	if err := s.repo.Save(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save loan limit", slog.Any("error", err))
		return nil, s.notFound(err, borrowerID)
	}
	s.logger.InfoContext(ctx, "Loan limit updated", slog.Int64("borrowerID", borrowerID), slog.Int("limit", limit))
	s.publish(ctx, event.RoutingKeyBorrowerUpdated, b)
	return b, nil
}

func (s *borrowerService) UpdateNotificationPreference(ctx context.Context, borrowerID int64, pref string) (*Borrower, error) {
	b, err := s.GetBorrower(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	if err := b.SetNotificationPreference(strings.ToLower(strings.TrimSpace(pref))); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, b); err != nil {
		return nil, s.notFound(err, borrowerID)
	}
	return b, nil
}

func (s *borrowerService) Deactivate(ctx context.Context, borrowerID int64) error {
	return s.setActive(ctx, borrowerID, false)
}

func (s *borrowerService) Reactivate(ctx context.Context, borrowerID int64) error {
	return s.setActive(ctx, borrowerID, true)
}

func (s *borrowerService) setActive(ctx context.Context, borrowerID int64, active bool) error {
	s.logger.InfoContext(ctx, "Calling repository SetActiveStatus", slog.Int64("borrowerID", borrowerID), slog.Bool("isActive", active))
	if err := s.repo.SetActiveStatus(ctx, borrowerID, active); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, borrowerNotFound, slog.Int64("borrowerID", borrowerID))
		} else {
			s.logger.ErrorContext(ctx, "Repository error changing borrower status", slog.Any("error", err))
		}
		return s.notFound(err, borrowerID)
	}

	updated, fetchErr := s.repo.FindByID(ctx, borrowerID)
	if fetchErr != nil {
		s.logger.ErrorContext(ctx, "Updated status, but FAILED to re-fetch borrower for event publishing", slog.Any("error", fetchErr))
		return nil
	}
	s.publish(ctx, event.RoutingKeyBorrowerUpdated, updated)
	return nil
}
