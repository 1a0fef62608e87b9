// Package notification turns circulation events into borrower notices.
package notification

import (
	"context"
	"errors"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/event"
	"library-engine/internal/infrastructure/monitoring"
	"library-engine/internal/pkg/apperrors"
	"log/slog"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeys are the events the notifier subscribes to.
var RoutingKeys = []string{event.RoutingKeyReservationAvailable, event.RoutingKeyLoanOverdue}

type ReservationStore interface {
	GetByID(ctx context.Context, reservationID int64) (*reservation.Reservation, error)
	MarkNotified(ctx context.Context, reservationID int64) error
}

type BorrowerFinder interface {
	FindByID(ctx context.Context, borrowerID int64) (*borrower.Borrower, error)
}

type Handler struct {
	reservations ReservationStore
	borrowers    BorrowerFinder
	logger       *slog.Logger
}

func NewHandler(reservations ReservationStore, borrowers BorrowerFinder, logger *slog.Logger) *Handler {
	return &Handler{
		reservations: reservations,
		borrowers:    borrowers,
		logger:       logger.With("component", "NotificationHandler"),
	}
}

func (h *Handler) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	logCtx := h.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey))
	processed := false
	status := "success"

	defer func() {
		if !processed {
			logCtx.WarnContext(ctx, "Message processing ended without explicit Ack/Nack")
			_ = d.Nack(false, false)
			status = "error"
		}
		monitoring.RecordEventConsumed(d.RoutingKey, status)
	}()

	var err error
	switch d.RoutingKey {
	case event.RoutingKeyReservationAvailable:
		var evt event.ReservationEvent
		if err := jsoniter.Unmarshal(d.Body, &evt); err != nil {
			logCtx.ErrorContext(ctx, "Failed to unmarshal ReservationEvent", "error", err, "body", string(d.Body))
			_ = d.Nack(false, false)
			processed, status = true, "error"
			return
		}
		err = h.holdReady(ctx, logCtx, evt)
	case event.RoutingKeyLoanOverdue:
		var evt event.LoanEvent
		if err := jsoniter.Unmarshal(d.Body, &evt); err != nil {
			logCtx.ErrorContext(ctx, "Failed to unmarshal LoanEvent", "error", err, "body", string(d.Body))
			_ = d.Nack(false, false)
			processed, status = true, "error"
			return
		}
		err = h.loanOverdue(ctx, logCtx, evt)
	default:
		logCtx.WarnContext(ctx, "Received message with unknown routing key. Discarding.")
		_ = d.Reject(false)
		processed, status = true, "rejected"
		return
	}

	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to process notification", "error", err)
		_ = d.Nack(false, false)
		processed, status = true, "error"
		return
	}

	if err := d.Ack(false); err != nil {
		logCtx.ErrorContext(ctx, "Failed to acknowledge message after successful processing", "error", err)
	}
	processed = true
}

// holdReady tells the borrower a copy is waiting. Stale events for holds that
// were already picked up, cancelled or announced are dropped.
func (h *Handler) holdReady(ctx context.Context, logCtx *slog.Logger, evt event.ReservationEvent) error {
	logCtx = logCtx.With(slog.Int64("reservationID", evt.ReservationID), slog.Int64("borrowerID", evt.BorrowerID))

	r, err := h.reservations.GetByID(ctx, evt.ReservationID)
	if errors.Is(err, apperrors.ErrNotFound) {
		logCtx.WarnContext(ctx, "Reservation no longer exists, skipping notice")
		return nil
	}
	if err != nil {
		return err
	}
	if r.Status != reservation.StatusAvailable || r.NotificationSent {
		logCtx.InfoContext(ctx, "Hold notice not needed", "status", r.Status, "notified", r.NotificationSent)
		return nil
	}

	b, err := h.borrowers.FindByID(ctx, r.BorrowerID)
	if err != nil {
		return err
	}
	logCtx.InfoContext(ctx, "Hold ready for pickup",
		"channel", b.NotificationPreference, "email", b.Email, "book", r.BookTitle, "expiresAt", r.ExpiresAt)

	return h.reservations.MarkNotified(ctx, r.ID)
}

func (h *Handler) loanOverdue(ctx context.Context, logCtx *slog.Logger, evt event.LoanEvent) error {
	b, err := h.borrowers.FindByID(ctx, evt.BorrowerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		logCtx.WarnContext(ctx, "Borrower no longer exists, skipping notice", "borrowerID", evt.BorrowerID)
		return nil
	}
	if err != nil {
		return err
	}
	logCtx.InfoContext(ctx, "Loan overdue",
		"loanID", evt.LoanID, "channel", b.NotificationPreference, "email", b.Email, "dueAt", evt.DueAt, "fine", evt.FineAmount)
	return nil
}
