package circulation

import (
	"library-engine/internal/domain/fine"
	"library-engine/internal/domain/loan"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/event"
	"time"
)

func loanEvent(routingKey string, l *loan.Loan, now time.Time) event.LoanEvent {
	evt := event.LoanEvent{
		Type:         routingKey,
		LoanID:       l.ID,
		BookID:       l.BookID,
		BorrowerID:   l.BorrowerID,
		Status:       string(l.Status),
		DueAt:        l.DueAt,
		ReturnedAt:   l.ReturnedAt,
		RenewalCount: l.RenewalCount,
		Timestamp:    now,
	}
	if l.FineAmount.IsPositive() {
		evt.FineAmount = l.FineAmount.StringFixed(2)
	}
	return evt
}

func reservationEvent(routingKey string, r *reservation.Reservation, position int, now time.Time) event.ReservationEvent {
	return event.ReservationEvent{
		Type:          routingKey,
		ReservationID: r.ID,
		BookID:        r.BookID,
		BorrowerID:    r.BorrowerID,
		Status:        string(r.Status),
		ExpiresAt:     r.ExpiresAt,
		QueuePosition: position,
		Timestamp:     now,
	}
}

func fineEvent(routingKey string, f *fine.Fine, now time.Time) event.FineEvent {
	return event.FineEvent{
		Type:       routingKey,
		FineID:     f.ID,
		LoanID:     f.LoanID,
		BorrowerID: f.BorrowerID,
		Amount:     f.Amount.StringFixed(2),
		Status:     string(f.Status),
		Reason:     f.Reason,
		Timestamp:  now,
	}
}
