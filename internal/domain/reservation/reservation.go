package reservation

import (
	"fmt"
	"library-engine/internal/pkg/apperrors"
	"time"
)

const DefaultHoldPeriod = 7 * 24 * time.Hour

type Status string

const (
	StatusPending   Status = "pending"
	StatusAvailable Status = "available"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

type Reservation struct {
	ID               int64
	BookID           int64
	BorrowerID       int64
	BookTitle        string
	ReservedAt       time.Time
	ExpiresAt        time.Time
	Status           Status
	NotificationSent bool
	Notes            string
	UpdatedAt        time.Time
}

// NewReservation creates a pending reservation. The expiry set here is a
// placeholder until the reservation is promoted.
func NewReservation(bookID, borrowerID int64, now time.Time, hold time.Duration) *Reservation {
	if hold <= 0 {
		hold = DefaultHoldPeriod
	}
	return &Reservation{
		BookID:     bookID,
		BorrowerID: borrowerID,
		ReservedAt: now,
		ExpiresAt:  now.Add(hold),
		Status:     StatusPending,
		UpdatedAt:  now,
	}
}

// IsOpen reports whether the reservation still occupies a queue slot or a hold.
func (r *Reservation) IsOpen() bool {
	return r.Status == StatusPending || r.Status == StatusAvailable
}

// IsHeld reports whether the reservation still reserves a shelf copy. A hold
// covers its expires_at instant and lapses strictly after it, so at any
// moment it is either held or expirable.
func (r *Reservation) IsHeld(now time.Time) bool {
	return r.Status == StatusAvailable && !now.After(r.ExpiresAt)
}

// IsExpired reports whether the sweep should expire this reservation. Pending
// rows only expire when includePending is set.
func (r *Reservation) IsExpired(now time.Time, includePending bool) bool {
	switch r.Status {
	case StatusAvailable:
		return now.After(r.ExpiresAt)
	case StatusPending:
		return includePending && now.After(r.ExpiresAt)
	}
	return false
}

// Promote turns the queue head into a hold with a fresh pickup window.
func (r *Reservation) Promote(now time.Time, hold time.Duration) error {
	if r.Status != StatusPending {
		return fmt.Errorf("%w: reservation %d is %s, only pending reservations can be promoted", apperrors.ErrConflict, r.ID, r.Status)
	}
	if hold <= 0 {
		hold = DefaultHoldPeriod
	}
	r.Status = StatusAvailable
	r.ExpiresAt = now.Add(hold)
	r.NotificationSent = false
	r.UpdatedAt = now
	return nil
}

func (r *Reservation) Fulfill(now time.Time) error {
	if !r.IsOpen() {
		return fmt.Errorf("%w: reservation %d is %s", apperrors.ErrConflict, r.ID, r.Status)
	}
	r.Status = StatusFulfilled
	r.UpdatedAt = now
	return nil
}

func (r *Reservation) Cancel(now time.Time) error {
	if !r.IsOpen() {
		return fmt.Errorf("%w: no open reservation %d", apperrors.ErrNotFound, r.ID)
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now
	return nil
}

func (r *Reservation) Expire(now time.Time) {
	r.Status = StatusExpired
	r.UpdatedAt = now
}

// DaysUntilExpiry returns nil for reservations that are not waiting for pickup.
func (r *Reservation) DaysUntilExpiry(now time.Time) *int {
	if r.Status != StatusAvailable {
		return nil
	}
	days := int(r.ExpiresAt.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}
