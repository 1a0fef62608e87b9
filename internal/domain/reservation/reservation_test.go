package reservation

import (
	"errors"
	"library-engine/internal/pkg/apperrors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func TestNewReservationIsPending(t *testing.T) {
	r := NewReservation(3, 4, now, 0)

	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, now.Add(DefaultHoldPeriod), r.ExpiresAt)
	assert.True(t, r.IsOpen())
	assert.Nil(t, r.DaysUntilExpiry(now))
}

func TestPromote(t *testing.T) {
	r := NewReservation(3, 4, now, DefaultHoldPeriod)
	r.NotificationSent = true
	later := now.Add(10 * 24 * time.Hour)

	require.NoError(t, r.Promote(later, DefaultHoldPeriod))

	assert.Equal(t, StatusAvailable, r.Status)
	assert.Equal(t, later.Add(DefaultHoldPeriod), r.ExpiresAt)
	assert.False(t, r.NotificationSent)
	require.NotNil(t, r.DaysUntilExpiry(later))
	assert.Equal(t, 7, *r.DaysUntilExpiry(later))

	assert.True(t, errors.Is(r.Promote(later, DefaultHoldPeriod), apperrors.ErrConflict))
}

func TestIsExpired(t *testing.T) {
	pending := NewReservation(1, 1, now, DefaultHoldPeriod)
	past := now.Add(8 * 24 * time.Hour)

	assert.False(t, pending.IsExpired(past, false))
	assert.True(t, pending.IsExpired(past, true))
	assert.False(t, pending.IsExpired(now, true))

	hold := NewReservation(1, 2, now, DefaultHoldPeriod)
	require.NoError(t, hold.Promote(now, DefaultHoldPeriod))
	assert.False(t, hold.IsExpired(now.Add(6*24*time.Hour), false))
	assert.True(t, hold.IsExpired(past, false))

	hold.Expire(past)
	assert.False(t, hold.IsExpired(past.Add(time.Hour), true))
}

func TestHoldBoundaryIsEitherHeldOrExpired(t *testing.T) {
	hold := NewReservation(1, 2, now, DefaultHoldPeriod)
	assert.False(t, hold.IsHeld(now), "pending rows hold nothing")
	require.NoError(t, hold.Promote(now, DefaultHoldPeriod))

	for _, at := range []time.Time{
		hold.ExpiresAt.Add(-time.Nanosecond),
		hold.ExpiresAt,
		hold.ExpiresAt.Add(time.Nanosecond),
	} {
		assert.NotEqual(t, hold.IsHeld(at), hold.IsExpired(at, false), "at %s", at)
	}
	assert.True(t, hold.IsHeld(hold.ExpiresAt))
	assert.True(t, hold.IsExpired(hold.ExpiresAt.Add(time.Nanosecond), false))
}

func TestCancel(t *testing.T) {
	r := NewReservation(1, 1, now, DefaultHoldPeriod)
	require.NoError(t, r.Cancel(now))
	assert.Equal(t, StatusCancelled, r.Status)

	err := r.Cancel(now)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestFulfillOnlyOpen(t *testing.T) {
	r := NewReservation(1, 1, now, DefaultHoldPeriod)
	require.NoError(t, r.Fulfill(now))
	assert.Equal(t, StatusFulfilled, r.Status)
	assert.Error(t, r.Fulfill(now))
}
