package notification

import (
	"context"
	"errors"
	"io"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/event"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReservationStore struct {
	mock.Mock
}

func (m *MockReservationStore) GetByID(ctx context.Context, reservationID int64) (*reservation.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationStore) MarkNotified(ctx context.Context, reservationID int64) error {
	return m.Called(ctx, reservationID).Error(0)
}

type MockBorrowerFinder struct {
	mock.Mock
}

func (m *MockBorrowerFinder) FindByID(ctx context.Context, borrowerID int64) (*borrower.Borrower, error) {
	args := m.Called(ctx, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*borrower.Borrower), args.Error(1)
}

type ackRecorder struct {
	acked, nacked, rejected int
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }
func (a *ackRecorder) Nack(uint64, bool, bool) error { a.nacked++; return nil }
func (a *ackRecorder) Reject(uint64, bool) error { a.rejected++; return nil }

func setupTest(t *testing.T) (*Handler, *MockReservationStore, *MockBorrowerFinder) {
	t.Helper()
	reservations := new(MockReservationStore)
	borrowers := new(MockBorrowerFinder)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Cleanup(func() {
		reservations.AssertExpectations(t)
		borrowers.AssertExpectations(t)
	})
	return NewHandler(reservations, borrowers, logger), reservations, borrowers
}

func delivery(t *testing.T, key string, payload any) (amqp.Delivery, *ackRecorder) {
	t.Helper()
	body, err := jsoniter.Marshal(payload)
	require.NoError(t, err)
	ack := &ackRecorder{}
	return amqp.Delivery{Acknowledger: ack, RoutingKey: key, Body: body, DeliveryTag: 1}, ack
}

func heldReservation() *reservation.Reservation {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &reservation.Reservation{
		ID: 12, BookID: 7, BorrowerID: 3, BookTitle: "Dune",
		ReservedAt: now, ExpiresAt: now.Add(reservation.DefaultHoldPeriod),
		Status: reservation.StatusAvailable,
	}
}

func TestHandleDelivery_HoldReadyMarksNotified(t *testing.T) {
	h, reservations, borrowers := setupTest(t)
	ctx := context.Background()

	reservations.On("GetByID", mock.Anything, int64(12)).Return(heldReservation(), nil)
	borrowers.On("FindByID", mock.Anything, int64(3)).Return(borrower.NewBorrower("Ada", "ada@example.org"), nil)
	reservations.On("MarkNotified", mock.Anything, int64(12)).Return(nil)

	d, ack := delivery(t, event.RoutingKeyReservationAvailable,
		event.ReservationEvent{Type: event.RoutingKeyReservationAvailable, ReservationID: 12, BorrowerID: 3})
	h.HandleDelivery(ctx, d)

	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
}

func TestHandleDelivery_HoldAlreadyNotified(t *testing.T) {
	h, reservations, _ := setupTest(t)
	r := heldReservation()
	r.NotificationSent = true

	reservations.On("GetByID", mock.Anything, int64(12)).Return(r, nil)

	d, ack := delivery(t, event.RoutingKeyReservationAvailable, event.ReservationEvent{ReservationID: 12})
	h.HandleDelivery(context.Background(), d)

	assert.Equal(t, 1, ack.acked)
	reservations.AssertNotCalled(t, "MarkNotified", mock.Anything, mock.Anything)
}

func TestHandleDelivery_HoldPickedUpMeanwhile(t *testing.T) {
	h, reservations, _ := setupTest(t)
	r := heldReservation()
	r.Status = reservation.StatusFulfilled

	reservations.On("GetByID", mock.Anything, int64(12)).Return(r, nil)

	d, ack := delivery(t, event.RoutingKeyReservationAvailable, event.ReservationEvent{ReservationID: 12})
	h.HandleDelivery(context.Background(), d)

	assert.Equal(t, 1, ack.acked)
}

func TestHandleDelivery_MissingReservationIsAcked(t *testing.T) {
	h, reservations, _ := setupTest(t)

	reservations.On("GetByID", mock.Anything, int64(12)).Return(nil, apperrors.ErrNotFound)

	d, ack := delivery(t, event.RoutingKeyReservationAvailable, event.ReservationEvent{ReservationID: 12})
	h.HandleDelivery(context.Background(), d)

	assert.Equal(t, 1, ack.acked)
}

func TestHandleDelivery_StoreFailureIsNacked(t *testing.T) {
	h, reservations, borrowers := setupTest(t)

	reservations.On("GetByID", mock.Anything, int64(12)).Return(heldReservation(), nil)
	borrowers.On("FindByID", mock.Anything, int64(3)).Return(nil, errors.New("db down"))

	d, ack := delivery(t, event.RoutingKeyReservationAvailable, event.ReservationEvent{ReservationID: 12})
	h.HandleDelivery(context.Background(), d)

	assert.Zero(t, ack.acked)
	assert.Equal(t, 1, ack.nacked)
}

func TestHandleDelivery_BadPayloadIsNacked(t *testing.T) {
	h, _, _ := setupTest(t)
	ack := &ackRecorder{}

	h.HandleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: ack, RoutingKey: event.RoutingKeyReservationAvailable, Body: []byte("{not json"),
	})

	assert.Equal(t, 1, ack.nacked)
}

func TestHandleDelivery_UnknownKeyIsRejected(t *testing.T) {
	h, _, _ := setupTest(t)
	ack := &ackRecorder{}

	h.HandleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, RoutingKey: "loan.lost", Body: []byte("{}")})

	assert.Equal(t, 1, ack.rejected)
}

func TestHandleDelivery_LoanOverdue(t *testing.T) {
	h, _, borrowers := setupTest(t)

	borrowers.On("FindByID", mock.Anything, int64(3)).Return(borrower.NewBorrower("Ada", "ada@example.org"), nil)

	d, ack := delivery(t, event.RoutingKeyLoanOverdue,
		event.LoanEvent{Type: event.RoutingKeyLoanOverdue, LoanID: 41, BorrowerID: 3, FineAmount: "0.50"})
	h.HandleDelivery(context.Background(), d)

	assert.Equal(t, 1, ack.acked)
}
