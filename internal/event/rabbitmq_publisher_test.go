package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	published  []amqp.Publishing
	keys       []string
	exchange   string
	publishErr error
	closed     bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.exchange = exchange
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRabbitMQEventPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	ch := &fakeChannel{}
	p := newPublisher(func() (amqpChannel, error) { return ch, nil }, "library-engine", testLogger())

	due := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	evt := LoanEvent{Type: RoutingKeyLoanBorrowed, LoanID: 5, BookID: 2, BorrowerID: 9, Status: "active", DueAt: due}

	require.NoError(t, p.Publish(ctx, evt))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "library-engine", ch.exchange)
	assert.Equal(t, RoutingKeyLoanBorrowed, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, RoutingKeyLoanBorrowed, msg.Type)
	assert.Equal(t, publisherAppID, msg.AppId)
	_, err := uuid.Parse(msg.MessageId)
	assert.NoError(t, err)
	assert.True(t, ch.closed)

	var decoded LoanEvent
	require.NoError(t, jsoniter.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, int64(5), decoded.LoanID)
	assert.True(t, due.Equal(decoded.DueAt))
}

func TestRabbitMQEventPublisher_PublishErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("channel open fails", func(t *testing.T) {
		p := newPublisher(func() (amqpChannel, error) { return nil, errors.New("connection closed") }, "x", testLogger())
		err := p.Publish(ctx, FineEvent{Type: RoutingKeyFineAssessed})
		assert.ErrorContains(t, err, "failed to open channel")
	})

	t.Run("publish fails", func(t *testing.T) {
		ch := &fakeChannel{publishErr: errors.New("flow control")}
		p := newPublisher(func() (amqpChannel, error) { return ch, nil }, "x", testLogger())
		err := p.Publish(ctx, FineEvent{Type: RoutingKeyFineAssessed})
		assert.ErrorContains(t, err, "failed to publish message")
		assert.True(t, ch.closed)
	})
}

func TestNewRabbitMQEventPublisherValidatesArguments(t *testing.T) {
	_, err := NewRabbitMQEventPublisher(nil, "x", testLogger())
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	p := NewNopPublisher(testLogger())
	assert.NoError(t, p.Publish(context.Background(), BorrowerEvent{Type: RoutingKeyBorrowerRegistered}))
}

func TestEventRoutingKeys(t *testing.T) {
	var events = []Event{
		LoanEvent{Type: RoutingKeyLoanReturned},
		ReservationEvent{Type: RoutingKeyReservationAvailable},
		FineEvent{Type: RoutingKeyFinePaid},
		BorrowerEvent{Type: RoutingKeyBorrowerUpdated},
	}
	keys := []string{RoutingKeyLoanReturned, RoutingKeyReservationAvailable, RoutingKeyFinePaid, RoutingKeyBorrowerUpdated}
	for i, e := range events {
		assert.Equal(t, keys[i], e.RoutingKey())
	}
}
