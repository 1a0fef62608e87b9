package event

import (
	"context"
	"time"
)

const (
	RoutingKeyLoanBorrowed = "loan.borrowed"
	RoutingKeyLoanReturned = "loan.returned"
	RoutingKeyLoanRenewed  = "loan.renewed"
	RoutingKeyLoanOverdue  = "loan.overdue"

	RoutingKeyReservationCreated   = "reservation.created"
	RoutingKeyReservationAvailable = "reservation.available"
	RoutingKeyReservationFulfilled = "reservation.fulfilled"
	RoutingKeyReservationCancelled = "reservation.cancelled"
	RoutingKeyReservationExpired   = "reservation.expired"

	RoutingKeyFineAssessed = "fine.assessed"
	RoutingKeyFinePaid     = "fine.paid"
	RoutingKeyFineWaived   = "fine.waived"
	RoutingKeyFineDisputed = "fine.disputed"

	RoutingKeyBorrowerRegistered = "borrower.registered"
	RoutingKeyBorrowerUpdated    = "borrower.updated"
)

// Event is a domain event; its routing key doubles as the event type.
type Event interface {
	RoutingKey() string
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

type LoanEvent struct {
	Type         string     `json:"type"`
	LoanID       int64      `json:"loanId"`
	BookID       int64      `json:"bookId"`
	BorrowerID   int64      `json:"borrowerId"`
	Status       string     `json:"status"`
	DueAt        time.Time  `json:"dueAt"`
	ReturnedAt   *time.Time `json:"returnedAt,omitempty"`
	RenewalCount int        `json:"renewalCount"`
	FineAmount   string     `json:"fineAmount,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

func (e LoanEvent) RoutingKey() string { return e.Type }

type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID int64     `json:"reservationId"`
	BookID        int64     `json:"bookId"`
	BorrowerID    int64     `json:"borrowerId"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expiresAt"`
	QueuePosition int       `json:"queuePosition,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ReservationEvent) RoutingKey() string { return e.Type }

type FineEvent struct {
	Type       string    `json:"type"`
	FineID     int64     `json:"fineId"`
	LoanID     int64     `json:"loanId"`
	BorrowerID int64     `json:"borrowerId"`
	Amount     string    `json:"amount"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e FineEvent) RoutingKey() string { return e.Type }

type BorrowerEvent struct {
	Type       string    `json:"type"`
	BorrowerID int64     `json:"borrowerId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	LoanLimit  int       `json:"loanLimit"`
	Active     bool      `json:"active"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e BorrowerEvent) RoutingKey() string { return e.Type }
