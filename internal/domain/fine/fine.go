package fine

import (
	"fmt"
	"library-engine/internal/pkg/apperrors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusWaived   Status = "waived"
	StatusDisputed Status = "disputed"
)

type Fine struct {
	ID            int64
	BorrowerID    int64
	LoanID        int64
	BookTitle     string
	Amount        decimal.Decimal
	Reason        string
	Status        Status
	CreatedAt     time.Time
	PaidAt        *time.Time
	PaymentMethod string
	Notes         string
}

// LateReturnReason is the reason recorded on overdue fines.
func LateReturnReason(title string) string {
	return fmt.Sprintf("Late return of %q", title)
}

func NewFine(borrowerID, loanID int64, amount decimal.Decimal, reason string, now time.Time) (*Fine, error) {
	if amount.IsNegative() {
		return nil, apperrors.NewValidationError("amount", "fine amount cannot be negative")
	}
	return &Fine{
		BorrowerID: borrowerID,
		LoanID:     loanID,
		Amount:     amount,
		Reason:     reason,
		Status:     StatusPending,
		CreatedAt:  now,
	}, nil
}

// IsSettled reports whether the fine reached a terminal status.
func (f *Fine) IsSettled() bool {
	return f.Status == StatusPaid || f.Status == StatusWaived
}

func (f *Fine) MarkPaid(now time.Time, method string) error {
	if f.IsSettled() {
		return fmt.Errorf("%w: fine %d is already %s", apperrors.ErrConflict, f.ID, f.Status)
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return apperrors.NewValidationError("paymentMethod", "payment method cannot be empty")
	}
	f.Status = StatusPaid
	f.PaidAt = &now
	f.PaymentMethod = method
	return nil
}

func (f *Fine) Waive(note string) error {
	if f.IsSettled() {
		return fmt.Errorf("%w: fine %d is already %s", apperrors.ErrConflict, f.ID, f.Status)
	}
	f.Status = StatusWaived
	f.appendNote(note)
	return nil
}

// Dispute parks a pending fine. Disputed fines no longer block borrowing.
func (f *Fine) Dispute(note string) error {
	if f.Status != StatusPending {
		return fmt.Errorf("%w: only pending fines can be disputed, fine %d is %s", apperrors.ErrConflict, f.ID, f.Status)
	}
	f.Status = StatusDisputed
	f.appendNote(note)
	return nil
}

func (f *Fine) appendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if f.Notes == "" {
		f.Notes = note
		return
	}
	f.Notes = f.Notes + "\n" + note
}
