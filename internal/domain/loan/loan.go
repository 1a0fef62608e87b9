package loan

import (
	"fmt"
	"library-engine/internal/pkg/apperrors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultLoanPeriod  = 14 * 24 * time.Hour
	DefaultMaxRenewals = 3
)

type LoanStatus string

const (
	StatusActive   LoanStatus = "active"
	StatusReturned LoanStatus = "returned"
	StatusOverdue  LoanStatus = "overdue"
	StatusLost     LoanStatus = "lost"
)

type Loan struct {
	ID           int64
	BookID       int64
	BorrowerID   int64
	BookTitle    string
	LoanedAt     time.Time
	DueAt        time.Time
	ReturnedAt   *time.Time
	Status       LoanStatus
	RenewalCount int
	FineAmount   decimal.Decimal
	Notes        string
	UpdatedAt    time.Time
}

func NewLoan(bookID, borrowerID int64, now time.Time, period time.Duration) *Loan {
	if period <= 0 {
		period = DefaultLoanPeriod
	}
	return &Loan{
		BookID:     bookID,
		BorrowerID: borrowerID,
		LoanedAt:   now,
		DueAt:      now.Add(period),
		Status:     StatusActive,
		FineAmount: decimal.Zero,
		UpdatedAt:  now,
	}
}

// IsCheckedOut reports whether the copy is still with the borrower. An
// overdue loan still holds its copy.
func (l *Loan) IsCheckedOut() bool {
	return l.Status == StatusActive || l.Status == StatusOverdue
}

func (l *Loan) IsOverdue(now time.Time) bool {
	return l.IsCheckedOut() && now.After(l.DueAt)
}

// DaysOverdue counts whole calendar days (UTC) between the due date and now.
// A loan returned later on its due date is zero days overdue.
func DaysOverdue(dueAt, now time.Time) int {
	if !now.After(dueAt) {
		return 0
	}
	days := int(civilDate(now).Sub(civilDate(dueAt)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AccruedFine is days overdue times the daily rate.
func (l *Loan) AccruedFine(now time.Time, perDay decimal.Decimal) decimal.Decimal {
	days := DaysOverdue(l.DueAt, now)
	if days == 0 {
		return decimal.Zero
	}
	return perDay.Mul(decimal.NewFromInt(int64(days)))
}

// CheckRenewal applies the renewal rules in order: renewal budget, overdue, waiting readers.
func (l *Loan) CheckRenewal(now time.Time, maxRenewals int, hasPendingReservations bool) error {
	if l.RenewalCount >= maxRenewals {
		return fmt.Errorf("%w: loan %d renewed %d times", apperrors.ErrMaxRenewals, l.ID, l.RenewalCount)
	}
	if l.Status == StatusOverdue || l.IsOverdue(now) {
		return fmt.Errorf("%w: loan %d was due %s", apperrors.ErrOverdue, l.ID, l.DueAt.Format(time.DateOnly))
	}
	if hasPendingReservations {
		return fmt.Errorf("%w: book %d", apperrors.ErrReservedByOthers, l.BookID)
	}
	return nil
}

func (l *Loan) Renew(now time.Time, period time.Duration) {
	if period <= 0 {
		period = DefaultLoanPeriod
	}
	l.DueAt = now.Add(period)
	l.RenewalCount++
	l.UpdatedAt = now
}

// Close marks the loan returned and records the final fine.
func (l *Loan) Close(now time.Time, fine decimal.Decimal) {
	l.ReturnedAt = &now
	l.Status = StatusReturned
	l.FineAmount = fine
	l.UpdatedAt = now
}

// MarkOverdue flips a checked-out loan past its due date to overdue. It
// returns true when the status actually changed.
func (l *Loan) MarkOverdue(now time.Time, fine decimal.Decimal) bool {
	changed := l.Status == StatusActive
	l.Status = StatusOverdue
	l.FineAmount = fine
	l.UpdatedAt = now
	return changed
}

func (l *Loan) DaysUntilDue(now time.Time) int {
	if !l.IsCheckedOut() {
		return 0
	}
	return int(civilDate(l.DueAt).Sub(civilDate(now)).Hours() / 24)
}
