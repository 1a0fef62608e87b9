package borrower

import (
	"fmt"
	"library-engine/internal/pkg/apperrors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultLoanLimit = 5
	MinLoanLimit     = 1
	MaxLoanLimit     = 10
)

// bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

const (
	NotifyEmail = "email"
	NotifySMS   = "sms"
	NotifyBoth  = "both"
)

type Borrower struct {
	ID                     int64     `json:"borrowerId"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	Phone                  string    `json:"phone,omitempty"`
	Address                string    `json:"address,omitempty"`
	LoanLimit              int       `json:"loanLimit"`
	Librarian              bool      `json:"librarian"`
	Active                 bool      `json:"active"`
	NotificationPreference string    `json:"notificationPreference"`
	PasswordHash           string    `json:"-"`
	MemberSince            time.Time `json:"memberSince"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func NewBorrower(name, email string) *Borrower {
	now := time.Now()
	return &Borrower{
		Name:                   name,
		Email:                  email,
		LoanLimit:              DefaultLoanLimit,
		Active:                 true,
		NotificationPreference: NotifyEmail,
		MemberSince:            now,
		UpdatedAt:              now,
	}
}

func (b *Borrower) SetPassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return apperrors.NewValidationError("password", fmt.Sprintf("password must be between %d and %d bytes", MinPasswordLength, MaxPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	b.PasswordHash = string(hash)
	b.UpdatedAt = time.Now()
	return nil
}

// CheckPassword reports whether password matches the stored hash. A borrower
// without a hash never matches.
func (b *Borrower) CheckPassword(password string) bool {
	if b.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(b.PasswordHash), []byte(password)) == nil
}

func (b *Borrower) SetLoanLimit(limit int) error {
	if limit < MinLoanLimit || limit > MaxLoanLimit {
		return apperrors.NewValidationError("loanLimit", fmt.Sprintf("loan limit must be between %d and %d", MinLoanLimit, MaxLoanLimit))
	}
	if b.LoanLimit != limit {
		b.LoanLimit = limit
		b.UpdatedAt = time.Now()
	}
	return nil
}

func (b *Borrower) SetNotificationPreference(pref string) error {
	switch pref {
	case NotifyEmail, NotifySMS, NotifyBoth:
	default:
		return apperrors.NewValidationError("notificationPreference", "must be one of email, sms, both")
	}
	b.NotificationPreference = pref
	b.UpdatedAt = time.Now()
	return nil
}

func (b *Borrower) Deactivate() {
	if b.Active {
		b.Active = false
		b.UpdatedAt = time.Now()
	}
}

func (b *Borrower) Reactivate() {
	if !b.Active {
		b.Active = true
		b.UpdatedAt = time.Now()
	}
}

// EffectiveLoanLimit caps the personal limit with the library-wide ceiling.
func (b *Borrower) EffectiveLoanLimit(libraryCap int) int {
	if libraryCap > 0 && libraryCap < b.LoanLimit {
		return libraryCap
	}
	return b.LoanLimit
}
