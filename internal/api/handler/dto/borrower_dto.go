package dto

import (
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/circulation"
	"time"
)

type TokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *TokenRequest) Validate() error {
	return validate.Validate(r)
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RegisterBorrowerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address  string `json:"address,omitempty" validate:"omitempty,max=255"`
}

func (r *RegisterBorrowerRequest) Validate() error {
	return validate.Validate(r)
}

type UpdateLoanLimitRequest struct {
	LoanLimit int `json:"loanLimit" validate:"gte=1,lte=10"`
}

func (r *UpdateLoanLimitRequest) Validate() error {
	return validate.Validate(r)
}

type NotificationPreferenceRequest struct {
	Preference string `json:"notificationPreference" validate:"required,oneof=email sms both"`
}

func (r *NotificationPreferenceRequest) Validate() error {
	return validate.Validate(r)
}

type BorrowerResponse struct {
	BorrowerID             int64     `json:"borrowerId"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	Phone                  string    `json:"phone,omitempty"`
	Address                string    `json:"address,omitempty"`
	LoanLimit              int       `json:"loanLimit"`
	Librarian              bool      `json:"librarian"`
	Active                 bool      `json:"active"`
	NotificationPreference string    `json:"notificationPreference"`
	MemberSince            time.Time `json:"memberSince"`
}

func NewBorrowerResponse(b *borrower.Borrower) BorrowerResponse {
	return BorrowerResponse{
		BorrowerID:             b.ID,
		Name:                   b.Name,
		Email:                  b.Email,
		Phone:                  b.Phone,
		Address:                b.Address,
		LoanLimit:              b.LoanLimit,
		Librarian:              b.Librarian,
		Active:                 b.Active,
		NotificationPreference: b.NotificationPreference,
		MemberSince:            b.MemberSince,
	}
}

type SummaryResponse struct {
	BorrowerID         int64  `json:"borrowerId"`
	LoanLimit          int    `json:"loanLimit"`
	ActiveLoans        int    `json:"activeLoans"`
	OverdueLoans       int    `json:"overdueLoans"`
	PendingFines       string `json:"pendingFines"`
	ReadyReservations  int    `json:"readyReservations"`
	QueuedReservations int    `json:"queuedReservations"`
	CanBorrow          bool   `json:"canBorrow"`
}

func NewSummaryResponse(s *circulation.Summary) SummaryResponse {
	return SummaryResponse{
		BorrowerID:         s.BorrowerID,
		LoanLimit:          s.LoanLimit,
		ActiveLoans:        s.ActiveLoans,
		OverdueLoans:       s.OverdueLoans,
		PendingFines:       formatMoney(s.PendingFines),
		ReadyReservations:  s.ReadyReservations,
		QueuedReservations: s.PendingQueue,
		CanBorrow:          s.ActiveLoans < s.LoanLimit && !s.PendingFines.IsPositive(),
	}
}

type ProfileResponse struct {
	Borrower BorrowerResponse `json:"borrower"`
	Summary  SummaryResponse  `json:"summary"`
}
