package dto

import (
	"library-engine/internal/domain/circulation"
	"library-engine/internal/domain/fine"
	"library-engine/internal/domain/loan"
	"library-engine/internal/domain/reservation"
	"time"
)

type LoanResponse struct {
	ID           int64      `json:"id"`
	BookID       int64      `json:"bookId"`
	BookTitle    string     `json:"bookTitle,omitempty"`
	BorrowerID   int64      `json:"borrowerId"`
	LoanedAt     time.Time  `json:"loanedAt"`
	DueAt        time.Time  `json:"dueAt"`
	ReturnedAt   *time.Time `json:"returnedAt,omitempty"`
	Status       string     `json:"status"`
	RenewalCount int        `json:"renewalCount"`
	FineAmount   string     `json:"fineAmount"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	return LoanResponse{
		ID:           l.ID,
		BookID:       l.BookID,
		BookTitle:    l.BookTitle,
		BorrowerID:   l.BorrowerID,
		LoanedAt:     l.LoanedAt,
		DueAt:        l.DueAt,
		ReturnedAt:   l.ReturnedAt,
		Status:       string(l.Status),
		RenewalCount: l.RenewalCount,
		FineAmount:   formatMoney(l.FineAmount),
	}
}

func NewLoanListResponse(loans []*loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, len(loans))
	for i, l := range loans {
		resp[i] = NewLoanResponse(l)
	}
	return resp
}

type ReservationResponse struct {
	ID               int64     `json:"id"`
	BookID           int64     `json:"bookId"`
	BookTitle        string    `json:"bookTitle,omitempty"`
	BorrowerID       int64     `json:"borrowerId"`
	ReservedAt       time.Time `json:"reservedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	Status           string    `json:"status"`
	NotificationSent bool      `json:"notificationSent"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:               r.ID,
		BookID:           r.BookID,
		BookTitle:        r.BookTitle,
		BorrowerID:       r.BorrowerID,
		ReservedAt:       r.ReservedAt,
		ExpiresAt:        r.ExpiresAt,
		Status:           string(r.Status),
		NotificationSent: r.NotificationSent,
	}
}

func NewReservationListResponse(rs []*reservation.Reservation) []ReservationResponse {
	resp := make([]ReservationResponse, len(rs))
	for i, r := range rs {
		resp[i] = NewReservationResponse(r)
	}
	return resp
}

type BorrowResponse struct {
	Loan                   LoanResponse `json:"loan"`
	FulfilledReservationID *int64       `json:"fulfilledReservationId,omitempty"`
}

func NewBorrowResponse(res *circulation.BorrowResult) BorrowResponse {
	resp := BorrowResponse{Loan: NewLoanResponse(res.Loan)}
	if res.Fulfilled != nil {
		id := res.Fulfilled.ID
		resp.FulfilledReservationID = &id
	}
	return resp
}

type ReturnResponse struct {
	Loan       LoanResponse  `json:"loan"`
	FineAmount string        `json:"fineAmount"`
	Fine       *FineResponse `json:"fine,omitempty"`
}

func NewReturnResponse(res *circulation.ReturnResult) ReturnResponse {
	resp := ReturnResponse{
		Loan:       NewLoanResponse(res.Loan),
		FineAmount: formatMoney(res.FineAmount),
	}
	if res.Fine != nil {
		f := NewFineResponse(res.Fine)
		resp.Fine = &f
	}
	return resp
}

type ReserveResponse struct {
	Reservation   ReservationResponse `json:"reservation"`
	QueuePosition int                 `json:"queuePosition"`
}

func NewReserveResponse(res *circulation.ReserveResult) ReserveResponse {
	return ReserveResponse{
		Reservation:   NewReservationResponse(res.Reservation),
		QueuePosition: res.QueuePosition,
	}
}

type FineResponse struct {
	ID            int64      `json:"id"`
	LoanID        int64      `json:"loanId"`
	BorrowerID    int64      `json:"borrowerId"`
	BookTitle     string     `json:"bookTitle,omitempty"`
	Amount        string     `json:"amount"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

func NewFineResponse(f *fine.Fine) FineResponse {
	return FineResponse{
		ID:            f.ID,
		LoanID:        f.LoanID,
		BorrowerID:    f.BorrowerID,
		BookTitle:     f.BookTitle,
		Amount:        formatMoney(f.Amount),
		Reason:        f.Reason,
		Status:        string(f.Status),
		CreatedAt:     f.CreatedAt,
		PaidAt:        f.PaidAt,
		PaymentMethod: f.PaymentMethod,
		Notes:         f.Notes,
	}
}

type FineStatementResponse struct {
	Fines        []FineResponse `json:"fines"`
	PendingTotal string         `json:"pendingTotal"`
}

func NewFineStatementResponse(st *circulation.FineStatement) FineStatementResponse {
	resp := FineStatementResponse{
		Fines:        make([]FineResponse, len(st.Fines)),
		PendingTotal: formatMoney(st.PendingTotal),
	}
	for i, f := range st.Fines {
		resp.Fines[i] = NewFineResponse(f)
	}
	return resp
}

type PayFineRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cash card online"`
}

func (r *PayFineRequest) Validate() error {
	return validate.Validate(r)
}

type FineNoteRequest struct {
	Note string `json:"note" validate:"required,max=500"`
}

func (r *FineNoteRequest) Validate() error {
	return validate.Validate(r)
}
