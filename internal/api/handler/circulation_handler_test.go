package handler

import (
	"errors"
	"fmt"
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/domain/fine"
	"library-engine/internal/domain/loan"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/pkg/apperrors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func activeLoan(id, bookID, borrowerID int64) *loan.Loan {
	now := time.Now()
	return &loan.Loan{
		ID:         id,
		BookID:     bookID,
		BorrowerID: borrowerID,
		LoanedAt:   now,
		DueAt:      now.Add(14 * 24 * time.Hour),
		Status:     loan.StatusActive,
		FineAmount: decimal.Zero,
	}
}

func TestCirculationHandler_Borrow(t *testing.T) {
	params := map[string]string{"bookID": "10"}

	t.Run("created with fulfilled reservation", func(t *testing.T) {
		actor := member(2)
		svc := new(MockCirculationService)
		svc.On("Borrow", mock.Anything, *actor, int64(10), int64(2)).Return(&circulation.BorrowResult{
			Loan:      activeLoan(100, 10, 2),
			Fulfilled: &reservation.Reservation{ID: 55, Status: reservation.StatusFulfilled},
		}, nil)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Borrow(rr, newRequest(t, http.MethodPost, "/books/10/borrow", nil, actor, params))

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp dto.BorrowResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, int64(100), resp.Loan.ID)
		assert.Equal(t, "active", resp.Loan.Status)
		assert.Equal(t, "0.00", resp.Loan.FineAmount)
		require.NotNil(t, resp.FulfilledReservationID)
		assert.Equal(t, int64(55), *resp.FulfilledReservationID)
		svc.AssertExpectations(t)
	})

	ruleCases := []struct {
		name string
		err  error
		code string
	}{
		{"unavailable", apperrors.ErrUnavailable, apperrors.CodeUnavailable},
		{"already borrowed", apperrors.ErrAlreadyBorrowed, apperrors.CodeAlreadyBorrowed},
		{"fines outstanding", apperrors.ErrFinesOutstanding, apperrors.CodeFinesOutstanding},
		{"loan limit", fmt.Errorf("borrow book 10: %w", apperrors.ErrLoanLimitReached), apperrors.CodeLoanLimitReached},
	}
	for _, tc := range ruleCases {
		t.Run(tc.name, func(t *testing.T) {
			actor := member(2)
			svc := new(MockCirculationService)
			svc.On("Borrow", mock.Anything, *actor, int64(10), int64(2)).Return(nil, tc.err)
			h := NewCirculationHandler(svc, discardLogger())

			rr := httptest.NewRecorder()
			h.Borrow(rr, newRequest(t, http.MethodPost, "/books/10/borrow", nil, actor, params))

			assert.Equal(t, http.StatusConflict, rr.Code)
			assert.Equal(t, tc.code, decodeError(t, rr).Code)
		})
	}

	t.Run("librarian acts for another borrower", func(t *testing.T) {
		actor := librarian(1)
		svc := new(MockCirculationService)
		svc.On("Borrow", mock.Anything, *actor, int64(10), int64(8)).Return(&circulation.BorrowResult{Loan: activeLoan(101, 10, 8)}, nil)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Borrow(rr, newRequest(t, http.MethodPost, "/books/10/borrow?borrowerId=8", nil, actor, params))

		assert.Equal(t, http.StatusCreated, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("member acting for another borrower is forbidden", func(t *testing.T) {
		actor := member(2)
		svc := new(MockCirculationService)
		svc.On("Borrow", mock.Anything, *actor, int64(10), int64(8)).
			Return(nil, fmt.Errorf("%w: not your account", apperrors.ErrForbidden))
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Borrow(rr, newRequest(t, http.MethodPost, "/books/10/borrow?borrowerId=8", nil, actor, params))

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown book", func(t *testing.T) {
		actor := member(2)
		svc := new(MockCirculationService)
		svc.On("Borrow", mock.Anything, *actor, int64(10), int64(2)).
			Return(nil, fmt.Errorf("book 10: %w", apperrors.ErrNotFound))
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Borrow(rr, newRequest(t, http.MethodPost, "/books/10/borrow", nil, actor, params))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, apperrors.CodeNotFound, decodeError(t, rr).Code)
	})

	t.Run("no caller", func(t *testing.T) {
		svc := new(MockCirculationService)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Borrow(rr, newRequest(t, http.MethodPost, "/books/10/borrow", nil, nil, params))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		svc.AssertNotCalled(t, "Borrow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad book id", func(t *testing.T) {
		h := NewCirculationHandler(new(MockCirculationService), discardLogger())

		rr := httptest.NewRecorder()
		h.Borrow(rr, newRequest(t, http.MethodPost, "/books/abc/borrow", nil, member(2), map[string]string{"bookID": "abc"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("bad borrower id", func(t *testing.T) {
		h := NewCirculationHandler(new(MockCirculationService), discardLogger())

		rr := httptest.NewRecorder()
		h.Borrow(rr, newRequest(t, http.MethodPost, "/books/10/borrow?borrowerId=-1", nil, librarian(1), params))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("database failure", func(t *testing.T) {
		actor := member(2)
		svc := new(MockCirculationService)
		svc.On("Borrow", mock.Anything, *actor, int64(10), int64(2)).
			Return(nil, apperrors.WrapDatabaseError(errors.New("connection reset"), "failed to lock book"))
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Borrow(rr, newRequest(t, http.MethodPost, "/books/10/borrow", nil, actor, params))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "INTERNAL", decodeError(t, rr).Code)
	})
}

func TestCirculationHandler_Reserve(t *testing.T) {
	params := map[string]string{"bookID": "10"}

	t.Run("queued", func(t *testing.T) {
		actor := member(3)
		svc := new(MockCirculationService)
		svc.On("Reserve", mock.Anything, *actor, int64(10), int64(3)).Return(&circulation.ReserveResult{
			Reservation:   &reservation.Reservation{ID: 7, BookID: 10, BorrowerID: 3, Status: reservation.StatusPending},
			QueuePosition: 2,
		}, nil)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Reserve(rr, newRequest(t, http.MethodPost, "/books/10/reserve", nil, actor, params))

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp dto.ReserveResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, 2, resp.QueuePosition)
		assert.Equal(t, "pending", resp.Reservation.Status)
	})

	t.Run("book available", func(t *testing.T) {
		actor := member(3)
		svc := new(MockCirculationService)
		svc.On("Reserve", mock.Anything, *actor, int64(10), int64(3)).Return(nil, apperrors.ErrBookAvailable)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Reserve(rr, newRequest(t, http.MethodPost, "/books/10/reserve", nil, actor, params))

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, apperrors.CodeBookAvailable, decodeError(t, rr).Code)
	})
}

func TestCirculationHandler_QueuePosition(t *testing.T) {
	params := map[string]string{"bookID": "10"}

	t.Run("own position", func(t *testing.T) {
		svc := new(MockCirculationService)
		svc.On("QueuePosition", mock.Anything, int64(10), int64(3)).Return(1, nil)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.QueuePosition(rr, newRequest(t, http.MethodGet, "/books/10/queue-position", nil, member(3), params))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp dto.QueuePositionResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, 1, resp.Position)
	})

	t.Run("another borrower's position", func(t *testing.T) {
		svc := new(MockCirculationService)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.QueuePosition(rr, newRequest(t, http.MethodGet, "/books/10/queue-position?borrowerId=4", nil, member(3), params))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		svc.AssertNotCalled(t, "QueuePosition", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not queued", func(t *testing.T) {
		svc := new(MockCirculationService)
		svc.On("QueuePosition", mock.Anything, int64(10), int64(4)).
			Return(0, fmt.Errorf("%w: no pending reservation", apperrors.ErrNotFound))
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.QueuePosition(rr, newRequest(t, http.MethodGet, "/books/10/queue-position?borrowerId=4", nil, librarian(1), params))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCirculationHandler_Return(t *testing.T) {
	actor := member(2)
	params := map[string]string{"loanID": "100"}

	t.Run("late return with fine", func(t *testing.T) {
		returned := activeLoan(100, 10, 2)
		returnedAt := time.Now()
		returned.Status = loan.StatusReturned
		returned.ReturnedAt = &returnedAt
		returned.FineAmount = decimal.RequireFromString("1.5")

		svc := new(MockCirculationService)
		svc.On("Return", mock.Anything, *actor, int64(100)).Return(&circulation.ReturnResult{
			Loan:       returned,
			FineAmount: decimal.RequireFromString("1.5"),
			Fine:       &fine.Fine{ID: 9, LoanID: 100, BorrowerID: 2, Amount: decimal.RequireFromString("1.5"), Status: fine.StatusPending, Reason: fine.LateReturnReason("Dune")},
		}, nil)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Return(rr, newRequest(t, http.MethodPost, "/loans/100/return", nil, actor, params))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp dto.ReturnResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "returned", resp.Loan.Status)
		assert.Equal(t, "1.50", resp.FineAmount)
		require.NotNil(t, resp.Fine)
		assert.Equal(t, `Late return of "Dune"`, resp.Fine.Reason)
	})

	t.Run("on time", func(t *testing.T) {
		returned := activeLoan(100, 10, 2)
		returned.Status = loan.StatusReturned

		svc := new(MockCirculationService)
		svc.On("Return", mock.Anything, *actor, int64(100)).Return(&circulation.ReturnResult{Loan: returned, FineAmount: decimal.Zero}, nil)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Return(rr, newRequest(t, http.MethodPost, "/loans/100/return", nil, actor, params))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp dto.ReturnResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "0.00", resp.FineAmount)
		assert.Nil(t, resp.Fine)
	})

	t.Run("already returned", func(t *testing.T) {
		svc := new(MockCirculationService)
		svc.On("Return", mock.Anything, *actor, int64(100)).
			Return(nil, fmt.Errorf("%w: loan 100 is not checked out", apperrors.ErrNotFound))
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Return(rr, newRequest(t, http.MethodPost, "/loans/100/return", nil, actor, params))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCirculationHandler_Renew(t *testing.T) {
	actor := member(2)
	params := map[string]string{"loanID": "100"}

	t.Run("renewed", func(t *testing.T) {
		renewed := activeLoan(100, 10, 2)
		renewed.RenewalCount = 1
		svc := new(MockCirculationService)
		svc.On("Renew", mock.Anything, *actor, int64(100)).Return(renewed, nil)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.Renew(rr, newRequest(t, http.MethodPost, "/loans/100/renew", nil, actor, params))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp dto.LoanResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, 1, resp.RenewalCount)
	})

	for _, tc := range []struct {
		err  error
		code string
	}{
		{apperrors.ErrMaxRenewals, apperrors.CodeMaxRenewals},
		{apperrors.ErrOverdue, apperrors.CodeOverdue},
		{apperrors.ErrReservedByOthers, apperrors.CodeReservedByOthers},
	} {
		t.Run(tc.code, func(t *testing.T) {
			svc := new(MockCirculationService)
			svc.On("Renew", mock.Anything, *actor, int64(100)).Return(nil, tc.err)
			h := NewCirculationHandler(svc, discardLogger())

			rr := httptest.NewRecorder()
			h.Renew(rr, newRequest(t, http.MethodPost, "/loans/100/renew", nil, actor, params))

			assert.Equal(t, http.StatusConflict, rr.Code)
			assert.Equal(t, tc.code, decodeError(t, rr).Code)
		})
	}
}

func TestCirculationHandler_ListLoans(t *testing.T) {
	actor := member(2)
	svc := new(MockCirculationService)
	svc.On("ListLoans", mock.Anything, *actor, int64(2)).Return([]*loan.Loan{activeLoan(1, 10, 2), activeLoan(2, 11, 2)}, nil)
	h := NewCirculationHandler(svc, discardLogger())

	rr := httptest.NewRecorder()
	h.ListLoans(rr, newRequest(t, http.MethodGet, "/loans", nil, actor, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp []dto.LoanResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp, 2)
	svc.AssertExpectations(t)
}

func TestCirculationHandler_CancelReservation(t *testing.T) {
	actor := member(3)
	params := map[string]string{"reservationID": "7"}

	t.Run("cancelled", func(t *testing.T) {
		svc := new(MockCirculationService)
		svc.On("CancelReservation", mock.Anything, *actor, int64(7)).
			Return(&reservation.Reservation{ID: 7, Status: reservation.StatusCancelled}, nil)
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.CancelReservation(rr, newRequest(t, http.MethodPost, "/reservations/7/cancel", nil, actor, params))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp dto.ReservationResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "cancelled", resp.Status)
	})

	t.Run("already closed", func(t *testing.T) {
		svc := new(MockCirculationService)
		svc.On("CancelReservation", mock.Anything, *actor, int64(7)).
			Return(nil, fmt.Errorf("%w: reservation 7 is expired", apperrors.ErrConflict))
		h := NewCirculationHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.CancelReservation(rr, newRequest(t, http.MethodPost, "/reservations/7/cancel", nil, actor, params))

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "CONFLICT", decodeError(t, rr).Code)
	})
}
