package handler

import (
	"fmt"
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"net/http"
)

// CirculationHandler exposes loans and reservations. A librarian may act
// for another borrower with ?borrowerId=.
type CirculationHandler struct {
	service circulation.Service
	logger  *slog.Logger
}

func NewCirculationHandler(s circulation.Service, l *slog.Logger) *CirculationHandler {
	return &CirculationHandler{
		service: s,
		logger:  l.With("component", "CirculationHandler"),
	}
}

// bookAndBorrower resolves the caller, the target borrower and {bookID}.
func bookAndBorrower(r *http.Request) (circulation.Actor, int64, int64, error) {
	actor, err := actorFrom(r)
	if err != nil {
		return actor, 0, 0, err
	}
	bookID, err := getIDFromURL(r, "bookID")
	if err != nil {
		return actor, 0, 0, err
	}
	borrowerID, err := targetBorrower(r, actor)
	if err != nil {
		return actor, 0, 0, err
	}
	return actor, bookID, borrowerID, nil
}

// Borrow checks out a copy of a book.
//
// @Summary Borrow a book
// @Description Rejections carry a code: UNAVAILABLE, ALREADY_BORROWED, FINES_OUTSTANDING or LOAN_LIMIT_REACHED.
// @Tags Circulation
// @Produce json
// @Param bookID path int true "Book ID"
// @Param borrowerId query int false "Borrower to act for (librarians)"
// @Success 201 {object} dto.BorrowResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Circulation rule violated"
// @Router /books/{bookID}/borrow [post]
// @Security BearerAuth
func (h *CirculationHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	actor, bookID, borrowerID, err := bookAndBorrower(r)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.Borrow(r.Context(), actor, bookID, borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewBorrowResponse(res))
}

// Reserve joins the queue for a book with no free copy.
//
// @Summary Reserve a book
// @Description Rejections carry a code: BOOK_AVAILABLE, DUPLICATE_RESERVATION or ALREADY_HOLDING.
// @Tags Circulation
// @Produce json
// @Param bookID path int true "Book ID"
// @Param borrowerId query int false "Borrower to act for (librarians)"
// @Success 201 {object} dto.ReserveResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Circulation rule violated"
// @Router /books/{bookID}/reserve [post]
// @Security BearerAuth
func (h *CirculationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	actor, bookID, borrowerID, err := bookAndBorrower(r)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.Reserve(r.Context(), actor, bookID, borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewReserveResponse(res))
}

// QueuePosition
//
// @Summary Queue position
// @Tags Circulation
// @Produce json
// @Param bookID path int true "Book ID"
// @Param borrowerId query int false "Borrower to act for (librarians)"
// @Success 200 {object} dto.QueuePositionResponse
// @Failure 404 {object} dto.ErrorResponse "No pending reservation"
// @Router /books/{bookID}/queue-position [get]
// @Security BearerAuth
func (h *CirculationHandler) QueuePosition(w http.ResponseWriter, r *http.Request) {
	actor, bookID, borrowerID, err := bookAndBorrower(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if !actor.Librarian && actor.BorrowerID != borrowerID {
		respondError(w, fmt.Errorf("%w: borrower %d cannot view the queue position of borrower %d", apperrors.ErrForbidden, actor.BorrowerID, borrowerID))
		return
	}
	pos, err := h.service.QueuePosition(r.Context(), bookID, borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.QueuePositionResponse{BookID: bookID, BorrowerID: borrowerID, Position: pos})
}

// ListLoans returns the borrower's loans after flagging overdue ones.
//
// @Summary List loans
// @Tags Circulation
// @Produce json
// @Param borrowerId query int false "Borrower to act for (librarians)"
// @Success 200 {array} dto.LoanResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /loans [get]
// @Security BearerAuth
func (h *CirculationHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	borrowerID, err := targetBorrower(r, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	loans, err := h.service.ListLoans(r.Context(), actor, borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanListResponse(loans))
}

// Return checks a loan back in and assesses any late fine.
//
// @Summary Return a loan
// @Tags Circulation
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.ReturnResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Loan not found or not checked out"
// @Router /loans/{loanID}/return [post]
// @Security BearerAuth
func (h *CirculationHandler) Return(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.Return(r.Context(), actor, loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewReturnResponse(res))
}

// Renew extends a loan by one loan period.
//
// @Summary Renew a loan
// @Description Rejections carry a code: MAX_RENEWALS, OVERDUE or RESERVED_BY_OTHERS.
// @Tags Circulation
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Circulation rule violated"
// @Router /loans/{loanID}/renew [post]
// @Security BearerAuth
func (h *CirculationHandler) Renew(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	l, err := h.service.Renew(r.Context(), actor, loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l))
}

// ListReservations returns the borrower's reservations after expiring lapsed ones.
//
// @Summary List reservations
// @Tags Circulation
// @Produce json
// @Param borrowerId query int false "Borrower to act for (librarians)"
// @Success 200 {array} dto.ReservationResponse
// @Router /reservations [get]
// @Security BearerAuth
func (h *CirculationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	borrowerID, err := targetBorrower(r, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	rs, err := h.service.ListReservations(r.Context(), actor, borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewReservationListResponse(rs))
}

// CancelReservation
//
// @Summary Cancel a reservation
// @Tags Circulation
// @Produce json
// @Param reservationID path int true "Reservation ID"
// @Success 200 {object} dto.ReservationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Reservation already closed"
// @Router /reservations/{reservationID}/cancel [post]
// @Security BearerAuth
func (h *CirculationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	reservationID, err := getIDFromURL(r, "reservationID")
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.CancelReservation(r.Context(), actor, reservationID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewReservationResponse(res))
}
