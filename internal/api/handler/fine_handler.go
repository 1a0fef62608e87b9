package handler

import (
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/domain/fine"
	"log/slog"
	"net/http"
)

type FineHandler struct {
	service circulation.Service
	logger  *slog.Logger
}

func NewFineHandler(s circulation.Service, l *slog.Logger) *FineHandler {
	return &FineHandler{
		service: s,
		logger:  l.With("component", "FineHandler"),
	}
}

// List returns the borrower's fines and the pending total.
//
// @Summary List fines
// @Tags Fines
// @Produce json
// @Param borrowerId query int false "Borrower to act for (librarians)"
// @Success 200 {object} dto.FineStatementResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /fines [get]
// @Security BearerAuth
func (h *FineHandler) List(w http.ResponseWriter, r *http.Request) {
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
	st, err := h.service.ListFines(r.Context(), actor, borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewFineStatementResponse(st))
}

// Pay settles a pending fine.
//
// @Summary Pay a fine
// @Tags Fines
// @Accept json
// @Produce json
// @Param fineID path int true "Fine ID"
// @Param request body dto.PayFineRequest true "Payment method"
// @Success 200 {object} dto.FineResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Fine already settled"
// @Router /fines/{fineID}/pay [post]
// @Security BearerAuth
func (h *FineHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req dto.PayFineRequest
	h.settle(w, r, &req, func(actor circulation.Actor, fineID int64) (*fine.Fine, error) {
		return h.service.PayFine(r.Context(), actor, fineID, req.PaymentMethod)
	})
}

// Waive cancels a fine. Librarians only.
//
// @Summary Waive a fine
// @Tags Fines
// @Accept json
// @Produce json
// @Param fineID path int true "Fine ID"
// @Param request body dto.FineNoteRequest true "Reason"
// @Success 200 {object} dto.FineResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /fines/{fineID}/waive [post]
// @Security BearerAuth
func (h *FineHandler) Waive(w http.ResponseWriter, r *http.Request) {
	var req dto.FineNoteRequest
	h.settle(w, r, &req, func(actor circulation.Actor, fineID int64) (*fine.Fine, error) {
		return h.service.WaiveFine(r.Context(), actor, fineID, req.Note)
	})
}

// Dispute parks a fine for review. Librarians only.
//
// @Summary Dispute a fine
// @Tags Fines
// @Accept json
// @Produce json
// @Param fineID path int true "Fine ID"
// @Param request body dto.FineNoteRequest true "Reason"
// @Success 200 {object} dto.FineResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /fines/{fineID}/dispute [post]
// @Security BearerAuth
func (h *FineHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	var req dto.FineNoteRequest
	h.settle(w, r, &req, func(actor circulation.Actor, fineID int64) (*fine.Fine, error) {
		return h.service.DisputeFine(r.Context(), actor, fineID, req.Note)
	})
}

func (h *FineHandler) settle(w http.ResponseWriter, r *http.Request, req validatable, apply func(circulation.Actor, int64) (*fine.Fine, error)) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	fineID, err := getIDFromURL(r, "fineID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := decodeAndValidate(r, req); err != nil {
		respondError(w, err)
		return
	}
	f, err := apply(actor, fineID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewFineResponse(f))
}
