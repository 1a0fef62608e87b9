package handler

import (
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/circulation"
	"log/slog"
	"net/http"
	"strconv"
)

type BorrowerHandler struct {
	borrowers   borrower.Service
	circulation circulation.Service
	logger      *slog.Logger
}

func NewBorrowerHandler(b borrower.Service, c circulation.Service, l *slog.Logger) *BorrowerHandler {
	return &BorrowerHandler{
		borrowers:   b,
		circulation: c,
		logger:      l.With("component", "BorrowerHandler"),
	}
}

// Register creates a borrower account.
//
// @Summary Register a borrower
// @Tags Borrowers
// @Accept json
// @Produce json
// @Param request body dto.RegisterBorrowerRequest true "Borrower details"
// @Success 201 {object} dto.BorrowerResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Email already registered"
// @Router /borrowers [post]
func (h *BorrowerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterBorrowerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	b, err := h.borrowers.Register(r.Context(), req.Name, req.Email, req.Password, req.Phone, req.Address)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewBorrowerResponse(b))
}

// Me returns the caller's profile and circulation summary. Reading it brings
// overdue flags and reservation expiry up to date.
//
// @Summary Current borrower summary
// @Tags Borrowers
// @Produce json
// @Success 200 {object} dto.ProfileResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /borrowers/me [get]
// @Security BearerAuth
func (h *BorrowerHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	b, err := h.borrowers.GetBorrower(r.Context(), actor.BorrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	summary, err := h.circulation.Summary(r.Context(), actor, actor.BorrowerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.ProfileResponse{
		Borrower: dto.NewBorrowerResponse(b),
		Summary:  dto.NewSummaryResponse(summary),
	})
}

// UpdateNotificationPreference sets how the caller is told about ready holds.
//
// @Summary Set notification preference
// @Tags Borrowers
// @Accept json
// @Produce json
// @Param request body dto.NotificationPreferenceRequest true "email, sms or both"
// @Success 200 {object} dto.BorrowerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /borrowers/me/notification-preference [put]
// @Security BearerAuth
func (h *BorrowerHandler) UpdateNotificationPreference(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.NotificationPreferenceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	b, err := h.borrowers.UpdateNotificationPreference(r.Context(), actor.BorrowerID, req.Preference)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBorrowerResponse(b))
}

// List returns all borrowers. Librarians only.
//
// @Summary List borrowers
// @Tags Borrowers
// @Produce json
// @Param activeOnly query bool false "Only active borrowers"
// @Success 200 {array} dto.BorrowerResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /borrowers [get]
// @Security BearerAuth
func (h *BorrowerHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := requireLibrarian(r); err != nil {
		respondError(w, err)
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("activeOnly"))
	borrowers, err := h.borrowers.ListBorrowers(r.Context(), activeOnly)
	if err != nil {
		respondError(w, err)
		return
	}
	resp := make([]dto.BorrowerResponse, len(borrowers))
	for i, b := range borrowers {
		resp[i] = dto.NewBorrowerResponse(b)
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateLoanLimit changes a borrower's personal loan limit. Librarians only.
//
// @Summary Set loan limit
// @Tags Borrowers
// @Accept json
// @Produce json
// @Param borrowerID path int true "Borrower ID"
// @Param request body dto.UpdateLoanLimitRequest true "Limit between 1 and 10"
// @Success 200 {object} dto.BorrowerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /borrowers/{borrowerID}/loan-limit [put]
// @Security BearerAuth
func (h *BorrowerHandler) UpdateLoanLimit(w http.ResponseWriter, r *http.Request) {
	if _, err := requireLibrarian(r); err != nil {
		respondError(w, err)
		return
	}
	borrowerID, err := getIDFromURL(r, "borrowerID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.UpdateLoanLimitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	b, err := h.borrowers.UpdateLoanLimit(r.Context(), borrowerID, req.LoanLimit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBorrowerResponse(b))
}

// Deactivate blocks a borrower from borrowing and reserving. Librarians only.
//
// @Summary Deactivate borrower
// @Tags Borrowers
// @Param borrowerID path int true "Borrower ID"
// @Success 204 "Borrower deactivated"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /borrowers/{borrowerID} [delete]
// @Security BearerAuth
func (h *BorrowerHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Reactivate restores a deactivated borrower. Librarians only.
//
// @Summary Reactivate borrower
// @Tags Borrowers
// @Param borrowerID path int true "Borrower ID"
// @Success 204 "Borrower reactivated"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /borrowers/{borrowerID}/reactivate [put]
// @Security BearerAuth
func (h *BorrowerHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *BorrowerHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	if _, err := requireLibrarian(r); err != nil {
		respondError(w, err)
		return
	}
	borrowerID, err := getIDFromURL(r, "borrowerID")
	if err != nil {
		respondError(w, err)
		return
	}
	if active {
		err = h.borrowers.Reactivate(r.Context(), borrowerID)
	} else {
		err = h.borrowers.Deactivate(r.Context(), borrowerID)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
