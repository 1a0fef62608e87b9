package handler

import (
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/domain/review"
	"log/slog"
	"net/http"
)

type ReviewHandler struct {
	service review.Service
	logger  *slog.Logger
}

func NewReviewHandler(s review.Service, l *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: s,
		logger:  l.With("component", "ReviewHandler"),
	}
}

// ListForBook returns approved reviews and the average rating.
//
// @Summary List reviews of a book
// @Tags Reviews
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 200 {object} dto.ReviewListResponse
// @Router /books/{bookID}/reviews [get]
func (h *ReviewHandler) ListForBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := getIDFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	reviews, err := h.service.ListForBook(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}
	rating, err := h.service.RatingForBook(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewReviewListResponse(reviews, rating))
}

// Add reviews a book the caller has borrowed.
//
// @Summary Review a book
// @Tags Reviews
// @Accept json
// @Produce json
// @Param bookID path int true "Book ID"
// @Param request body dto.ReviewRequest true "Rating 1 to 5"
// @Success 201 {object} dto.ReviewResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Book never borrowed"
// @Failure 409 {object} dto.ErrorResponse "Already reviewed"
// @Router /books/{bookID}/reviews [post]
// @Security BearerAuth
func (h *ReviewHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	bookID, err := getIDFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.ReviewRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	rv, err := h.service.Add(r.Context(), bookID, actor.BorrowerID, req.Rating, req.Title, req.Comment)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewReviewResponse(rv))
}

// Edit
//
// @Summary Edit own review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param reviewID path int true "Review ID"
// @Param request body dto.ReviewRequest true "Rating 1 to 5"
// @Success 200 {object} dto.ReviewResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /reviews/{reviewID} [put]
// @Security BearerAuth
func (h *ReviewHandler) Edit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	reviewID, err := getIDFromURL(r, "reviewID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.ReviewRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	rv, err := h.service.Edit(r.Context(), reviewID, actor.BorrowerID, req.Rating, req.Title, req.Comment)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewReviewResponse(rv))
}

// Delete
//
// @Summary Delete own review
// @Tags Reviews
// @Param reviewID path int true "Review ID"
// @Success 204 "Review deleted"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /reviews/{reviewID} [delete]
// @Security BearerAuth
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondError(w, err)
		return
	}
	reviewID, err := getIDFromURL(r, "reviewID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), reviewID, actor.BorrowerID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetApproval shows or hides a review. Librarians only.
//
// @Summary Moderate a review
// @Tags Reviews
// @Accept json
// @Param reviewID path int true "Review ID"
// @Param request body dto.ReviewApprovalRequest true "Approval flag"
// @Success 204 "Approval updated"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /reviews/{reviewID}/approval [put]
// @Security BearerAuth
func (h *ReviewHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	if _, err := requireLibrarian(r); err != nil {
		respondError(w, err)
		return
	}
	reviewID, err := getIDFromURL(r, "reviewID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.ReviewApprovalRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.SetApproval(r.Context(), reviewID, *req.Approved); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
