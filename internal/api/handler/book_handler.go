package handler

import (
	"fmt"
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/domain/catalog"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/domain/review"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strconv"
)

type BookHandler struct {
	catalog     catalog.Service
	circulation circulation.Service
	reviews     review.Service
	pageSize    int
	logger      *slog.Logger
}

func NewBookHandler(cat catalog.Service, circ circulation.Service, reviews review.Service, pageSize int, l *slog.Logger) *BookHandler {
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	return &BookHandler{
		catalog:     cat,
		circulation: circ,
		reviews:     reviews,
		pageSize:    pageSize,
		logger:      l.With("component", "BookHandler"),
	}
}

func parseSearchFilter(r *http.Request, defaultPageSize int) (catalog.SearchFilter, error) {
	q := r.URL.Query()
	filter := catalog.SearchFilter{
		Query:    q.Get("query"),
		Page:     1,
		PageSize: defaultPageSize,
	}
	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("%w: category must be a positive integer", apperrors.ErrInvalidArgument)
		}
		filter.CategoryID = &id
	}
	if raw := q.Get("availableOnly"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: availableOnly must be true or false", apperrors.ErrInvalidArgument)
		}
		filter.AvailableOnly = v
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, fmt.Errorf("%w: page must be a positive integer", apperrors.ErrInvalidArgument)
		}
		filter.Page = page
	}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > 100 {
			return filter, fmt.Errorf("%w: pageSize must be between 1 and 100", apperrors.ErrInvalidArgument)
		}
		filter.PageSize = size
	}
	return filter, nil
}

// Search lists books matching a free-text query.
//
// @Summary Search the catalog
// @Description Matches title, ISBN, description, publisher and author names. Results are ordered by title.
// @Tags Books
// @Produce json
// @Param query query string false "Free-text query"
// @Param category query int false "Category ID"
// @Param availableOnly query bool false "Only books with a copy on the shelf"
// @Param page query int false "Page number, from 1"
// @Param pageSize query int false "Page size, up to 100"
// @Success 200 {object} dto.BookSearchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /books [get]
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearchFilter(r, h.pageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	books, total, err := h.catalog.Search(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBookSearchResponse(books, total, filter))
}

// Create adds a title to the catalog. Librarians only.
//
// @Summary Add a book
// @Tags Books
// @Accept json
// @Produce json
// @Param request body dto.CreateBookRequest true "Book details"
// @Success 201 {object} dto.BookResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "ISBN already catalogued"
// @Router /books [post]
// @Security BearerAuth
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := requireLibrarian(r); err != nil {
		respondError(w, err)
		return
	}
	var req dto.CreateBookRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	book, err := req.ToBook()
	if err != nil {
		respondError(w, err)
		return
	}
	created, err := h.catalog.AddBook(r.Context(), book, req.AuthorIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewBookResponse(created))
}

// Get returns a book with its authors and average rating.
//
// @Summary Book detail
// @Tags Books
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 200 {object} dto.BookResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /books/{bookID} [get]
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	bookID, err := getIDFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	book, err := h.catalog.GetBook(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}
	resp := dto.NewBookResponse(book)
	rating, err := h.reviews.RatingForBook(r.Context(), bookID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to load rating, returning book without it", "bookID", bookID, "error", err)
	} else {
		rr := dto.NewRatingResponse(rating)
		resp.Rating = &rr
	}
	respondJSON(w, http.StatusOK, resp)
}

// SetCopies changes how many copies the library owns and promotes waiting
// reservations onto any new free copies. Librarians only.
//
// @Summary Change total copies
// @Tags Books
// @Accept json
// @Produce json
// @Param bookID path int true "Book ID"
// @Param request body dto.SetCopiesRequest true "New total"
// @Success 200 {object} dto.BookResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "More copies on loan than the new total"
// @Router /books/{bookID}/copies [put]
// @Security BearerAuth
func (h *BookHandler) SetCopies(w http.ResponseWriter, r *http.Request) {
	actor, err := requireLibrarian(r)
	if err != nil {
		respondError(w, err)
		return
	}
	bookID, err := getIDFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.SetCopiesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	book, err := h.circulation.SetTotalCopies(r.Context(), actor, bookID, req.TotalCopies)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewBookResponse(book))
}

// Availability reports shelf, held and free copies.
//
// @Summary Book availability
// @Tags Books
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 200 {object} dto.AvailabilityResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /books/{bookID}/availability [get]
func (h *BookHandler) Availability(w http.ResponseWriter, r *http.Request) {
	bookID, err := getIDFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	a, err := h.circulation.Availability(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewAvailabilityResponse(a))
}
