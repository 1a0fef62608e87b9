package handler

import (
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/domain/catalog"
	"log/slog"
	"net/http"
)

// CatalogHandler serves categories and authors.
type CatalogHandler struct {
	catalog catalog.Service
	logger  *slog.Logger
}

func NewCatalogHandler(s catalog.Service, l *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: s,
		logger:  l.With("component", "CatalogHandler"),
	}
}

// ListCategories
//
// @Summary List categories
// @Tags Catalog
// @Produce json
// @Success 200 {array} dto.CategoryResponse
// @Router /categories [get]
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	resp := make([]dto.CategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = dto.NewCategoryResponse(c)
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateCategory
//
// @Summary Add a category
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body dto.CreateCategoryRequest true "Category"
// @Success 201 {object} dto.CategoryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /categories [post]
// @Security BearerAuth
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if _, err := requireLibrarian(r); err != nil {
		respondError(w, err)
		return
	}
	var req dto.CreateCategoryRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	c, err := h.catalog.AddCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewCategoryResponse(*c))
}

// ListAuthors
//
// @Summary List authors
// @Tags Catalog
// @Produce json
// @Success 200 {array} dto.AuthorResponse
// @Router /authors [get]
func (h *CatalogHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.catalog.ListAuthors(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	resp := make([]dto.AuthorResponse, len(authors))
	for i, a := range authors {
		resp[i] = dto.NewAuthorResponse(a)
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateAuthor
//
// @Summary Add an author
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body dto.CreateAuthorRequest true "Author"
// @Success 201 {object} dto.AuthorResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /authors [post]
// @Security BearerAuth
func (h *CatalogHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	if _, err := requireLibrarian(r); err != nil {
		respondError(w, err)
		return
	}
	var req dto.CreateAuthorRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}
	author, err := req.ToAuthor()
	if err != nil {
		respondError(w, err)
		return
	}
	created, err := h.catalog.AddAuthor(r.Context(), author)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewAuthorResponse(*created))
}
