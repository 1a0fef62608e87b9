package handler

import (
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/domain/catalog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogHandler_ListCategories(t *testing.T) {
	svc := new(MockCatalogService)
	svc.On("ListCategories", mock.Anything).Return([]catalog.Category{{ID: 1, Name: "Fiction", Active: true}}, nil)
	h := NewCatalogHandler(svc, discardLogger())

	rr := httptest.NewRecorder()
	h.ListCategories(rr, newRequest(t, http.MethodGet, "/categories", nil, nil, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp []dto.CategoryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Fiction", resp[0].Name)
}

func TestCatalogHandler_CreateAuthor(t *testing.T) {
	t.Run("librarian", func(t *testing.T) {
		svc := new(MockCatalogService)
		svc.On("AddAuthor", mock.Anything, mock.MatchedBy(func(a *catalog.Author) bool {
			return a.Name == "Ursula K. Le Guin" && a.BirthDate != nil && a.BirthDate.Year() == 1929
		})).Return(&catalog.Author{ID: 5, Name: "Ursula K. Le Guin"}, nil)
		h := NewCatalogHandler(svc, discardLogger())

		rr := httptest.NewRecorder()
		h.CreateAuthor(rr, newRequest(t, http.MethodPost, "/authors", dto.CreateAuthorRequest{Name: "Ursula K. Le Guin", BirthDate: "1929-10-21"}, librarian(1), nil))

		require.Equal(t, http.StatusCreated, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("bad birth date", func(t *testing.T) {
		h := NewCatalogHandler(new(MockCatalogService), discardLogger())

		rr := httptest.NewRecorder()
		h.CreateAuthor(rr, newRequest(t, http.MethodPost, "/authors", dto.CreateAuthorRequest{Name: "X", BirthDate: "21/10/1929"}, librarian(1), nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "birthDate", decodeError(t, rr).Field)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		h := NewCatalogHandler(new(MockCatalogService), discardLogger())

		rr := httptest.NewRecorder()
		h.CreateCategory(rr, newRequest(t, http.MethodPost, "/categories", dto.CreateCategoryRequest{Name: "Poetry"}, member(2), nil))

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
