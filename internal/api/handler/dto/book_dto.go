package dto

import (
	"library-engine/internal/domain/catalog"
	"library-engine/internal/domain/review"
	"library-engine/internal/pkg/apperrors"
	"time"

	"github.com/shopspring/decimal"
)

type CreateBookRequest struct {
	Title           string  `json:"title" validate:"required,max=255"`
	ISBN            string  `json:"isbn" validate:"required,len=13,numeric"`
	Description     string  `json:"description,omitempty"`
	Publisher       string  `json:"publisher,omitempty" validate:"omitempty,max=100"`
	Language        string  `json:"language,omitempty" validate:"omitempty,max=50"`
	Edition         string  `json:"edition,omitempty" validate:"omitempty,max=50"`
	Pages           int     `json:"pages,omitempty" validate:"gte=0"`
	PublicationDate string  `json:"publicationDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CategoryID      *int64  `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	Price           string  `json:"price,omitempty" validate:"omitempty,numeric"`
	TotalCopies     int     `json:"totalCopies" validate:"gte=1"`
	AuthorIDs       []int64 `json:"authorIds,omitempty" validate:"omitempty,dive,gt=0"`
}

func (r *CreateBookRequest) Validate() error {
	return validate.Validate(r)
}

// ToBook builds the domain book. Call Validate first.
func (r *CreateBookRequest) ToBook() (*catalog.Book, error) {
	b, err := catalog.NewBook(r.Title, r.ISBN, r.TotalCopies)
	if err != nil {
		return nil, err
	}
	b.Description = r.Description
	b.Publisher = r.Publisher
	if r.Language != "" {
		b.Language = r.Language
	}
	b.Edition = r.Edition
	b.Pages = r.Pages
	b.CategoryID = r.CategoryID
	if b.PublicationDate, err = parseDate(r.PublicationDate); err != nil {
		return nil, apperrors.NewValidationError("publicationDate", "must be a date in the format 2006-01-02")
	}
	if r.Price != "" {
		if b.Price, err = decimal.NewFromString(r.Price); err != nil || b.Price.IsNegative() {
			return nil, apperrors.NewValidationError("price", "must be a non-negative amount")
		}
	}
	return b, nil
}

type SetCopiesRequest struct {
	TotalCopies int `json:"totalCopies" validate:"gte=1"`
}

func (r *SetCopiesRequest) Validate() error {
	return validate.Validate(r)
}

type AuthorResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Bio         string  `json:"bio,omitempty"`
	Nationality string  `json:"nationality,omitempty"`
	BirthDate   *string `json:"birthDate,omitempty"`
	DeathDate   *string `json:"deathDate,omitempty"`
}

func NewAuthorResponse(a catalog.Author) AuthorResponse {
	return AuthorResponse{
		ID:          a.ID,
		Name:        a.Name,
		Bio:         a.Bio,
		Nationality: a.Nationality,
		BirthDate:   formatDate(a.BirthDate),
		DeathDate:   formatDate(a.DeathDate),
	}
}

type RatingResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func NewRatingResponse(r review.Rating) RatingResponse {
	return RatingResponse{Average: r.Average, Count: r.Count}
}

type BookResponse struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	ISBN            string           `json:"isbn"`
	Description     string           `json:"description,omitempty"`
	Publisher       string           `json:"publisher,omitempty"`
	Language        string           `json:"language,omitempty"`
	Edition         string           `json:"edition,omitempty"`
	Pages           int              `json:"pages,omitempty"`
	PublicationDate *string          `json:"publicationDate,omitempty"`
	CategoryID      *int64           `json:"categoryId,omitempty"`
	CategoryName    string           `json:"categoryName,omitempty"`
	Price           string           `json:"price"`
	TotalCopies     int              `json:"totalCopies"`
	AvailableCopies int              `json:"availableCopies"`
	Authors         []AuthorResponse `json:"authors"`
	Rating          *RatingResponse  `json:"rating,omitempty"`
	AddedAt         time.Time        `json:"addedAt"`
}

func NewBookResponse(b *catalog.Book) BookResponse {
	resp := BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		ISBN:            b.ISBN,
		Description:     b.Description,
		Publisher:       b.Publisher,
		Language:        b.Language,
		Edition:         b.Edition,
		Pages:           b.Pages,
		PublicationDate: formatDate(b.PublicationDate),
		CategoryID:      b.CategoryID,
		CategoryName:    b.CategoryName,
		Price:           formatMoney(b.Price),
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Authors:         make([]AuthorResponse, len(b.Authors)),
		AddedAt:         b.AddedAt,
	}
	for i, a := range b.Authors {
		resp.Authors[i] = NewAuthorResponse(a)
	}
	return resp
}

type BookSearchResponse struct {
	Books    []BookResponse `json:"books"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

func NewBookSearchResponse(books []catalog.Book, total int, filter catalog.SearchFilter) BookSearchResponse {
	resp := BookSearchResponse{
		Books:    make([]BookResponse, len(books)),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	for i := range books {
		resp.Books[i] = NewBookResponse(&books[i])
	}
	return resp
}

type AvailabilityResponse struct {
	BookID          int64 `json:"bookId"`
	TotalCopies     int   `json:"totalCopies"`
	AvailableCopies int   `json:"availableCopies"`
	HeldCopies      int   `json:"heldCopies"`
	FreeCopies      int   `json:"freeCopies"`
}

func NewAvailabilityResponse(a catalog.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		BookID:          a.BookID,
		TotalCopies:     a.TotalCopies,
		AvailableCopies: a.AvailableCopies,
		HeldCopies:      a.HeldCopies,
		FreeCopies:      a.Free(),
	}
}

type QueuePositionResponse struct {
	BookID     int64 `json:"bookId"`
	BorrowerID int64 `json:"borrowerId"`
	Position   int   `json:"position"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty"`
}

func (r *CreateCategoryRequest) Validate() error {
	return validate.Validate(r)
}

type CategoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

func NewCategoryResponse(c catalog.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description, Active: c.Active}
}

type CreateAuthorRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Bio         string `json:"bio,omitempty"`
	Nationality string `json:"nationality,omitempty" validate:"omitempty,max=100"`
	BirthDate   string `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DeathDate   string `json:"deathDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r *CreateAuthorRequest) Validate() error {
	return validate.Validate(r)
}

func (r *CreateAuthorRequest) ToAuthor() (*catalog.Author, error) {
	a := &catalog.Author{Name: r.Name, Bio: r.Bio, Nationality: r.Nationality}
	var err error
	if a.BirthDate, err = parseDate(r.BirthDate); err != nil {
		return nil, apperrors.NewValidationError("birthDate", "must be a date in the format 2006-01-02")
	}
	if a.DeathDate, err = parseDate(r.DeathDate); err != nil {
		return nil, apperrors.NewValidationError("deathDate", "must be a date in the format 2006-01-02")
	}
	return a, nil
}
