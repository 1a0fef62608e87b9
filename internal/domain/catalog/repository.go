package catalog

import (
	"context"
)

type SearchFilter struct {
	Query         string
	CategoryID    *int64
	AvailableOnly bool
	Page          int
	PageSize      int
}

func (f SearchFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

type Repository interface {
	CreateBook(ctx context.Context, book *Book, authorIDs []int64) error

	GetBookByID(ctx context.Context, bookID int64) (*Book, error)

	SearchBooks(ctx context.Context, filter SearchFilter) ([]Book, int, error)

	CreateCategory(ctx context.Context, category *Category) error

	ListCategories(ctx context.Context) ([]Category, error)

	CreateAuthor(ctx context.Context, author *Author) error

	ListAuthors(ctx context.Context) ([]Author, error)
}
