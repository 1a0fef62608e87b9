package catalog

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"strings"
)

const DefaultPageSize = 12

type Service interface {
	AddBook(ctx context.Context, book *Book, authorIDs []int64) (*Book, error)
	GetBook(ctx context.Context, bookID int64) (*Book, error)
	Search(ctx context.Context, filter SearchFilter) ([]Book, int, error)
	AddCategory(ctx context.Context, name, description string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	AddAuthor(ctx context.Context, author *Author) (*Author, error)
	ListAuthors(ctx context.Context) ([]Author, error)
}

type service struct {
	repo     Repository
	pageSize int
	logger   *slog.Logger
}

var _ Service = (*service)(nil)

func NewService(repo Repository, pageSize int, logger *slog.Logger) Service {
	if repo == nil {
		panic("catalog repository cannot be nil")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &service{
		repo:     repo,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "catalogService")),
	}
}

func (s *service) AddBook(ctx context.Context, book *Book, authorIDs []int64) (*Book, error) {
	if book == nil {
		return nil, fmt.Errorf("%w: book cannot be nil", apperrors.ErrInvalidArgument)
	}
	book.Title = strings.TrimSpace(book.Title)
	book.ISBN = strings.TrimSpace(book.ISBN)
	book.AvailableCopies = book.TotalCopies
	if err := book.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Book validation failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.CreateBook(ctx, book, authorIDs); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to create book", slog.String("isbn", book.ISBN), slog.Any("error", err))
		return nil, fmt.Errorf("failed to save book: %w", err)
	}
	s.logger.InfoContext(ctx, "Book added to catalog", slog.Int64("bookID", book.ID), slog.Int("copies", book.TotalCopies))
	return book, nil
}

func (s *service) GetBook(ctx context.Context, bookID int64) (*Book, error) {
	book, err := s.repo.GetBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: book %d", apperrors.ErrNotFound, bookID)
		}
		return nil, err
	}
	return book, nil
}

func (s *service) Search(ctx context.Context, filter SearchFilter) ([]Book, int, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = s.pageSize
	}
	books, total, err := s.repo.SearchBooks(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Catalog search failed", slog.String("query", filter.Query), slog.Any("error", err))
		return nil, 0, err
	}
	return books, total, nil
}

func (s *service) AddCategory(ctx context.Context, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "category name cannot be empty")
	}
	c := &Category{Name: name, Description: strings.TrimSpace(description), Active: true}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *service) AddAuthor(ctx context.Context, author *Author) (*Author, error) {
	if author == nil || strings.TrimSpace(author.Name) == "" {
		return nil, apperrors.NewValidationError("name", "author name cannot be empty")
	}
	author.Name = strings.TrimSpace(author.Name)
	if author.BirthDate != nil && author.DeathDate != nil && author.DeathDate.Before(*author.BirthDate) {
		return nil, apperrors.NewValidationError("deathDate", "death date precedes birth date")
	}
	if err := s.repo.CreateAuthor(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

func (s *service) ListAuthors(ctx context.Context) ([]Author, error) {
	return s.repo.ListAuthors(ctx)
}
