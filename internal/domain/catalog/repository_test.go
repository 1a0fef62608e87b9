package catalog

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (_m *MockRepository) CreateBook(ctx context.Context, book *Book, authorIDs []int64) error {
	ret := _m.Called(ctx, book, authorIDs)
	return ret.Error(0)
}

func (_m *MockRepository) GetBookByID(ctx context.Context, bookID int64) (*Book, error) {
	ret := _m.Called(ctx, bookID)

	var r0 *Book
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Book)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) SearchBooks(ctx context.Context, filter SearchFilter) ([]Book, int, error) {
	ret := _m.Called(ctx, filter)

	var r0 []Book
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Book)
	}
	return r0, ret.Int(1), ret.Error(2)
}

func (_m *MockRepository) CreateCategory(ctx context.Context, category *Category) error {
	ret := _m.Called(ctx, category)
	return ret.Error(0)
}

func (_m *MockRepository) ListCategories(ctx context.Context) ([]Category, error) {
	ret := _m.Called(ctx)

	var r0 []Category
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Category)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) CreateAuthor(ctx context.Context, author *Author) error {
	ret := _m.Called(ctx, author)
	return ret.Error(0)
}

func (_m *MockRepository) ListAuthors(ctx context.Context) ([]Author, error) {
	ret := _m.Called(ctx)

	var r0 []Author
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Author)
	}
	return r0, ret.Error(1)
}

