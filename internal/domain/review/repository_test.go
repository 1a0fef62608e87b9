package review

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (_m *MockRepository) Create(ctx context.Context, r *Review) error {
	return _m.Called(ctx, r).Error(0)
}

func (_m *MockRepository) GetByID(ctx context.Context, reviewID int64) (*Review, error) {
	ret := _m.Called(ctx, reviewID)

	var r0 *Review
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Review)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) Update(ctx context.Context, r *Review) error {
	return _m.Called(ctx, r).Error(0)
}

func (_m *MockRepository) Delete(ctx context.Context, reviewID int64) error {
	return _m.Called(ctx, reviewID).Error(0)
}

func (_m *MockRepository) SetApproval(ctx context.Context, reviewID int64, approved bool) error {
	return _m.Called(ctx, reviewID, approved).Error(0)
}

func (_m *MockRepository) ListApprovedByBook(ctx context.Context, bookID int64) ([]*Review, error) {
	ret := _m.Called(ctx, bookID)

	var r0 []*Review
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Review)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) AverageRating(ctx context.Context, bookID int64) (Rating, error) {
	ret := _m.Called(ctx, bookID)
	return ret.Get(0).(Rating), ret.Error(1)
}

type MockLoanHistory struct {
	mock.Mock
}

func (_m *MockLoanHistory) HasBorrowed(ctx context.Context, bookID, borrowerID int64) (bool, error) {
	ret := _m.Called(ctx, bookID, borrowerID)
	return ret.Bool(0), ret.Error(1)
}
