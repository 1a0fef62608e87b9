package borrower

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (_m *MockRepository) Save(ctx context.Context, borrower *Borrower) error {
	ret := _m.Called(ctx, borrower)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *Borrower) error); ok {
		r0 = rf(ctx, borrower)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

func (_m *MockRepository) FindByID(ctx context.Context, borrowerID int64) (*Borrower, error) {
	ret := _m.Called(ctx, borrowerID)

	var r0 *Borrower
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Borrower)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindByEmail(ctx context.Context, email string) (*Borrower, error) {
	ret := _m.Called(ctx, email)

	var r0 *Borrower
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Borrower)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindAll(ctx context.Context, activeOnly bool) ([]*Borrower, error) {
	ret := _m.Called(ctx, activeOnly)

	var r0 []*Borrower
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Borrower)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) GetForUpdateInTx(ctx context.Context, tx pgx.Tx, borrowerID int64) (*Borrower, error) {
	ret := _m.Called(ctx, tx, borrowerID)

	var r0 *Borrower
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Borrower)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) SetActiveStatus(ctx context.Context, borrowerID int64, isActive bool) error {
	ret := _m.Called(ctx, borrowerID, isActive)
	return ret.Error(0)
}
