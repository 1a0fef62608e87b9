package handler

import (
	"context"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/catalog"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/domain/fine"
	"library-engine/internal/domain/loan"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/domain/review"

	"github.com/stretchr/testify/mock"
)

type MockBorrowerService struct {
	mock.Mock
}

func (m *MockBorrowerService) Register(ctx context.Context, name, email, password, phone, address string) (*borrower.Borrower, error) {
	args := m.Called(ctx, name, email, password, phone, address)
	if b, ok := args.Get(0).(*borrower.Borrower); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) GetBorrower(ctx context.Context, borrowerID int64) (*borrower.Borrower, error) {
	args := m.Called(ctx, borrowerID)
	if b, ok := args.Get(0).(*borrower.Borrower); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) Authenticate(ctx context.Context, email, password string) (*borrower.Borrower, error) {
	args := m.Called(ctx, email, password)
	if b, ok := args.Get(0).(*borrower.Borrower); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) ListBorrowers(ctx context.Context, activeOnly bool) ([]*borrower.Borrower, error) {
	args := m.Called(ctx, activeOnly)
	if bs, ok := args.Get(0).([]*borrower.Borrower); ok {
		return bs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) UpdateLoanLimit(ctx context.Context, borrowerID int64, limit int) (*borrower.Borrower, error) {
	args := m.Called(ctx, borrowerID, limit)
	if b, ok := args.Get(0).(*borrower.Borrower); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) UpdateNotificationPreference(ctx context.Context, borrowerID int64, pref string) (*borrower.Borrower, error) {
	args := m.Called(ctx, borrowerID, pref)
	if b, ok := args.Get(0).(*borrower.Borrower); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) Deactivate(ctx context.Context, borrowerID int64) error {
	return m.Called(ctx, borrowerID).Error(0)
}

func (m *MockBorrowerService) Reactivate(ctx context.Context, borrowerID int64) error {
	return m.Called(ctx, borrowerID).Error(0)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) AddBook(ctx context.Context, book *catalog.Book, authorIDs []int64) (*catalog.Book, error) {
	args := m.Called(ctx, book, authorIDs)
	if b, ok := args.Get(0).(*catalog.Book); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) GetBook(ctx context.Context, bookID int64) (*catalog.Book, error) {
	args := m.Called(ctx, bookID)
	if b, ok := args.Get(0).(*catalog.Book); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) Search(ctx context.Context, filter catalog.SearchFilter) ([]catalog.Book, int, error) {
	args := m.Called(ctx, filter)
	books, _ := args.Get(0).([]catalog.Book)
	return books, args.Int(1), args.Error(2)
}

func (m *MockCatalogService) AddCategory(ctx context.Context, name, description string) (*catalog.Category, error) {
	args := m.Called(ctx, name, description)
	if c, ok := args.Get(0).(*catalog.Category); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]catalog.Category)
	return cs, args.Error(1)
}

func (m *MockCatalogService) AddAuthor(ctx context.Context, author *catalog.Author) (*catalog.Author, error) {
	args := m.Called(ctx, author)
	if a, ok := args.Get(0).(*catalog.Author); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	args := m.Called(ctx)
	as, _ := args.Get(0).([]catalog.Author)
	return as, args.Error(1)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Add(ctx context.Context, bookID, borrowerID int64, rating int, title, comment string) (*review.Review, error) {
	args := m.Called(ctx, bookID, borrowerID, rating, title, comment)
	if r, ok := args.Get(0).(*review.Review); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReviewService) Edit(ctx context.Context, reviewID, borrowerID int64, rating int, title, comment string) (*review.Review, error) {
	args := m.Called(ctx, reviewID, borrowerID, rating, title, comment)
	if r, ok := args.Get(0).(*review.Review); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReviewService) Delete(ctx context.Context, reviewID, borrowerID int64) error {
	return m.Called(ctx, reviewID, borrowerID).Error(0)
}

func (m *MockReviewService) SetApproval(ctx context.Context, reviewID int64, approved bool) error {
	return m.Called(ctx, reviewID, approved).Error(0)
}

func (m *MockReviewService) ListForBook(ctx context.Context, bookID int64) ([]*review.Review, error) {
	args := m.Called(ctx, bookID)
	rs, _ := args.Get(0).([]*review.Review)
	return rs, args.Error(1)
}

func (m *MockReviewService) RatingForBook(ctx context.Context, bookID int64) (review.Rating, error) {
	args := m.Called(ctx, bookID)
	r, _ := args.Get(0).(review.Rating)
	return r, args.Error(1)
}

type MockCirculationService struct {
	mock.Mock
}

func (m *MockCirculationService) Borrow(ctx context.Context, actor circulation.Actor, bookID, borrowerID int64) (*circulation.BorrowResult, error) {
	args := m.Called(ctx, actor, bookID, borrowerID)
	if r, ok := args.Get(0).(*circulation.BorrowResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) Return(ctx context.Context, actor circulation.Actor, loanID int64) (*circulation.ReturnResult, error) {
	args := m.Called(ctx, actor, loanID)
	if r, ok := args.Get(0).(*circulation.ReturnResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) Renew(ctx context.Context, actor circulation.Actor, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, actor, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) SweepOverdue(ctx context.Context, borrowerID int64) (circulation.OverdueSweepResult, error) {
	args := m.Called(ctx, borrowerID)
	r, _ := args.Get(0).(circulation.OverdueSweepResult)
	return r, args.Error(1)
}

func (m *MockCirculationService) ListLoans(ctx context.Context, actor circulation.Actor, borrowerID int64) ([]*loan.Loan, error) {
	args := m.Called(ctx, actor, borrowerID)
	ls, _ := args.Get(0).([]*loan.Loan)
	return ls, args.Error(1)
}

func (m *MockCirculationService) Reserve(ctx context.Context, actor circulation.Actor, bookID, borrowerID int64) (*circulation.ReserveResult, error) {
	args := m.Called(ctx, actor, bookID, borrowerID)
	if r, ok := args.Get(0).(*circulation.ReserveResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) CancelReservation(ctx context.Context, actor circulation.Actor, reservationID int64) (*reservation.Reservation, error) {
	args := m.Called(ctx, actor, reservationID)
	if r, ok := args.Get(0).(*reservation.Reservation); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) SetTotalCopies(ctx context.Context, actor circulation.Actor, bookID int64, total int) (*catalog.Book, error) {
	args := m.Called(ctx, actor, bookID, total)
	if b, ok := args.Get(0).(*catalog.Book); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) SweepExpired(ctx context.Context, borrowerID int64) (int, error) {
	args := m.Called(ctx, borrowerID)
	return args.Int(0), args.Error(1)
}

func (m *MockCirculationService) ExpireReservations(ctx context.Context) (circulation.ExpirySweepResult, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(circulation.ExpirySweepResult)
	return r, args.Error(1)
}

func (m *MockCirculationService) ListReservations(ctx context.Context, actor circulation.Actor, borrowerID int64) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, actor, borrowerID)
	rs, _ := args.Get(0).([]*reservation.Reservation)
	return rs, args.Error(1)
}

func (m *MockCirculationService) Availability(ctx context.Context, bookID int64) (catalog.Availability, error) {
	args := m.Called(ctx, bookID)
	a, _ := args.Get(0).(catalog.Availability)
	return a, args.Error(1)
}

func (m *MockCirculationService) QueuePosition(ctx context.Context, bookID, borrowerID int64) (int, error) {
	args := m.Called(ctx, bookID, borrowerID)
	return args.Int(0), args.Error(1)
}

func (m *MockCirculationService) ListFines(ctx context.Context, actor circulation.Actor, borrowerID int64) (*circulation.FineStatement, error) {
	args := m.Called(ctx, actor, borrowerID)
	if s, ok := args.Get(0).(*circulation.FineStatement); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) PayFine(ctx context.Context, actor circulation.Actor, fineID int64, method string) (*fine.Fine, error) {
	args := m.Called(ctx, actor, fineID, method)
	if f, ok := args.Get(0).(*fine.Fine); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) WaiveFine(ctx context.Context, actor circulation.Actor, fineID int64, note string) (*fine.Fine, error) {
	args := m.Called(ctx, actor, fineID, note)
	if f, ok := args.Get(0).(*fine.Fine); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) DisputeFine(ctx context.Context, actor circulation.Actor, fineID int64, note string) (*fine.Fine, error) {
	args := m.Called(ctx, actor, fineID, note)
	if f, ok := args.Get(0).(*fine.Fine); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCirculationService) Summary(ctx context.Context, actor circulation.Actor, borrowerID int64) (*circulation.Summary, error) {
	args := m.Called(ctx, actor, borrowerID)
	if s, ok := args.Get(0).(*circulation.Summary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	_ borrower.Service    = (*MockBorrowerService)(nil)
	_ catalog.Service     = (*MockCatalogService)(nil)
	_ review.Service      = (*MockReviewService)(nil)
	_ circulation.Service = (*MockCirculationService)(nil)
)
