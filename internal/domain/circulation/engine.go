// Package circulation keeps shelf counts, loans, the reservation queue and
// fines consistent. Every mutating operation runs in one store transaction
// that re-reads and row-locks the state it decides on.
//
// Locks are always taken in the order loan, book, borrower, reservation.
package circulation

import (
	"context"
	"fmt"
	"library-engine/internal/config"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/catalog"
	"library-engine/internal/domain/fine"
	"library-engine/internal/domain/loan"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/event"
	"library-engine/internal/infrastructure/monitoring"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type TxManager interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

type BookStore interface {
	GetBookByID(ctx context.Context, bookID int64) (*catalog.Book, error)
	GetBookForUpdateInTx(ctx context.Context, tx pgx.Tx, bookID int64) (*catalog.Book, error)
	UpdateCopiesInTx(ctx context.Context, tx pgx.Tx, book *catalog.Book) error
}

type BorrowerStore interface {
	FindByID(ctx context.Context, borrowerID int64) (*borrower.Borrower, error)
	GetForUpdateInTx(ctx context.Context, tx pgx.Tx, borrowerID int64) (*borrower.Borrower, error)
}

type Stores struct {
	Tx           TxManager
	Books        BookStore
	Borrowers    BorrowerStore
	Loans        loan.Repository
	Reservations reservation.Repository
	Fines        fine.Repository
}

// Policy holds the library-wide circulation rules.
type Policy struct {
	LoanPeriod                time.Duration
	MaxRenewals               int
	HoldPeriod                time.Duration
	FinePerDay                decimal.Decimal
	MaxLoanLimit              int
	ExpirePendingReservations bool
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriod:   loan.DefaultLoanPeriod,
		MaxRenewals:  loan.DefaultMaxRenewals,
		HoldPeriod:   reservation.DefaultHoldPeriod,
		FinePerDay:   decimal.NewFromInt(1),
		MaxLoanLimit: borrower.DefaultLoanLimit,
	}
}

func PolicyFromConfig(cfg config.LibraryConfig) (Policy, error) {
	perDay, err := cfg.FinePerDayAmount()
	if err != nil {
		return Policy{}, err
	}
	p := DefaultPolicy()
	p.FinePerDay = perDay
	p.ExpirePendingReservations = cfg.ExpirePendingReservations
	if cfg.LoanPeriodDays > 0 {
		p.LoanPeriod = time.Duration(cfg.LoanPeriodDays) * 24 * time.Hour
	}
	if cfg.ReservationHoldDays > 0 {
		p.HoldPeriod = time.Duration(cfg.ReservationHoldDays) * 24 * time.Hour
	}
	if cfg.MaxRenewals >= 0 {
		p.MaxRenewals = cfg.MaxRenewals
	}
	if cfg.MaxLoanLimit > 0 {
		p.MaxLoanLimit = cfg.MaxLoanLimit
	}
	return p, nil
}

// Actor is the caller on whose behalf an operation runs. Librarians may act
// for any borrower.
type Actor struct {
	BorrowerID int64
	Librarian  bool
}

func (a Actor) canActFor(borrowerID int64) bool {
	return a.Librarian || a.BorrowerID == borrowerID
}

func (a Actor) requireFor(borrowerID int64) error {
	if !a.canActFor(borrowerID) {
		return fmt.Errorf("%w: borrower %d cannot act for borrower %d", apperrors.ErrForbidden, a.BorrowerID, borrowerID)
	}
	return nil
}

func (a Actor) requireLibrarian() error {
	if !a.Librarian {
		return fmt.Errorf("%w: librarian role required", apperrors.ErrForbidden)
	}
	return nil
}

type BorrowResult struct {
	Loan      *loan.Loan
	Fulfilled *reservation.Reservation
	Promoted  *reservation.Reservation
}

type ReturnResult struct {
	Loan       *loan.Loan
	FineAmount decimal.Decimal
	Fine       *fine.Fine
	Promoted   *reservation.Reservation
}

type ReserveResult struct {
	Reservation   *reservation.Reservation
	QueuePosition int
}

type OverdueSweepResult struct {
	MarkedOverdue int
	FinesChanged  int
}

type ExpirySweepResult struct {
	Expired  int
	Promoted int
}

type FineStatement struct {
	Fines        []*fine.Fine
	PendingTotal decimal.Decimal
}

type Summary struct {
	BorrowerID        int64
	LoanLimit         int
	ActiveLoans       int
	OverdueLoans      int
	PendingFines      decimal.Decimal
	ReadyReservations int
	PendingQueue      int
}

type Service interface {
	Borrow(ctx context.Context, actor Actor, bookID, borrowerID int64) (*BorrowResult, error)
	Return(ctx context.Context, actor Actor, loanID int64) (*ReturnResult, error)
	Renew(ctx context.Context, actor Actor, loanID int64) (*loan.Loan, error)
	SweepOverdue(ctx context.Context, borrowerID int64) (OverdueSweepResult, error)
	ListLoans(ctx context.Context, actor Actor, borrowerID int64) ([]*loan.Loan, error)

	Reserve(ctx context.Context, actor Actor, bookID, borrowerID int64) (*ReserveResult, error)
	CancelReservation(ctx context.Context, actor Actor, reservationID int64) (*reservation.Reservation, error)
	SetTotalCopies(ctx context.Context, actor Actor, bookID int64, total int) (*catalog.Book, error)
	SweepExpired(ctx context.Context, borrowerID int64) (int, error)
	ExpireReservations(ctx context.Context) (ExpirySweepResult, error)
	ListReservations(ctx context.Context, actor Actor, borrowerID int64) ([]*reservation.Reservation, error)
	Availability(ctx context.Context, bookID int64) (catalog.Availability, error)
	QueuePosition(ctx context.Context, bookID, borrowerID int64) (int, error)

	ListFines(ctx context.Context, actor Actor, borrowerID int64) (*FineStatement, error)
	PayFine(ctx context.Context, actor Actor, fineID int64, method string) (*fine.Fine, error)
	WaiveFine(ctx context.Context, actor Actor, fineID int64, note string) (*fine.Fine, error)
	DisputeFine(ctx context.Context, actor Actor, fineID int64, note string) (*fine.Fine, error)

	Summary(ctx context.Context, actor Actor, borrowerID int64) (*Summary, error)
}

type Option func(*service)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *service) {
		s.clock = clock
	}
}

type service struct {
	Stores
	policy Policy
	pub    event.Publisher
	clock  func() time.Time
	logger *slog.Logger
}

var _ Service = (*service)(nil)

func NewService(stores Stores, policy Policy, publisher event.Publisher, logger *slog.Logger, opts ...Option) Service {
	if stores.Tx == nil || stores.Books == nil || stores.Borrowers == nil ||
		stores.Loans == nil || stores.Reservations == nil || stores.Fines == nil {
		panic("circulation stores cannot be nil")
	}
	if publisher == nil {
		publisher = event.NewNopPublisher(logger)
	}
	s := &service{
		Stores: stores,
		policy: policy,
		pub:    publisher,
		clock:  time.Now,
		logger: logger.With(slog.String("component", "circulationService")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// txScope carries the transaction, the operation timestamp and the events
// to publish once the transaction commits.
type txScope struct {
	tx     pgx.Tx
	now    time.Time
	events []event.Event
}

func (sc *txScope) emit(evt event.Event) {
	sc.events = append(sc.events, evt)
}

func (s *service) inTx(ctx context.Context, op string, fn func(sc *txScope) error) (err error) {
	defer func() {
		monitoring.RecordCirculation(op, outcome(err))
	}()

	tx, err := s.Tx.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", slog.String("operation", op), slog.Any("error", err))
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Recovered from panic, rolling back transaction", slog.String("operation", op), slog.Any("panic", p))
			_ = s.Tx.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			if rbErr := s.Tx.RollbackTx(ctx, tx); rbErr != nil {
				s.logger.ErrorContext(ctx, "Failed to rollback transaction", slog.String("operation", op), slog.Any("rollbackError", rbErr))
			}
		}
	}()

	sc := &txScope{tx: tx, now: s.clock().UTC()}
	if err = fn(sc); err != nil {
		return err
	}
	if err = s.Tx.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", slog.String("operation", op), slog.Any("error", err))
		return err
	}

	for _, evt := range sc.events {
		if pubErr := s.pub.Publish(ctx, evt); pubErr != nil {
			s.logger.ErrorContext(ctx, "Failed to publish event after commit", slog.String("routingKey", evt.RoutingKey()), slog.Any("error", pubErr))
		}
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	code := apperrors.CodeOf(err)
	if code == "" || code == "DB_ERROR" {
		return "error"
	}
	return code
}
