package circulation_test

import (
	"context"
	"fmt"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/catalog"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/domain/fine"
	"library-engine/internal/domain/loan"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/pkg/apperrors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memDB is a transactional in-memory store. A transaction holds the store
// mutex from BeginTx until commit or rollback, which serialises writers the
// way row locks do on a single book.
type memDB struct {
	mu     sync.Mutex
	nextID int64

	books        map[int64]catalog.Book
	borrowers    map[int64]borrower.Borrower
	loans        map[int64]loan.Loan
	reservations map[int64]reservation.Reservation
	fines        map[int64]fine.Fine

	snapshot *memDB
	fail     map[string]error
}

type memTx struct {
	pgx.Tx
}

func newMemDB() *memDB {
	return &memDB{
		books:        map[int64]catalog.Book{},
		borrowers:    map[int64]borrower.Borrower{},
		loans:        map[int64]loan.Loan{},
		reservations: map[int64]reservation.Reservation{},
		fines:        map[int64]fine.Fine{},
		fail:         map[string]error{},
	}
}

func (db *memDB) stores() circulation.Stores {
	return circulation.Stores{
		Tx:           db,
		Books:        memBooks{db},
		Borrowers:    memBorrowers{db},
		Loans:        memLoans{db},
		Reservations: memReservations{db},
		Fines:        memFines{db},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

// failOn makes the named store call return err once.
func (db *memDB) failOn(call string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.fail[call] = err
}

func (db *memDB) injected(call string) error {
	if err, ok := db.fail[call]; ok {
		delete(db.fail, call)
		return err
	}
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) BeginTx(_ context.Context) (pgx.Tx, error) {
	db.mu.Lock()
	if err := db.injected("begin"); err != nil {
		db.mu.Unlock()
		return nil, err
	}
	db.snapshot = &memDB{
		nextID:       db.nextID,
		books:        copyMap(db.books),
		borrowers:    copyMap(db.borrowers),
		loans:        copyMap(db.loans),
		reservations: copyMap(db.reservations),
		fines:        copyMap(db.fines),
	}
	return &memTx{}, nil
}

func (db *memDB) CommitTx(_ context.Context, _ pgx.Tx) error {
	defer db.mu.Unlock()
	if err := db.injected("commit"); err != nil {
		db.restore()
		return err
	}
	db.snapshot = nil
	return nil
}

func (db *memDB) RollbackTx(_ context.Context, _ pgx.Tx) error {
	if db.snapshot == nil {
		return nil
	}
	defer db.mu.Unlock()
	db.restore()
	return nil
}

func (db *memDB) restore() {
	s := db.snapshot
	db.nextID = s.nextID
	db.books = s.books
	db.borrowers = s.borrowers
	db.loans = s.loans
	db.reservations = s.reservations
	db.fines = s.fines
	db.snapshot = nil
}

func (db *memDB) read(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn()
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrNotFound, fmt.Sprintf(format, args...))
}

// Seeding and inspection helpers used by the tests.

func (db *memDB) addBook(title string, copies int) int64 {
	var id int64
	db.read(func() {
		id = db.id()
		db.books[id] = catalog.Book{ID: id, Title: title, ISBN: fmt.Sprintf("978000000%04d", id), TotalCopies: copies, AvailableCopies: copies}
	})
	return id
}

func (db *memDB) addBorrower(name string, limit int) int64 {
	var id int64
	db.read(func() {
		id = db.id()
		db.borrowers[id] = borrower.Borrower{ID: id, Name: name, Email: name + "@example.org", LoanLimit: limit, Active: true}
	})
	return id
}

func (db *memDB) book(id int64) catalog.Book {
	var b catalog.Book
	db.read(func() { b = db.books[id] })
	return b
}

func (db *memDB) loan(id int64) loan.Loan {
	var l loan.Loan
	db.read(func() { l = db.loans[id] })
	return l
}

func (db *memDB) reservation(id int64) reservation.Reservation {
	var r reservation.Reservation
	db.read(func() { r = db.reservations[id] })
	return r
}

func (db *memDB) finesFor(borrowerID int64) []fine.Fine {
	var out []fine.Fine
	db.read(func() {
		for _, f := range db.fines {
			if f.BorrowerID == borrowerID {
				out = append(out, f)
			}
		}
	})
	return out
}

func (db *memDB) loanCount() int {
	var n int
	db.read(func() { n = len(db.loans) })
	return n
}

// checkedOut counts loans holding a copy of the book.
func (db *memDB) checkedOut(bookID int64) int {
	var n int
	db.read(func() {
		for _, l := range db.loans {
			if l.BookID == bookID && l.IsCheckedOut() {
				n++
			}
		}
	})
	return n
}

func (db *memDB) openReservations(bookID, borrowerID int64) int {
	var n int
	db.read(func() {
		for _, r := range db.reservations {
			if r.BookID == bookID && r.BorrowerID == borrowerID && r.IsOpen() {
				n++
			}
		}
	})
	return n
}

type memBooks struct{ db *memDB }

func (m memBooks) GetBookByID(_ context.Context, bookID int64) (*catalog.Book, error) {
	var (
		b  catalog.Book
		ok bool
	)
	m.db.read(func() { b, ok = m.db.books[bookID] })
	if !ok {
		return nil, notFoundf("book %d", bookID)
	}
	return &b, nil
}

func (m memBooks) GetBookForUpdateInTx(_ context.Context, _ pgx.Tx, bookID int64) (*catalog.Book, error) {
	b, ok := m.db.books[bookID]
	if !ok {
		return nil, notFoundf("book %d", bookID)
	}
	return &b, nil
}

func (m memBooks) UpdateCopiesInTx(_ context.Context, _ pgx.Tx, book *catalog.Book) error {
	if err := m.db.injected("books.update"); err != nil {
		return err
	}
	m.db.books[book.ID] = *book
	return nil
}

type memBorrowers struct{ db *memDB }

func (m memBorrowers) FindByID(_ context.Context, borrowerID int64) (*borrower.Borrower, error) {
	var (
		b  borrower.Borrower
		ok bool
	)
	m.db.read(func() { b, ok = m.db.borrowers[borrowerID] })
	if !ok {
		return nil, notFoundf("borrower %d", borrowerID)
	}
	return &b, nil
}

func (m memBorrowers) GetForUpdateInTx(_ context.Context, _ pgx.Tx, borrowerID int64) (*borrower.Borrower, error) {
	b, ok := m.db.borrowers[borrowerID]
	if !ok {
		return nil, notFoundf("borrower %d", borrowerID)
	}
	return &b, nil
}

type memLoans struct{ db *memDB }

var _ loan.Repository = memLoans{}

func (m memLoans) CreateInTx(_ context.Context, _ pgx.Tx, l *loan.Loan) error {
	if err := m.db.injected("loans.create"); err != nil {
		return err
	}
	l.ID = m.db.id()
	m.db.loans[l.ID] = *l
	return nil
}

func (m memLoans) GetForUpdateInTx(_ context.Context, _ pgx.Tx, loanID int64) (*loan.Loan, error) {
	l, ok := m.db.loans[loanID]
	if !ok {
		return nil, notFoundf("loan %d", loanID)
	}
	l.BookTitle = m.db.books[l.BookID].Title
	return &l, nil
}

func (m memLoans) UpdateInTx(_ context.Context, _ pgx.Tx, l *loan.Loan) error {
	if err := m.db.injected("loans.update"); err != nil {
		return err
	}
	m.db.loans[l.ID] = *l
	return nil
}

func (m memLoans) HasCheckedOutInTx(_ context.Context, _ pgx.Tx, bookID, borrowerID int64) (bool, error) {
	for _, l := range m.db.loans {
		if l.BookID == bookID && l.BorrowerID == borrowerID && l.IsCheckedOut() {
			return true, nil
		}
	}
	return false, nil
}

func (m memLoans) CountCheckedOutInTx(_ context.Context, _ pgx.Tx, borrowerID int64) (int, error) {
	n := 0
	for _, l := range m.db.loans {
		if l.BorrowerID == borrowerID && l.IsCheckedOut() {
			n++
		}
	}
	return n, nil
}

func (m memLoans) ListPastDueForUpdateInTx(_ context.Context, _ pgx.Tx, borrowerID int64, now time.Time) ([]*loan.Loan, error) {
	var out []*loan.Loan
	for _, l := range m.db.loans {
		if l.BorrowerID == borrowerID && l.IsCheckedOut() && l.DueAt.Before(now) {
			l := l
			l.BookTitle = m.db.books[l.BookID].Title
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memLoans) ListByBorrower(_ context.Context, borrowerID int64) ([]*loan.Loan, error) {
	var out []*loan.Loan
	m.db.read(func() {
		for _, l := range m.db.loans {
			if l.BorrowerID == borrowerID {
				l := l
				out = append(out, &l)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memLoans) ListBorrowersWithPastDue(_ context.Context, now time.Time) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	m.db.read(func() {
		for _, l := range m.db.loans {
			if l.IsCheckedOut() && l.DueAt.Before(now) && !seen[l.BorrowerID] {
				seen[l.BorrowerID] = true
				out = append(out, l.BorrowerID)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m memLoans) HasBorrowed(_ context.Context, bookID, borrowerID int64) (bool, error) {
	found := false
	m.db.read(func() {
		for _, l := range m.db.loans {
			if l.BookID == bookID && l.BorrowerID == borrowerID {
				found = true
			}
		}
	})
	return found, nil
}

type memReservations struct{ db *memDB }

var _ reservation.Repository = memReservations{}

func (m memReservations) CreateInTx(_ context.Context, _ pgx.Tx, r *reservation.Reservation) error {
	for _, existing := range m.db.reservations {
		if existing.BookID == r.BookID && existing.BorrowerID == r.BorrowerID && existing.IsOpen() {
			return fmt.Errorf("%w: open reservation exists", apperrors.ErrAlreadyExists)
		}
	}
	r.ID = m.db.id()
	m.db.reservations[r.ID] = *r
	return nil
}

func (m memReservations) GetForUpdateInTx(_ context.Context, _ pgx.Tx, reservationID int64) (*reservation.Reservation, error) {
	r, ok := m.db.reservations[reservationID]
	if !ok {
		return nil, notFoundf("reservation %d", reservationID)
	}
	return &r, nil
}

func (m memReservations) FindOpenInTx(_ context.Context, _ pgx.Tx, bookID, borrowerID int64) (*reservation.Reservation, error) {
	for _, r := range m.db.reservations {
		if r.BookID == bookID && r.BorrowerID == borrowerID && r.IsOpen() {
			return &r, nil
		}
	}
	return nil, notFoundf("no open reservation")
}

func (m memReservations) UpdateInTx(_ context.Context, _ pgx.Tx, r *reservation.Reservation) error {
	if err := m.db.injected("reservations.update"); err != nil {
		return err
	}
	m.db.reservations[r.ID] = *r
	return nil
}

func (m memReservations) pending(bookID int64) []reservation.Reservation {
	var out []reservation.Reservation
	for _, r := range m.db.reservations {
		if r.BookID == bookID && r.Status == reservation.StatusPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReservedAt.Equal(out[j].ReservedAt) {
			return out[i].ReservedAt.Before(out[j].ReservedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m memReservations) NextPendingForUpdateInTx(_ context.Context, _ pgx.Tx, bookID int64) (*reservation.Reservation, error) {
	queue := m.pending(bookID)
	if len(queue) == 0 {
		return nil, notFoundf("empty queue")
	}
	return &queue[0], nil
}

func (m memReservations) HasPendingInTx(_ context.Context, _ pgx.Tx, bookID int64) (bool, error) {
	return len(m.pending(bookID)) > 0, nil
}

func (m memReservations) held(bookID, excludeBorrowerID int64, now time.Time) int {
	n := 0
	for _, r := range m.db.reservations {
		if r.BookID == bookID && r.IsHeld(now) && r.BorrowerID != excludeBorrowerID {
			n++
		}
	}
	return n
}

func (m memReservations) CountHeldInTx(_ context.Context, _ pgx.Tx, bookID, excludeBorrowerID int64, now time.Time) (int, error) {
	return m.held(bookID, excludeBorrowerID, now), nil
}

func (m memReservations) CountHeld(_ context.Context, bookID int64, now time.Time) (int, error) {
	var n int
	m.db.read(func() { n = m.held(bookID, 0, now) })
	return n, nil
}

func (m memReservations) position(bookID, borrowerID int64) (int, error) {
	for i, r := range m.pending(bookID) {
		if r.BorrowerID == borrowerID {
			return i + 1, nil
		}
	}
	return 0, notFoundf("borrower %d is not queued for book %d", borrowerID, bookID)
}

func (m memReservations) QueuePositionInTx(_ context.Context, _ pgx.Tx, bookID, borrowerID int64) (int, error) {
	return m.position(bookID, borrowerID)
}

func (m memReservations) QueuePosition(_ context.Context, bookID, borrowerID int64) (int, error) {
	var (
		pos int
		err error
	)
	m.db.read(func() { pos, err = m.position(bookID, borrowerID) })
	return pos, err
}

func (m memReservations) ListExpirableForUpdateInTx(_ context.Context, _ pgx.Tx, borrowerID *int64, now time.Time, includePending bool) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	for _, r := range m.db.reservations {
		if borrowerID != nil && r.BorrowerID != *borrowerID {
			continue
		}
		if r.IsExpired(now, includePending) {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memReservations) ListPromotableBookIDs(_ context.Context, now time.Time) ([]int64, error) {
	var out []int64
	m.db.read(func() {
		for id, b := range m.db.books {
			if len(m.pending(id)) > 0 && b.AvailableCopies-m.held(id, 0, now) > 0 {
				out = append(out, id)
			}
		}
	})
	return out, nil
}

func (m memReservations) ListByBorrower(_ context.Context, borrowerID int64) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	m.db.read(func() {
		for _, r := range m.db.reservations {
			if r.BorrowerID == borrowerID {
				r := r
				out = append(out, &r)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memReservations) GetByID(_ context.Context, reservationID int64) (*reservation.Reservation, error) {
	var (
		r  reservation.Reservation
		ok bool
	)
	m.db.read(func() { r, ok = m.db.reservations[reservationID] })
	if !ok {
		return nil, notFoundf("reservation %d", reservationID)
	}
	return &r, nil
}

func (m memReservations) MarkNotified(_ context.Context, reservationID int64) error {
	var err error
	m.db.read(func() {
		r, ok := m.db.reservations[reservationID]
		if !ok {
			err = notFoundf("reservation %d", reservationID)
			return
		}
		r.NotificationSent = true
		m.db.reservations[reservationID] = r
	})
	return err
}

type memFines struct{ db *memDB }

var _ fine.Repository = memFines{}

func (m memFines) UpsertPendingInTx(_ context.Context, _ pgx.Tx, f *fine.Fine) (*fine.Fine, bool, error) {
	if err := m.db.injected("fines.upsert"); err != nil {
		return nil, false, err
	}
	for id, existing := range m.db.fines {
		if existing.LoanID != f.LoanID {
			continue
		}
		if existing.Status != fine.StatusPending || !existing.Amount.LessThan(f.Amount) {
			return &existing, false, nil
		}
		existing.Amount = f.Amount
		existing.Reason = f.Reason
		m.db.fines[id] = existing
		return &existing, true, nil
	}
	stored := *f
	stored.ID = m.db.id()
	m.db.fines[stored.ID] = stored
	return &stored, true, nil
}

func (m memFines) HasPendingInTx(_ context.Context, _ pgx.Tx, borrowerID int64) (bool, error) {
	for _, f := range m.db.fines {
		if f.BorrowerID == borrowerID && f.Status == fine.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m memFines) GetForUpdateInTx(_ context.Context, _ pgx.Tx, fineID int64) (*fine.Fine, error) {
	f, ok := m.db.fines[fineID]
	if !ok {
		return nil, notFoundf("fine %d", fineID)
	}
	return &f, nil
}

func (m memFines) UpdateInTx(_ context.Context, _ pgx.Tx, f *fine.Fine) error {
	m.db.fines[f.ID] = *f
	return nil
}

func (m memFines) ListByBorrower(_ context.Context, borrowerID int64) ([]*fine.Fine, error) {
	var out []*fine.Fine
	for _, f := range m.db.finesFor(borrowerID) {
		f := f
		out = append(out, &f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memFines) TotalPending(_ context.Context, borrowerID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, f := range m.db.finesFor(borrowerID) {
		if f.Status == fine.StatusPending {
			total = total.Add(f.Amount)
		}
	}
	return total, nil
}
