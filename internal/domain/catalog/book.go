package catalog

import (
	"fmt"
	"library-engine/internal/pkg/apperrors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID              int64
	Title           string
	ISBN            string
	Description     string
	Publisher       string
	Language        string
	Edition         string
	Pages           int
	PublicationDate *time.Time
	CategoryID      *int64
	CategoryName    string
	Price           decimal.Decimal
	TotalCopies     int
	AvailableCopies int
	Authors         []Author
	AddedAt         time.Time
	UpdatedAt       time.Time
}

type Author struct {
	ID          int64
	Name        string
	Bio         string
	Nationality string
	BirthDate   *time.Time
	DeathDate   *time.Time
	CreatedAt   time.Time
}

type Category struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
}

// Availability is the shelf state of a book. Held counts copies set aside
// for reservations that are ready for pickup.
type Availability struct {
	BookID          int64
	TotalCopies     int
	AvailableCopies int
	HeldCopies      int
}

// Free is the number of copies a borrower without a hold could take.
func (a Availability) Free() int {
	free := a.AvailableCopies - a.HeldCopies
	if free < 0 {
		return 0
	}
	return free
}

func NewBook(title, isbn string, totalCopies int) (*Book, error) {
	b := &Book{
		Title:           strings.TrimSpace(title),
		ISBN:            strings.TrimSpace(isbn),
		Language:        "English",
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		Price:           decimal.Zero,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) Validate() error {
	if b.Title == "" {
		return apperrors.NewValidationError("title", "title cannot be empty")
	}
	if len(b.ISBN) != 13 {
		return apperrors.NewValidationError("isbn", "isbn must be 13 characters")
	}
	if b.TotalCopies < 1 {
		return apperrors.NewValidationError("totalCopies", "a book must have at least one copy")
	}
	if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return apperrors.NewValidationError("availableCopies",
			fmt.Sprintf("available copies %d out of range 0..%d", b.AvailableCopies, b.TotalCopies))
	}
	if b.Price.IsNegative() {
		return apperrors.NewValidationError("price", "price cannot be negative")
	}
	return nil
}

// CopiesOnLoan is derived from the cached counter.
func (b *Book) CopiesOnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

// CheckOut takes one copy off the shelf.
func (b *Book) CheckOut() error {
	if b.AvailableCopies <= 0 {
		return fmt.Errorf("%w: book %d", apperrors.ErrUnavailable, b.ID)
	}
	b.AvailableCopies--
	return nil
}

// CheckIn puts one copy back on the shelf.
func (b *Book) CheckIn() error {
	if b.AvailableCopies >= b.TotalCopies {
		return fmt.Errorf("%w: book %d already has all %d copies on the shelf", apperrors.ErrConflict, b.ID, b.TotalCopies)
	}
	b.AvailableCopies++
	return nil
}

// Resize changes the number of owned copies while keeping the loaned copies fixed.
func (b *Book) Resize(total int) error {
	if total < 1 {
		return apperrors.NewValidationError("totalCopies", "a book must have at least one copy")
	}
	onLoan := b.CopiesOnLoan()
	if total < onLoan {
		return fmt.Errorf("%w: %d copies are on loan, cannot reduce total to %d", apperrors.ErrConflict, onLoan, total)
	}
	b.TotalCopies = total
	b.AvailableCopies = total - onLoan
	return nil
}

func (b *Book) AuthorNames() []string {
	names := make([]string, len(b.Authors))
	for i, a := range b.Authors {
		names[i] = a.Name
	}
	return names
}
