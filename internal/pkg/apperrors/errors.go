package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	ErrConflict = errors.New("resource conflict")
)

// Circulation rule codes returned to callers.
const (
	CodeUnavailable          = "UNAVAILABLE"
	CodeAlreadyBorrowed      = "ALREADY_BORROWED"
	CodeFinesOutstanding     = "FINES_OUTSTANDING"
	CodeLoanLimitReached     = "LOAN_LIMIT_REACHED"
	CodeDuplicateReservation = "DUPLICATE_RESERVATION"
	CodeAlreadyHolding       = "ALREADY_HOLDING"
	CodeBookAvailable        = "BOOK_AVAILABLE"
	CodeMaxRenewals          = "MAX_RENEWALS"
	CodeOverdue              = "OVERDUE"
	CodeReservedByOthers     = "RESERVED_BY_OTHERS"
	CodeNotFound             = "NOT_FOUND"
	CodeForbidden            = "FORBIDDEN"
)

var (
	ErrUnavailable = &AppError{Code: CodeUnavailable, Message: "no copies of this book are available"}

	ErrAlreadyBorrowed = &AppError{Code: CodeAlreadyBorrowed, Message: "book is already on loan to this borrower"}

	ErrFinesOutstanding = &AppError{Code: CodeFinesOutstanding, Message: "borrower has pending fines"}

	ErrLoanLimitReached = &AppError{Code: CodeLoanLimitReached, Message: "borrower has reached the loan limit"}

	ErrDuplicateReservation = &AppError{Code: CodeDuplicateReservation, Message: "borrower already has an open reservation for this book"}

	ErrAlreadyHolding = &AppError{Code: CodeAlreadyHolding, Message: "borrower already has this book on loan"}

	ErrBookAvailable = &AppError{Code: CodeBookAvailable, Message: "book is available, borrow it instead of reserving"}

	ErrMaxRenewals = &AppError{Code: CodeMaxRenewals, Message: "loan has reached the maximum number of renewals"}

	ErrOverdue = &AppError{Code: CodeOverdue, Message: "overdue loans cannot be renewed"}

	ErrReservedByOthers = &AppError{Code: CodeReservedByOthers, Message: "book is reserved by other borrowers"}
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {

	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}

// IsRuleViolation reports whether err carries one of the circulation rule codes.
func IsRuleViolation(err error) bool {
	switch CodeOf(err) {
	case "", CodeNotFound, CodeForbidden, "DB_ERROR":
		return false
	}
	return true
}

// CodeOf returns the machine-readable code carried by err, or "" when there is none.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	}
	return ""
}
