package handler

import (
	"errors"
	"fmt"
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/api/middleware"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	codeUnauthorized  = "UNAUTHORIZED"
	codeInvalid       = "INVALID_ARGUMENT"
	codeAlreadyExists = "ALREADY_EXISTS"
	codeConflict      = "CONFLICT"
	codeInternal      = "INTERNAL"
)

type validatable interface {
	Validate() error
}

// decodeAndValidate reads a JSON body into v and runs its Validate method.
func decodeAndValidate(r *http.Request, v validatable) error {
	if err := decodeJSON(r, v); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}
	return v.Validate()
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError maps domain errors to HTTP statuses. Circulation rule
// violations become 409 with their machine-readable code.
func respondError(w http.ResponseWriter, err error) {
	status, code, message, field := http.StatusInternalServerError, codeInternal, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError

	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, codeUnauthorized, err.Error()
	case errors.Is(err, apperrors.ErrForbidden):
		status, code, message = http.StatusForbidden, apperrors.CodeForbidden, err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, apperrors.CodeNotFound, "Resource not found."
	case errors.As(err, &validationError):
		status, code, message, field = http.StatusBadRequest, codeInvalid, validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, code, message = http.StatusBadRequest, codeInvalid, err.Error()
	case apperrors.IsRuleViolation(err):
		status, code, message = http.StatusConflict, apperrors.CodeOf(err), err.Error()
	case errors.Is(err, apperrors.ErrAlreadyExists):
		status, code, message = http.StatusConflict, codeAlreadyExists, err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		status, code, message = http.StatusConflict, codeConflict, err.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", apperrors.ErrInvalidArgument, param)
	}
	return id, nil
}

// actorFrom returns the authenticated caller.
func actorFrom(r *http.Request) (circulation.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return circulation.Actor{}, fmt.Errorf("%w: no authenticated borrower", apperrors.ErrUnauthorized)
	}
	return actor, nil
}

func requireLibrarian(r *http.Request) (circulation.Actor, error) {
	actor, err := actorFrom(r)
	if err != nil {
		return actor, err
	}
	if !actor.Librarian {
		return actor, fmt.Errorf("%w: librarian role required", apperrors.ErrForbidden)
	}
	return actor, nil
}

// targetBorrower is the caller unless a librarian names another borrower
// with ?borrowerId=. Ownership is enforced by the circulation service.
func targetBorrower(r *http.Request, actor circulation.Actor) (int64, error) {
	raw := r.URL.Query().Get("borrowerId")
	if raw == "" {
		return actor.BorrowerID, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: borrowerId must be a positive integer", apperrors.ErrInvalidArgument)
	}
	return id, nil
}
