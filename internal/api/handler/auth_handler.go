package handler

import (
	"fmt"
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/api/middleware"
	"library-engine/internal/config"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

type AuthHandler struct {
	cfg       config.AuthConfig
	borrowers borrower.Service
	now       func() time.Time
	logger    *slog.Logger
}

func NewAuthHandler(cfg config.AuthConfig, borrowers borrower.Service, l *slog.Logger) *AuthHandler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &AuthHandler{
		cfg:       cfg,
		borrowers: borrowers,
		now:       time.Now,
		logger:    l.With("component", "AuthHandler"),
	}
}

// IssueToken signs a JWT for an active borrower whose password checks out.
//
// @Summary Issue a bearer token
// @Description Checks the borrower's email and password and returns a signed JWT carrying the borrower ID and librarian flag.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "Borrower credentials"
// @Success 200 {object} dto.TokenResponse "Token successfully generated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials or deactivated borrower"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/token [post]
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.Warn("Rejected token request", "error", err)
		respondError(w, err)
		return
	}

	b, err := h.borrowers.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("Token request denied", "error", err)
		respondError(w, err)
		return
	}

	expiresAt := h.now().Add(h.cfg.TokenTTL)
	claims := jwt.MapClaims{
		middleware.ClaimBorrowerID: b.ID,
		middleware.ClaimLibrarian:  b.Librarian,
		"sub":                      b.Email,
		"iat":                      h.now().Unix(),
		"exp":                      expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.Error("Failed to sign token", "error", err)
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInternalServer, err))
		return
	}

	h.logger.Info("Issued token", "borrowerID", b.ID, "librarian", b.Librarian)
	respondJSON(w, http.StatusOK, dto.TokenResponse{Token: "Bearer " + tokenString, ExpiresAt: expiresAt})
}
