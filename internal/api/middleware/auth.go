package middleware

import (
	"context"
	"fmt"
	"library-engine/internal/config"
	"library-engine/internal/domain/circulation"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimBorrowerID = "borrower_id"
	ClaimLibrarian  = "librarian"

	// Identity headers honoured only while token auth is disabled.
	HeaderBorrowerID = "X-Borrower-ID"
	HeaderLibrarian  = "X-Librarian"
)

type actorKey struct{}

func WithActor(ctx context.Context, actor circulation.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller attached by AuthMiddleware.
func ActorFromContext(ctx context.Context) (circulation.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(circulation.Actor)
	return actor, ok
}

func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if actor, ok := actorFromHeaders(r); ok {
					r = r.WithContext(WithActor(r.Context(), actor))
				}
				next.ServeHTTP(w, r)
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := validateJWT(r, cfg.JWTSecret)
			if err != nil {
				logger.Warn("AuthMiddleware: rejected request", "path", r.URL.Path, "error", err)
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"Unauthorized"}}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func validateJWT(r *http.Request, secret string) (circulation.Actor, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return circulation.Actor{}, fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return circulation.Actor{}, fmt.Errorf("invalid Authorization header format")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return circulation.Actor{}, fmt.Errorf("invalid token: %w", err)
	}

	id, ok := claims[ClaimBorrowerID].(float64)
	if !ok || id <= 0 {
		return circulation.Actor{}, fmt.Errorf("token has no %s claim", ClaimBorrowerID)
	}
	librarian, _ := claims[ClaimLibrarian].(bool)
	return circulation.Actor{BorrowerID: int64(id), Librarian: librarian}, nil
}

func actorFromHeaders(r *http.Request) (circulation.Actor, bool) {
	id, err := strconv.ParseInt(r.Header.Get(HeaderBorrowerID), 10, 64)
	if err != nil || id <= 0 {
		return circulation.Actor{}, false
	}
	librarian, _ := strconv.ParseBool(r.Header.Get(HeaderLibrarian))
	return circulation.Actor{BorrowerID: id, Librarian: librarian}, true
}
