package handler

import (
	"bytes"
	"context"
	"io"
	"library-engine/internal/api/handler/dto"
	"library-engine/internal/api/middleware"
	"library-engine/internal/domain/circulation"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRequest builds a request with chi URL params and, when actor is set,
// an authenticated caller.
func newRequest(t *testing.T, method, target string, body any, actor *circulation.Actor, params map[string]string) *http.Request {
	t.Helper()
	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) dto.ErrorDetail {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func member(id int64) *circulation.Actor {
	return &circulation.Actor{BorrowerID: id}
}

func librarian(id int64) *circulation.Actor {
	return &circulation.Actor{BorrowerID: id, Librarian: true}
}
