package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(_ context.Context, token string) (string, error) {
	if owner, ok := s[token]; ok {
		return owner, nil
	}
	return "", errors.New("unknown token")
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"Bearer   abc  ", "abc"},
		{"bearer abc", ""},
		{"Basic abc", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, extractBearerToken(r), tt.header)
	}
}

func TestAuthMiddleware_SetsOwner(t *testing.T) {
	var got string
	h := AuthMiddleware(stubVerifier{"tok": "user-1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = OwnerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", got)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	called := false
	h := AuthMiddleware(stubVerifier{"tok": "user-1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	for _, header := range []string{"", "Bearer nope", "tok"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, KindUnauthorized, resp.ErrorKind)
		assert.False(t, resp.Success)
	}
	assert.False(t, called)
}

func TestCorrelationMiddleware(t *testing.T) {
	var seen string
	h := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	t.Run("generates", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(CorrelationHeader)
		assert.Len(t, id, 26, "ULID string")
		assert.Equal(t, id, seen)
	})

	t.Run("keeps client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationHeader, "client-abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "client-abc", rec.Header().Get(CorrelationHeader))
		assert.Equal(t, "client-abc", seen)
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationHeader, strings.Repeat("x", 100))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Len(t, rec.Header().Get(CorrelationHeader), 26)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	h := CorrelationMiddleware(RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("database exploded")
	})))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, KindInternal, resp.ErrorKind)
	assert.Equal(t, rec.Header().Get(CorrelationHeader), resp.CorrelationID)
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestContext_OwnerMissing(t *testing.T) {
	_, err := OwnerFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoOwnerInContext)
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}
