package api

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/ultramynd/notesync/internal/auth"
)

// CorrelationHeader carries the per-request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

// extractBearerToken returns the credential of an "Authorization: Bearer"
// header, or "" when there is none.
func extractBearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// CorrelationMiddleware assigns every request a ULID correlation id, or
// keeps the one supplied by the client, and echoes it in the response.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" || len(id) > 64 {
			id = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), id)))
	})
}

// AuthMiddleware resolves the bearer token into an owner id.
// Returns 401 with the error envelope on failure.
func AuthMiddleware(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				WriteError(w, r, KindUnauthorized)
				return
			}
			ownerID, err := v.Verify(r.Context(), token)
			if err != nil {
				slog.Warn("auth failure",
					"component", "api",
					"action", "authenticate",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_ip", r.RemoteAddr,
					"correlation_id", CorrelationIDFromContext(r.Context()),
					"error", err,
				)
				WriteError(w, r, KindUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), ownerID)))
		})
	}
}

// BodyLimitMiddleware caps request bodies at n bytes. n <= 0 disables the cap.
func BodyLimitMiddleware(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware writes one log line per completed request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		slog.Info("request",
			"component", "api",
			"action", "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"correlation_id", CorrelationIDFromContext(r.Context()),
		)
	})
}

// RecoveryMiddleware turns a handler panic into a KindInternal envelope.
// The panic value and stack go to the log only.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.Error("panic recovered",
					"component", "api",
					"action", "recover",
					"error", v,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
					"method", r.Method,
					"correlation_id", CorrelationIDFromContext(r.Context()),
				)
				WriteError(w, r, KindInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
