package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ultramynd/notesync/internal/auth"
	"github.com/ultramynd/notesync/internal/store"
	notesync "github.com/ultramynd/notesync/internal/sync"
)

var testSecret = []byte("test-secret")

var zeroTime time.Time

type recordingScheduler struct {
	mu  stdsync.Mutex
	ids map[string][]string
}

func (r *recordingScheduler) Enqueue(ownerID string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids == nil {
		r.ids = make(map[string][]string)
	}
	r.ids[ownerID] = append(r.ids[ownerID], ids...)
}

func (r *recordingScheduler) For(ownerID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids[ownerID]...)
}

type testEnv struct {
	router http.Handler
	store  *store.SQLStore
	sched  *recordingScheduler
}

func newTestEnv(t *testing.T, opts ...func(*RouterOptions)) *testEnv {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "notesync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sched := &recordingScheduler{}
	coord := notesync.NewCoordinator(s, sched, notesync.Options{})
	h := NewHandler(s, coord, "test-model", "1.2.3")

	ro := RouterOptions{Verifier: auth.NewJWTVerifier(testSecret, "notesync"), MaxBodyBytes: 1 << 20}
	for _, o := range opts {
		o(&ro)
	}
	return &testEnv{router: NewRouter(h, ro), store: s, sched: sched}
}

func tokenFor(t *testing.T, ownerID string) string {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, "notesync", ownerID, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a request as ownerID; an empty ownerID sends no credentials.
func (e *testEnv) do(t *testing.T, method, path, ownerID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ownerID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, ownerID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
