package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ultramynd/notesync/internal/config"
)

// logCapture captures slog output for testing
type logCapture struct {
	mu      sync.Mutex
	entries []map[string]any
}

func (c *logCapture) handler() slog.Handler {
	return slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug})
}

func (c *logCapture) Write(p []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err == nil {
		c.entries = append(c.entries, entry)
	}
	return len(p), nil
}

func (c *logCapture) messageIndex(msg string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e["msg"] == msg {
			return i
		}
	}
	return -1
}

func TestStartWorker_TracksCompletion(t *testing.T) {
	capture := &logCapture{}
	old := slog.Default()
	slog.SetDefault(slog.New(capture.handler()))
	defer slog.SetDefault(old)

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	var ran atomic.Bool
	startWorker(ctx, &wg, "test-worker", func(ctx context.Context) {
		ran.Store(true)
		<-ctx.Done()
	})

	require.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitGroup did not complete after cancel")
	}

	started := capture.messageIndex("worker started")
	stopped := capture.messageIndex("worker stopped")
	assert.GreaterOrEqual(t, started, 0)
	assert.Greater(t, stopped, started)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.LogConfig{Level: "info", Format: "json"}).Info("hello", "component", "api")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())), buf.String())

	buf.Reset()
	newLogger(&buf, config.LogConfig{Level: "info", Format: "text"}).Info("hello", "component", "api")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "component=api")

	buf.Reset()
	newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"}).Info("dropped")
	assert.Empty(t, buf.String())
}
