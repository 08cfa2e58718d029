//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ultramynd/notesync/pkg/client"
)

const jwtSecret = "e2e-test-secret"

// notesyncServer manages a running notesync server process.
type notesyncServer struct {
	cmd     *exec.Cmd
	env     []string
	address string
	logFile string
}

// startNotesync launches the binary and waits for it to become healthy.
// The server is configured entirely via environment variables.
func startNotesync(t *testing.T) *notesyncServer {
	t.Helper()

	if notesyncBin == "" {
		t.Skip("notesync binary not available (set NOTESYNC_BIN or add to PATH)")
	}

	dataDir := t.TempDir()
	port := freePort(t)
	logFile := filepath.Join(dataDir, "notesync.log")

	env := append(os.Environ(),
		fmt.Sprintf("NOTESYNC_PORT=%d", port),
		"NOTESYNC_DB_PATH="+filepath.Join(dataDir, "notesync.db"),
		"NOTESYNC_JWT_SECRET="+jwtSecret,
		"NOTESYNC_CONFIG_PATH="+filepath.Join(dataDir, "nonexistent.yaml"),
		"OPENAI_API_KEY=",
	)

	cmd := exec.Command(notesyncBin)
	cmd.Env = env

	lf, err := os.Create(logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start notesync: %v", err)
	}

	s := &notesyncServer{
		cmd:     cmd,
		env:     env,
		address: fmt.Sprintf("127.0.0.1:%d", port),
		logFile: logFile,
	}
	t.Cleanup(func() {
		s.stop()
		lf.Close()
	})

	if err := s.waitHealthy(10 * time.Second); err != nil {
		logs, _ := os.ReadFile(logFile)
		t.Fatalf("notesync not healthy: %v\n%s", err, logs)
	}
	return s
}

func (s *notesyncServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
}

func (s *notesyncServer) baseURL() string {
	return "http://" + s.address
}

func (s *notesyncServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(s.baseURL() + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("notesync not healthy after %s", timeout)
}

// token issues a bearer token through the "notesync token" subcommand.
func (s *notesyncServer) token(t *testing.T, ownerID string) string {
	t.Helper()
	out, err := s.run(t, "token", ownerID)
	if err != nil {
		t.Fatalf("notesync token: %v\n%s", err, out)
	}
	return strings.TrimSpace(out)
}

// run executes a notesync subcommand with the server's environment.
func (s *notesyncServer) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, notesyncBin, args...)
	cmd.Env = s.env
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

func (s *notesyncServer) client(t *testing.T, ownerID string) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{BaseURL: s.baseURL(), Token: s.token(t, ownerID)})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
