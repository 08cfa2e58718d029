package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ultramynd/notesync/internal/api"
	"github.com/ultramynd/notesync/internal/auth"
	"github.com/ultramynd/notesync/internal/config"
	"github.com/ultramynd/notesync/internal/embedding"
	"github.com/ultramynd/notesync/internal/store"
	notesync "github.com/ultramynd/notesync/internal/sync"
	"github.com/ultramynd/notesync/internal/worker"
)

// Version is overridden at link time with -X main.Version.
var Version = "dev"

// devSecret signs tokens when NOTESYNC_DEV_MODE=true and no secret is set.
const devSecret = "notesync-dev-secret"

var rootCmd = &cobra.Command{
	Use:          "notesync",
	Short:        "notesync - offline-first note sync server",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(pullCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)
	slog.Info("configuration loaded",
		"log_level", cfg.Log.Level,
		"database_driver", cfg.Database.Driver,
		"dev_mode", cfg.DevMode,
	)

	db, err := store.NewSQLStore(cfg.Database.Driver, cfg.Database.DSN(), store.WithLogger(logger))
	if err != nil {
		return err
	}
	slog.Info("store initialized", "driver", cfg.Database.Driver)

	var (
		embedder  embedding.Embedder = embedding.Disabled{}
		scheduler notesync.EmbeddingScheduler
		queue     *worker.EmbeddingQueue
		sweep     *worker.EmbeddingSweepWorker
	)
	if cfg.Embedding.APIKey != "" {
		embedder = embedding.NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		queue = worker.NewEmbeddingQueue(db, embedder,
			cfg.Embedding.QueueSize,
			time.Duration(cfg.Embedding.Pacing),
			time.Duration(cfg.Embedding.Timeout))
		sweep = worker.NewEmbeddingSweepWorker(db, embedder,
			time.Duration(cfg.Worker.EmbeddingSweepInterval),
			cfg.Worker.EmbeddingRetryMaxAttempts,
			cfg.Worker.EmbeddingRetryBatchSize)
		scheduler = queue
		slog.Info("embedder initialized", "model", embedder.ModelName())
	} else {
		slog.Warn("OPENAI_API_KEY not set, embedding disabled")
	}

	coord := notesync.NewCoordinator(db, scheduler, notesync.Options{
		ZeroWatermark: notesync.ZeroWatermark(cfg.Sync.ZeroWatermark),
		Overlap:       time.Duration(cfg.Sync.WatermarkOverlap),
		MaxBatchSize:  cfg.Sync.MaxBatchSize,
		Logger:        logger,
	})

	handler := api.NewHandler(db, coord, embedder.ModelName(), Version)
	router := api.NewRouter(handler, api.RouterOptions{
		Verifier:     auth.NewJWTVerifier([]byte(jwtSecret(cfg)), cfg.Auth.Issuer),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	var wg sync.WaitGroup
	if queue != nil {
		startWorker(ctx, &wg, "embedding-queue", queue.Run)
		startWorker(ctx, &wg, "embedding-sweep", sweep.Run)
	}

	go func() {
		slog.Info("server starting", "address", addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// In-flight syncs finish before the store closes.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// jwtSecret returns the configured secret, or devSecret in dev mode.
func jwtSecret(cfg *config.Config) string {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret
	}
	slog.Warn("NOTESYNC_JWT_SECRET not set, using development secret")
	return devSecret
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker runs fn on its own goroutine until ctx ends. wg lets
// shutdown wait for it.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
