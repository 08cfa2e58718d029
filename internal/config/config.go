package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every server setting. Treat it as read-only once loaded.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Worker    WorkerConfig    `yaml:"worker"`
	Sync      SyncConfig      `yaml:"sync"`
	Log       LogConfig       `yaml:"log"`

	// DevMode relaxes secret requirements. Env-only.
	DevMode bool `yaml:"-"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
}

// DatabaseConfig selects the store backend. sqlite reads Path, postgres
// reads URL.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	URL    string `yaml:"-"` // env-only, may carry credentials
}

// DSN returns the data source name for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// EmbeddingConfig drives takeaway embedding. Without an APIKey no
// embeddings are generated.
type EmbeddingConfig struct {
	APIKey     string   `yaml:"-"` // env-only, never in YAML
	Model      string   `yaml:"model"`
	Dimensions int      `yaml:"dimensions"`
	QueueSize  int      `yaml:"queue_size"`
	Pacing     Duration `yaml:"pacing"`
	Timeout    Duration `yaml:"timeout"`
}

// AuthConfig signs and checks bearer tokens.
type AuthConfig struct {
	JWTSecret string   `yaml:"-"` // env-only, never in YAML
	Issuer    string   `yaml:"issuer"`
	TokenTTL  Duration `yaml:"token_ttl"`
}

// WorkerConfig tunes the embedding sweep.
type WorkerConfig struct {
	EmbeddingSweepInterval    Duration `yaml:"embedding_sweep_interval"`
	EmbeddingRetryMaxAttempts int      `yaml:"embedding_retry_max_attempts"`
	EmbeddingRetryBatchSize   int      `yaml:"embedding_retry_batch_size"`
}

type SyncConfig struct {
	ZeroWatermark    string   `yaml:"zero_watermark"`
	WatermarkOverlap Duration `yaml:"watermark_overlap"`
	MaxBatchSize     int      `yaml:"max_batch_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration reads Go duration strings ("30s", "5m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Load layers defaults, then the YAML file named by NOTESYNC_CONFIG_PATH
// (skipped when absent), then environment variables.
func Load() (*Config, error) {
	return load(getEnv("NOTESYNC_CONFIG_PATH", "config/notesync.yaml"), false)
}

// LoadFromFile is Load with an explicit file that must exist.
func LoadFromFile(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, mustExist bool) (*Config, error) {
	cfg := newDefaults()
	if err := readYAML(cfg, path, mustExist); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
			MaxBodyBytes:    10 << 20,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/notesync.db",
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			QueueSize:  1024,
			Pacing:     Duration(200 * time.Millisecond),
			Timeout:    Duration(30 * time.Second),
		},
		Auth: AuthConfig{
			Issuer:   "notesync",
			TokenTTL: Duration(30 * 24 * time.Hour),
		},
		Worker: WorkerConfig{
			EmbeddingSweepInterval:    Duration(5 * time.Minute),
			EmbeddingRetryMaxAttempts: 10,
			EmbeddingRetryBatchSize:   50,
		},
		Sync: SyncConfig{
			ZeroWatermark: "full",
			MaxBatchSize:  10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func readYAML(cfg *Config, path string, mustExist bool) error {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !mustExist:
		return nil
	case err != nil:
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides lets set, non-empty variables win over file values.
// Unparseable numbers and durations are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server
	envInt("NOTESYNC_PORT", &cfg.Server.Port)
	envDuration("NOTESYNC_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("NOTESYNC_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("NOTESYNC_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	if v := os.Getenv("NOTESYNC_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = n
		}
	}

	// Database
	if v := os.Getenv("NOTESYNC_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("NOTESYNC_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}

	// Embedding
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("NOTESYNC_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	envInt("NOTESYNC_EMBEDDING_QUEUE_SIZE", &cfg.Embedding.QueueSize)
	envDuration("NOTESYNC_EMBEDDING_PACING", &cfg.Embedding.Pacing)

	// Auth
	if v := os.Getenv("NOTESYNC_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("NOTESYNC_JWT_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}

	// Worker
	envDuration("NOTESYNC_EMBEDDING_SWEEP_INTERVAL", &cfg.Worker.EmbeddingSweepInterval)
	envInt("NOTESYNC_EMBEDDING_RETRY_MAX_ATTEMPTS", &cfg.Worker.EmbeddingRetryMaxAttempts)
	envInt("NOTESYNC_EMBEDDING_RETRY_BATCH_SIZE", &cfg.Worker.EmbeddingRetryBatchSize)

	// Sync
	if v := os.Getenv("NOTESYNC_ZERO_WATERMARK"); v != "" {
		cfg.Sync.ZeroWatermark = v
	}
	envDuration("NOTESYNC_WATERMARK_OVERLAP", &cfg.Sync.WatermarkOverlap)
	envInt("NOTESYNC_MAX_BATCH_SIZE", &cfg.Sync.MaxBatchSize)

	// Log
	if v := os.Getenv("NOTESYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("NOTESYNC_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	cfg.DevMode = os.Getenv("NOTESYNC_DEV_MODE") == "true"
}

// validate checks that required configuration values are set and that
// enumerated settings hold known values.
// In dev mode (NOTESYNC_DEV_MODE=true), the JWT secret is not required.
func (c *Config) validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	switch c.Sync.ZeroWatermark {
	case "full", "now":
	default:
		errs = append(errs, fmt.Errorf("unknown sync.zero_watermark %q (want full or now)", c.Sync.ZeroWatermark))
	}
	if c.Sync.WatermarkOverlap < 0 {
		errs = append(errs, errors.New("sync.watermark_overlap must not be negative"))
	}
	if c.Sync.MaxBatchSize < 0 {
		errs = append(errs, errors.New("sync.max_batch_size must not be negative"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if !c.DevMode && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("NOTESYNC_JWT_SECRET is required"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
