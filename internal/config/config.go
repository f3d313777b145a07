// Package config loads file-based settings for embedding applications and
// the command-line tools. Settings come from an optional TOML file with
// environment variable overrides on top.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"canvascore/internal/blob"
	"canvascore/internal/core"
	"canvascore/internal/infra/persistence/memory"
	"canvascore/internal/infra/persistence/postgres"
	"canvascore/internal/infra/persistence/sqlite"
	"canvascore/pkg/domain"
)

// StorageDriver names a snapshot persistence backend.
type StorageDriver string

const (
	// StorageMemory keeps snapshots in process memory (tests, ephemeral sessions).
	StorageMemory StorageDriver = "memory"
	// StorageSQLite persists to a local database file (default).
	StorageSQLite StorageDriver = "sqlite"
	// StoragePostgres persists to Postgres for hosted sessions.
	StoragePostgres StorageDriver = "postgres"
)

// Config is the full settings document.
type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	Blob        BlobConfig        `toml:"blob"`
	History     HistoryConfig     `toml:"history"`
	Performance PerformanceConfig `toml:"performance"`
	Autosave    AutosaveConfig    `toml:"autosave"`
}

// StorageConfig selects the snapshot persistence backend.
type StorageConfig struct {
	Driver      string `toml:"driver"` // memory|sqlite|postgres
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// BlobConfig selects the snapshot archive backend.
type BlobConfig struct {
	Driver      string `toml:"driver"` // fs|s3|memory, empty disables archiving
	FSRoot      string `toml:"fs_root"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3PathStyle bool   `toml:"s3_path_style"`
	Prefix      string `toml:"prefix"`
}

// HistoryConfig bounds the undo cache.
type HistoryConfig struct {
	MaxEntries int   `toml:"max_entries"`
	MaxBytes   int64 `toml:"max_bytes"`
}

// PerformanceConfig tunes dispatch timing budgets.
type PerformanceConfig struct {
	SoftBudgetMS int  `toml:"soft_budget_ms"`
	HardBudgetMS int  `toml:"hard_budget_ms"`
	Strict       bool `toml:"strict"`
}

// AutosaveConfig tunes debounced background saves.
type AutosaveConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds"`
	ActionThreshold int  `toml:"action_threshold"`
	MaxRetries      int  `toml:"max_retries"`
}

// Default returns the settings used when no file and no overrides exist.
func Default() Config {
	return Config{
		Storage:  StorageConfig{Driver: string(StorageSQLite)},
		Autosave: AutosaveConfig{Enabled: true},
	}
}

// Load reads the TOML file at path (a missing file yields defaults) and
// applies environment overrides. Unknown keys in the file are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to env overrides
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			dec := toml.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Storage.Driver, "CANVASCORE_STORAGE_DRIVER")
	setString(&cfg.Storage.SQLitePath, "CANVASCORE_SQLITE_PATH")
	setString(&cfg.Storage.PostgresDSN, "CANVASCORE_POSTGRES_DSN")
	setString(&cfg.Blob.Driver, "CANVASCORE_BLOB_DRIVER")
	setString(&cfg.Blob.FSRoot, "CANVASCORE_BLOB_FS_ROOT")
	setString(&cfg.Blob.S3Bucket, "CANVASCORE_BLOB_S3_BUCKET")
	setString(&cfg.Blob.S3Region, "CANVASCORE_BLOB_S3_REGION")
	setString(&cfg.Blob.S3Endpoint, "CANVASCORE_BLOB_S3_ENDPOINT")
	if v := os.Getenv("CANVASCORE_BLOB_S3_PATH_STYLE"); v != "" {
		cfg.Blob.S3PathStyle, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("CANVASCORE_AUTOSAVE"); v != "" {
		cfg.Autosave.Enabled, _ = strconv.ParseBool(v)
	}
}

func (c Config) validate() error {
	switch StorageDriver(c.Storage.Driver) {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case "", blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Performance.SoftBudgetMS < 0 || c.Performance.HardBudgetMS < 0 {
		return fmt.Errorf("performance budgets must be non-negative")
	}
	return nil
}

// OpenSnapshotStore builds the configured persistence backend.
func (c Config) OpenSnapshotStore(ctx context.Context) (domain.SnapshotStore, error) {
	switch StorageDriver(c.Storage.Driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(c.Storage.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, c.Storage.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
}

// OpenBlobStore builds the configured archive backend, or nil when
// archiving is disabled.
func (c Config) OpenBlobStore(ctx context.Context) (blob.Store, error) {
	switch blob.Driver(c.Blob.Driver) {
	case "":
		return nil, nil
	case blob.DriverFilesystem:
		return blob.NewFilesystem(c.Blob.FSRoot)
	case blob.DriverMemory:
		return blob.NewMemory(), nil
	case blob.DriverS3:
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:    c.Blob.S3Bucket,
			Region:    c.Blob.S3Region,
			Endpoint:  c.Blob.S3Endpoint,
			PathStyle: c.Blob.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
}

// ServiceOptions translates the settings into service construction options,
// opening the configured backends.
func (c Config) ServiceOptions(ctx context.Context) ([]core.Option, error) {
	opts := []core.Option{
		core.WithHistoryLimits(core.HistoryConfig{
			MaxEntries: c.History.MaxEntries,
			MaxBytes:   c.History.MaxBytes,
		}),
		core.WithPerformance(core.PerformanceConfig{
			SoftBudget: time.Duration(c.Performance.SoftBudgetMS) * time.Millisecond,
			HardBudget: time.Duration(c.Performance.HardBudgetMS) * time.Millisecond,
			Strict:     c.Performance.Strict,
		}),
	}
	snaps, err := c.OpenSnapshotStore(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, core.WithSnapshotStore(snaps))
	if c.Autosave.Enabled {
		opts = append(opts, core.WithAutosave(core.AutosaveConfig{
			Interval:        time.Duration(c.Autosave.IntervalSeconds) * time.Second,
			ActionThreshold: c.Autosave.ActionThreshold,
			MaxRetries:      c.Autosave.MaxRetries,
		}))
	}
	bs, err := c.OpenBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	if bs != nil {
		opts = append(opts, core.WithSnapshotArchive(core.NewSnapshotArchive(bs, c.Blob.Prefix, nil)))
	}
	return opts, nil
}
