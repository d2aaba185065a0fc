package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/acctstore/internal/dependencies/clock"
	"github.com/mcoot/acctstore/internal/metrics"
	"github.com/mcoot/acctstore/internal/model"
	"github.com/mcoot/acctstore/internal/services/accounts"
	"github.com/mcoot/acctstore/internal/services/auth"
	"github.com/mcoot/acctstore/internal/storage"
	"github.com/mcoot/acctstore/internal/storage/disk"
	"github.com/mcoot/acctstore/internal/storage/memory"
	redisstorage "github.com/mcoot/acctstore/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeFS     = "fs"
	StorageTypeDisk   = "disk" // alias of fs
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// DefaultDir is the account directory used when Config.Dir is empty
const DefaultDir = "accounts"

// App contains all wired application components
type App struct {
	// Storage
	Directory storage.Directory
	Locker    storage.Locker

	// External dependencies
	Clock   clock.Clock
	Metrics *metrics.Metrics

	// Services
	Store       *accounts.Store
	AuthService *auth.Service

	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// StorageType selects the directory backend ("fs", "memory" or "redis")
	// If empty, defaults to "fs"
	StorageType string
	// Dir is the account directory, or the key namespace for redis
	// If empty, defaults to DefaultDir
	Dir string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Format is the account file layout the store reads and writes
	// If unset, defaults to model.DefaultFormat
	Format model.FormatVersion
	// Lock guards create and rename with a directory-wide lock
	// (a lock file for fs, a lock key for redis)
	Lock bool
	// AuthConfig holds argon2 parameters (optional)
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Registerer receives the store metrics (optional)
	Registerer prometheus.Registerer
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	root := cfg.Dir
	if root == "" {
		root = DefaultDir
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeFS
	}

	var (
		dir     storage.Directory
		locker  storage.Locker = storage.NopLocker{}
		closers []func() error
	)

	switch storageType {
	case StorageTypeFS, StorageTypeDisk:
		diskDir, err := disk.New(root)
		if err != nil {
			return nil, fmt.Errorf("open account directory: %w", err)
		}
		dir = diskDir
		if cfg.Lock {
			locker = disk.NewFileLocker(root)
		}
	case StorageTypeMemory:
		dir = memory.New(root)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisDir, err := redisstorage.New(*cfg.RedisConfig, root)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		dir = redisDir
		closers = append(closers, redisDir.Close)
		if cfg.Lock {
			locker = redisstorage.NewLocker(redisDir.Client(), root, *cfg.RedisConfig)
		}
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'fs', 'memory' or 'redis'", storageType)
	}

	app := newWithDependencies(dir, locker, clock.New(), cfg.Format, cfg.AuthConfig, cfg.Registerer, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	dir storage.Directory,
	locker storage.Locker,
	clk clock.Clock,
	format model.FormatVersion,
	authCfg auth.Config,
	reg prometheus.Registerer,
	logger *slog.Logger,
) *App {
	m := metrics.New(reg)

	store := accounts.New(dir, clk, accounts.Config{
		Version: format,
		Locker:  locker,
		Metrics: m,
	}, logger)
	authService := auth.New(store, authCfg, logger)

	return &App{
		Directory:   dir,
		Locker:      locker,
		Clock:       clk,
		Metrics:     m,
		Store:       store,
		AuthService: authService,
	}
}

// Close releases backend connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
