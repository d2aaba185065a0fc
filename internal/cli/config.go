package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/acctstore/internal/factory"
	"github.com/mcoot/acctstore/internal/model"
	redisstorage "github.com/mcoot/acctstore/internal/storage/redis"
)

// Environment variables read by DefaultConfig
const (
	envDir       = "ACCTOOL_DIR"
	envStorage   = "ACCTOOL_STORAGE"
	envRedisURL  = "ACCTOOL_REDIS_URL"
	envFormat    = "ACCTOOL_FORMAT"
	envLock      = "ACCTOOL_LOCK"
	envConfig    = "ACCTOOL_CONFIG"
	envLogFormat = "ACCTOOL_LOG_FORMAT"
	envLogLevel  = "ACCTOOL_LOG_LEVEL"
)

// Config holds CLI configuration
type Config struct {
	Dir        string
	Storage    string
	RedisURL   string
	Format     string
	Lock       bool
	ConfigFile string
	Output     string
	LogFormat  string
	LogLevel   string
	Verbose    bool
}

// fileConfig is the YAML shape of --config
type fileConfig struct {
	Dir       string `yaml:"dir"`
	Storage   string `yaml:"storage"`
	RedisURL  string `yaml:"redis_url"`
	Format    string `yaml:"format"`
	Lock      *bool  `yaml:"lock"`
	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`
}

// DefaultConfig returns a Config with default values, overridden by the
// environment. A .env file in the working directory is loaded first if
// present; variables already set win over it.
func DefaultConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Dir:        getEnvOrDefault(envDir, factory.DefaultDir),
		Storage:    getEnvOrDefault(envStorage, factory.StorageTypeFS),
		RedisURL:   getEnvOrDefault(envRedisURL, redisstorage.DefaultConfig().URL),
		Format:     getEnvOrDefault(envFormat, model.DefaultFormat.String()),
		Lock:       getBoolEnv(envLock),
		ConfigFile: os.Getenv(envConfig),
		Output:     "text",
		LogFormat:  getEnvOrDefault(envLogFormat, "text"),
		LogLevel:   getEnvOrDefault(envLogLevel, "warn"),
		Verbose:    false,
	}
}

// LoadFile fills every setting that was given neither as a flag nor through
// the environment from the YAML file at c.ConfigFile. A missing file is only
// an error when it was asked for explicitly.
func (c *Config) LoadFile(flags *pflag.FlagSet) error {
	if c.ConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !flags.Changed("config") && os.Getenv(envConfig) == "" {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", c.ConfigFile, err)
	}

	unset := func(flag, env string) bool {
		return !flags.Changed(flag) && os.Getenv(env) == ""
	}
	if fc.Dir != "" && unset("dir", envDir) {
		c.Dir = fc.Dir
	}
	if fc.Storage != "" && unset("storage", envStorage) {
		c.Storage = fc.Storage
	}
	if fc.RedisURL != "" && unset("redis-url", envRedisURL) {
		c.RedisURL = fc.RedisURL
	}
	if fc.Format != "" && unset("format", envFormat) {
		c.Format = fc.Format
	}
	if fc.Lock != nil && unset("lock", envLock) {
		c.Lock = *fc.Lock
	}
	if fc.LogFormat != "" && unset("log-format", envLogFormat) {
		c.LogFormat = fc.LogFormat
	}
	if fc.LogLevel != "" && os.Getenv(envLogLevel) == "" {
		c.LogLevel = fc.LogLevel
	}
	return nil
}

// FactoryConfig turns the CLI settings into application wiring
func (c *Config) FactoryConfig(logger *slog.Logger) (factory.Config, error) {
	format, err := model.ParseFormatVersion(c.Format)
	if err != nil {
		return factory.Config{}, fmt.Errorf("--format %q: %w", c.Format, err)
	}

	fc := factory.Config{
		StorageType: c.Storage,
		Dir:         c.Dir,
		Format:      format,
		Lock:        c.Lock,
		Logger:      logger,
	}
	if c.Storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		fc.RedisConfig = &redisCfg
	}
	return fc, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getBoolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
