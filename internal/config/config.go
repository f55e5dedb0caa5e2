package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the full application configuration.
type Config struct {
	Detect DetectConfig `yaml:"detect" mapstructure:"detect"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DetectConfig holds the detection policy.
type DetectConfig struct {
	UseAutomatic        bool     `yaml:"use_automatic" mapstructure:"use_automatic"`
	UseManual           bool     `yaml:"use_manual" mapstructure:"use_manual"`
	KeepThreshold       float64  `yaml:"keep_threshold" mapstructure:"keep_threshold"`
	ActionableThreshold float64  `yaml:"actionable_threshold" mapstructure:"actionable_threshold"`
	FenceTag            string   `yaml:"fence_tag" mapstructure:"fence_tag"`
	Extensions          []string `yaml:"extensions" mapstructure:"extensions"`
}

// StoreConfig configures baseline persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`

	// ConnectAttempts bounds connection attempts to a database that is not
	// yet accepting connections.
	ConnectAttempts int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	DebounceMs int      `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`
}

// Debounce returns the quiet interval as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RatePerSec     float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst          int      `yaml:"burst" mapstructure:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("draftscan")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DRAFTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("detect.use_automatic", true)
	v.SetDefault("detect.use_manual", true)
	v.SetDefault("detect.keep_threshold", 0.3)
	v.SetDefault("detect.actionable_threshold", 0.4)
	v.SetDefault("detect.fence_tag", "autotex")
	v.SetDefault("detect.extensions", []string{".tex", ".latex"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "draftscan.db")
	v.SetDefault("store.connect_attempts", 5)
	v.SetDefault("watch.debounce_ms", 300)
	v.SetDefault("watch.ignore", []string{".git", "*.swp", "*.tmp", "*~"})
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_per_sec", 20)
	v.SetDefault("server.burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the detection policy and collects every problem.
func (d DetectConfig) Validate() error {
	var errs []string
	if d.KeepThreshold < 0 || d.KeepThreshold > 1 {
		errs = append(errs, "detect.keep_threshold must be between 0 and 1")
	}
	if d.ActionableThreshold < 0 || d.ActionableThreshold > 1 {
		errs = append(errs, "detect.actionable_threshold must be between 0 and 1")
	}
	if strings.TrimSpace(d.FenceTag) == "" {
		errs = append(errs, "detect.fence_tag is required")
	} else if strings.ContainsAny(d.FenceTag, " \t\r\n`") {
		errs = append(errs, "detect.fence_tag must not contain whitespace or backticks")
	}
	if len(d.Extensions) == 0 {
		errs = append(errs, "detect.extensions must not be empty")
	}
	for _, ext := range d.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("detect.extensions entry %q must start with a dot", ext))
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the settings a command mode needs. Modes: detect, watch,
// serve.
func (c *Config) Validate(mode string) error {
	var errs []string
	if err := c.Detect.Validate(); err != nil {
		errs = append(errs, strings.TrimPrefix(err.Error(), "config: "))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite, postgres or memory", c.Store.Driver))
	}

	switch mode {
	case "detect":
	case "watch":
		if c.Watch.DebounceMs <= 0 {
			errs = append(errs, "watch.debounce_ms must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RatePerSec <= 0 {
			errs = append(errs, "server.rate_per_sec must be > 0")
		}
		if c.Server.Burst < 1 {
			errs = append(errs, "server.burst must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger. When cfg.File is set, JSON
// entries are also written to a size-rotated file.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			zapCfg.Level,
		)
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	zap.ReplaceGlobals(logger)

	return nil
}
