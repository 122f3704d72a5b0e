// Package config loads swiftshare settings from defaults, an optional YAML
// file and SWIFTSHARE_* environment variables through viper.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/opd-ai/swiftshare"
	"github.com/opd-ai/swiftshare/journal"
	"github.com/opd-ai/swiftshare/limits"
	"github.com/opd-ai/swiftshare/transfer"
	"github.com/opd-ai/swiftshare/transport"
)

// EnvPrefix is prepended to environment variable names, so that
// receiver.port is read from SWIFTSHARE_RECEIVER_PORT.
const EnvPrefix = "SWIFTSHARE"

// DefaultReceiverPort is the port a receiver listens on unless told otherwise.
const DefaultReceiverPort = 8765

var (
	ErrInvalidChunkSize  = errors.New("chunk size out of range")
	ErrInvalidTimeout    = errors.New("timeouts must be positive")
	ErrInvalidBufferSize = errors.New("socket buffer size must not be negative")
	ErrInvalidLogLevel   = errors.New("unknown log level")
	ErrInvalidRedisDB    = errors.New("redis db must not be negative")
)

// Config holds all application configuration
type Config struct {
	Receiver ReceiverConfig `mapstructure:"receiver"`
	Transfer TransferConfig `mapstructure:"transfer"`
	API      APIConfig      `mapstructure:"api"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

// ReceiverConfig holds where and on which port files are received.
type ReceiverConfig struct {
	Port        uint16 `mapstructure:"port"`
	DownloadDir string `mapstructure:"download_dir"`
}

// TransferConfig holds chunking, timeout and socket tuning.
type TransferConfig struct {
	ChunkSize   uint32        `mapstructure:"chunk_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	IOTimeout   time.Duration `mapstructure:"io_timeout"`
	GraceWindow time.Duration `mapstructure:"grace_window"`
	BufferSize  int           `mapstructure:"buffer_size"`
	Checksums   bool          `mapstructure:"checksums"`
}

// APIConfig holds the HTTP control API settings.
type APIConfig struct {
	Listen           string        `mapstructure:"listen"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// RedisConfig selects the redis journal. An empty Addr keeps the journal in
// memory.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Capacity  int    `mapstructure:"capacity"`
}

// LogConfig holds logrus level and format.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Receiver: ReceiverConfig{
			Port:        DefaultReceiverPort,
			DownloadDir: defaultDownloadDir(),
		},
		Transfer: TransferConfig{
			ChunkSize:   limits.DefaultChunkSize,
			DialTimeout: transport.DefaultDialTimeout,
			IOTimeout:   transport.DefaultIOTimeout,
			GraceWindow: transfer.DefaultGraceWindow,
			BufferSize:  limits.SocketBufferSize,
			Checksums:   true,
		},
		API: APIConfig{
			Listen:           "127.0.0.1:8766",
			ProgressInterval: 250 * time.Millisecond,
		},
		Redis: RedisConfig{
			KeyPrefix: journal.DefaultKeyPrefix,
			Capacity:  journal.DefaultCapacity,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "SwiftShare"
	}
	return filepath.Join(home, "Downloads", "SwiftShare")
}

// SetDefaults registers every key with its default, which also makes the
// keys visible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("receiver.port", d.Receiver.Port)
	v.SetDefault("receiver.download_dir", d.Receiver.DownloadDir)
	v.SetDefault("transfer.chunk_size", d.Transfer.ChunkSize)
	v.SetDefault("transfer.dial_timeout", d.Transfer.DialTimeout)
	v.SetDefault("transfer.io_timeout", d.Transfer.IOTimeout)
	v.SetDefault("transfer.grace_window", d.Transfer.GraceWindow)
	v.SetDefault("transfer.buffer_size", d.Transfer.BufferSize)
	v.SetDefault("transfer.checksums", d.Transfer.Checksums)
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.progress_interval", d.API.ProgressInterval)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("redis.capacity", d.Redis.Capacity)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
}

// NewViper returns a viper instance wired for SWIFTSHARE_* variables. When
// configFile is empty, $HOME/.swiftshare.yaml is read if present.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "NewViper",
				"error":    err.Error(),
			}).Warn("Could not find home directory")
			return v, nil
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".swiftshare")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return v, nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewViper",
		"file":     v.ConfigFileUsed(),
	}).Info("Using config file")
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if err := limits.ValidateChunkSize(c.Transfer.ChunkSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChunkSize, err)
	}
	if c.Transfer.DialTimeout <= 0 || c.Transfer.IOTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Transfer.GraceWindow < 0 {
		return ErrInvalidTimeout
	}
	if c.Transfer.BufferSize < 0 {
		return ErrInvalidBufferSize
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	if c.Redis.DB < 0 {
		return ErrInvalidRedisDB
	}
	return nil
}

// TransferOptions converts the settings into state machine tuning.
func (c *Config) TransferOptions() transfer.Config {
	tc := transfer.DefaultConfig()
	tc.ChunkSize = c.Transfer.ChunkSize
	tc.DialTimeout = c.Transfer.DialTimeout
	tc.GraceWindow = c.Transfer.GraceWindow
	tc.Conn.IOTimeout = c.Transfer.IOTimeout
	tc.Conn.BufferSize = c.Transfer.BufferSize
	return tc
}

// EngineOptions builds engine options. The journal is left nil; see
// OpenJournal.
func (c *Config) EngineOptions() *swiftshare.Options {
	opts := swiftshare.NewOptions()
	opts.DownloadDir = c.Receiver.DownloadDir
	opts.Transfer = c.TransferOptions()
	opts.Checksums = c.Transfer.Checksums
	return opts
}

// OpenJournal returns a redis journal when an address is configured and an
// in-memory one otherwise.
func (c *Config) OpenJournal(ctx context.Context) (journal.Journal, error) {
	if c.Redis.Addr == "" {
		return journal.NewMemoryJournal(c.Redis.Capacity), nil
	}
	return journal.NewRedisJournal(ctx, journal.RedisOptions{
		Addr:      c.Redis.Addr,
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		KeyPrefix: c.Redis.KeyPrefix,
		Capacity:  c.Redis.Capacity,
	})
}

// ConfigureLogging applies the log level and format to the standard logrus
// logger.
func (c *Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	logrus.SetLevel(level)
	if c.Log.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
