package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	IPFS     IPFSConfig     `mapstructure:"ipfs"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// IPFSConfig holds content-store configuration.
type IPFSConfig struct {
	// APIURL is the IPFS node API used for uploads.
	APIURL string `mapstructure:"api_url"`
	// Gateways are equivalent read endpoints, tried in order on download.
	Gateways []string `mapstructure:"gateways"`
	// AuthToken is an optional bearer token for hosted pinning services.
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LedgerConfig holds blockchain client configuration.
type LedgerConfig struct {
	// Enabled determines whether chain steps run at all. When false,
	// deployments skip the ledger steps.
	Enabled bool `mapstructure:"enabled"`
	// RPCURL is the chain node endpoint.
	RPCURL string `mapstructure:"rpc_url"`
	// PrivateKey is the hex-encoded signing key.
	// Set via DALD_LEDGER_PRIVATE_KEY, never in the config file.
	PrivateKey string `mapstructure:"private_key"`
	ChainID    int64  `mapstructure:"chain_id"`
	// ConfirmTimeout bounds the wait for transaction confirmation.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

// EngineConfig holds execution-engine configuration, local and remote.
type EngineConfig struct {
	// LocalRoot is the directory a co-located engine watches. Empty
	// disables local execution.
	LocalRoot string `mapstructure:"local_root"`
	// RemoteURL is the remote workflow service base URL. Empty disables
	// remote execution.
	RemoteURL string `mapstructure:"remote_url"`
	// RemoteToken is an optional bearer token for the remote service.
	RemoteToken   string        `mapstructure:"remote_token"`
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", "./data/dald.db")
	v.SetDefault("ipfs.api_url", "http://127.0.0.1:5001")
	v.SetDefault("ipfs.gateways", []string{"http://127.0.0.1:8081"})
	v.SetDefault("ipfs.auth_token", "")
	v.SetDefault("ipfs.timeout", "60s")
	v.SetDefault("ledger.enabled", false)
	v.SetDefault("ledger.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("ledger.private_key", "")
	v.SetDefault("ledger.chain_id", 1337)
	v.SetDefault("ledger.confirm_timeout", "90s")
	v.SetDefault("engine.local_root", "")
	v.SetDefault("engine.remote_url", "")
	v.SetDefault("engine.remote_token", "")
	v.SetDefault("engine.remote_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Ledger.Enabled && cfg.Ledger.PrivateKey == "" {
		return nil, fmt.Errorf("ledger.private_key is required when the ledger is enabled")
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
