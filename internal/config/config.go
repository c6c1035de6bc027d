package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// placeholderJWTSecret is the value shipped in sample env files. It is public
// and never accepted as a signing key.
const placeholderJWTSecret = "change-me"

// minJWTSecretLength is the shortest operator-supplied signing key accepted.
const minJWTSecretLength = 16

// ErrInsecureJWTSecret is returned by Validate for a guessable signing key.
var ErrInsecureJWTSecret = errors.New("insecure AUTH_JWT_SECRET")

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Ledger   LedgerConfig
	Pricing  PricingConfig
	Auth     AuthConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LedgerConfig locates the flat-file account ledger and receipt log.
type LedgerConfig struct {
	DataDir      string
	AccountsFile string
	ReceiptsFile string
	AuditFile    string
}

// AccountsPath returns the full path of the account ledger.
func (c LedgerConfig) AccountsPath() string {
	return filepath.Join(c.DataDir, c.AccountsFile)
}

// ReceiptsPath returns the full path of the receipt log.
func (c LedgerConfig) ReceiptsPath() string {
	return filepath.Join(c.DataDir, c.ReceiptsFile)
}

// AuditPath returns the full path of the system audit trail.
func (c LedgerConfig) AuditPath() string {
	return filepath.Join(c.DataDir, c.AuditFile)
}

// PricingConfig holds fare settings.
type PricingConfig struct {
	InitialSurge float64
}

// AuthConfig holds dashboard token and bootstrap settings.
type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	BootstrapOperator string
	BootstrapPassword string

	// AllowOperatorSignup lets the public register endpoint create operators.
	AllowOperatorSignup bool

	// JWTSecretGenerated is set when AUTH_JWT_SECRET was unset and a random
	// per-process key is used. Tokens then do not survive a restart.
	JWTSecretGenerated bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds structured logger settings.
type LogConfig struct {
	Level   string
	Service string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Ledger: LedgerConfig{
			DataDir:      getEnv("LEDGER_DATA_DIR", "data"),
			AccountsFile: getEnv("LEDGER_ACCOUNTS_FILE", "users.txt"),
			ReceiptsFile: getEnv("LEDGER_RECEIPTS_FILE", "Global_Transactions.txt"),
			AuditFile:    getEnv("LEDGER_AUDIT_FILE", "SystemLogs.txt"),
		},
		Pricing: PricingConfig{
			InitialSurge: getFloatEnv("PRICING_SURGE", 1.0),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("AUTH_JWT_SECRET", ""),
			TokenTTL:            getDurationEnv("AUTH_TOKEN_TTL", 12*time.Hour),
			BootstrapOperator:   getEnv("AUTH_BOOTSTRAP_OPERATOR", "admin"),
			BootstrapPassword:   getEnv("AUTH_BOOTSTRAP_PASSWORD", ""),
			AllowOperatorSignup: getBoolEnv("AUTH_ALLOW_OPERATOR_SIGNUP", false),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getDurationEnv("REDIS_REPORT_CACHE_TTL", 5*time.Minute),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "swift-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:   getEnv("LOG_LEVEL", "INFO"),
			Service: getEnv("LOG_SERVICE", "swift"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = rand.Text()
		cfg.Auth.JWTSecretGenerated = true
	}
	return cfg
}

// Validate rejects settings the server must not start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecretGenerated {
		return nil
	}
	if c.Auth.JWTSecret == placeholderJWTSecret || len(c.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("%w: use at least %d characters and not the sample value", ErrInsecureJWTSecret, minJWTSecretLength)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
