package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/quant"
)

// Config holds all server configuration
type Config struct {
	Server    ServerConfig
	Codec     CodecConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 8080)
	RequestTimeout  time.Duration // Request timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	EnableTLS       bool          // Enable TLS
	CertFile        string        // TLS certificate file
	KeyFile         string        // TLS key file
}

// CodecConfig holds quantization defaults and limits
type CodecConfig struct {
	DefaultKind      string // Target kind when a request names none (default: "uint8")
	DefaultRoundMode string // Log round mode when a request names none (default: "linspace")
	MaxElements      int    // Max tensor elements per request
	MaxRank          int    // Max tensor rank per request
}

// AuthConfig holds JWT authentication configuration
type AuthConfig struct {
	Enabled   bool          // Require bearer tokens on codec endpoints
	JWTSecret string        // HMAC signing secret
	TokenTTL  time.Duration // Lifetime of issued tokens
}

// RateLimitConfig holds request rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool    // Enable per-client rate limiting
	RequestsPerSecond float64 // Sustained rate per client
	Burst             int     // Burst allowance per client
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
		},
		Codec: CodecConfig{
			DefaultKind:      "uint8",
			DefaultRoundMode: "linspace",
			MaxElements:      16 << 20,
			MaxRank:          32,
		},
		Auth: AuthConfig{
			Enabled:   false,
			JWTSecret: "",
			TokenTTL:  time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 100,
			Burst:             200,
		},
		LogLevel: "INFO",
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := Default()

	// Server configuration
	if host := os.Getenv("NUMQUANT_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("NUMQUANT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if timeout := os.Getenv("NUMQUANT_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if timeout := os.Getenv("NUMQUANT_SHUTDOWN_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.ShutdownTimeout = t
		}
	}
	if enableTLS := os.Getenv("NUMQUANT_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("NUMQUANT_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("NUMQUANT_TLS_KEY")
	}

	// Codec configuration
	if kind := os.Getenv("NUMQUANT_DEFAULT_KIND"); kind != "" {
		cfg.Codec.DefaultKind = kind
	}
	if mode := os.Getenv("NUMQUANT_DEFAULT_ROUND_MODE"); mode != "" {
		cfg.Codec.DefaultRoundMode = mode
	}
	if max := os.Getenv("NUMQUANT_MAX_ELEMENTS"); max != "" {
		if m, err := strconv.Atoi(max); err == nil {
			cfg.Codec.MaxElements = m
		}
	}
	if max := os.Getenv("NUMQUANT_MAX_RANK"); max != "" {
		if m, err := strconv.Atoi(max); err == nil {
			cfg.Codec.MaxRank = m
		}
	}

	// Auth configuration
	if auth := os.Getenv("NUMQUANT_AUTH_ENABLED"); auth == "true" {
		cfg.Auth.Enabled = true
	}
	if secret := os.Getenv("NUMQUANT_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if ttl := os.Getenv("NUMQUANT_TOKEN_TTL"); ttl != "" {
		if t, err := time.ParseDuration(ttl); err == nil {
			cfg.Auth.TokenTTL = t
		}
	}

	// Rate limit configuration
	if rl := os.Getenv("NUMQUANT_RATE_LIMIT_ENABLED"); rl == "true" {
		cfg.RateLimit.Enabled = true
	}
	if rps := os.Getenv("NUMQUANT_RATE_LIMIT_RPS"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = r
		}
	}
	if burst := os.Getenv("NUMQUANT_RATE_LIMIT_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = b
		}
	}

	if level := os.Getenv("NUMQUANT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	// Codec validation
	if _, err := quant.ParseKind(c.Codec.DefaultKind); err != nil {
		return fmt.Errorf("invalid default kind %q", c.Codec.DefaultKind)
	}
	if _, err := quant.ParseRoundMode(c.Codec.DefaultRoundMode); err != nil {
		return fmt.Errorf("invalid default round mode %q", c.Codec.DefaultRoundMode)
	}
	if c.Codec.MaxElements < 1 {
		return fmt.Errorf("invalid max elements: %d (must be > 0)", c.Codec.MaxElements)
	}
	if c.Codec.MaxRank < 1 {
		return fmt.Errorf("invalid max rank: %d (must be > 0)", c.Codec.MaxRank)
	}

	// Auth validation
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but JWT secret not specified")
	}

	// Rate limit validation
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("invalid rate limit: %f (must be > 0)", c.RateLimit.RequestsPerSecond)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("invalid rate limit burst: %d (must be > 0)", c.RateLimit.Burst)
		}
	}

	return nil
}

// Address returns the server address (host:port)
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
