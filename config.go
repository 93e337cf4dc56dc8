package authclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config defines the client configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	API     APIConfig     `envPrefix:"API_"`
	Retry   RetryConfig   `envPrefix:"RETRY_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	Audit   AuditConfig   `envPrefix:"AUDIT_"`
	Metrics MetricsConfig `envPrefix:"METRICS_"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote API and its endpoints.
type APIConfig struct {
	BaseURL    string        `env:"BASE_URL"`
	Timeout    time.Duration `env:"TIMEOUT"`
	SignupJSON bool          `env:"SIGNUP_JSON"`
	UserAgent  string        `env:"USER_AGENT"`

	LoginPath   string `env:"LOGIN_PATH"`
	SignupPath  string `env:"SIGNUP_PATH"`
	RefreshPath string `env:"REFRESH_PATH"`
	LogoutPath  string `env:"LOGOUT_PATH"`
	ProfilePath string `env:"PROFILE_PATH"`
	MePath      string `env:"ME_PATH"`
	AvatarPath  string `env:"AVATAR_PATH"`
	ContactPath string `env:"CONTACTS_PATH"`
	PostsPath   string `env:"POSTS_PATH"`
}

/*
====================================
RETRY CONFIG
====================================
*/

// maxRetryAttempts caps RetryConfig.MaxAttempts.
const maxRetryAttempts = 4

// RetryConfig bounds the refresh-and-retry loop of authenticated requests.
type RetryConfig struct {
	// MaxAttempts is the number of 401 answers a single logical request may see
	// before it fails with ErrSessionExpired. It must be within [1, 4].
	MaxAttempts int `env:"MAX_ATTEMPTS"`
	// Backoff is the wait after a transient refresh failure.
	Backoff time.Duration `env:"BACKOFF"`
	// RefreshTimeout caps one shared refresh call. Waiters leaving early do not cancel it.
	RefreshTimeout time.Duration `env:"REFRESH_TIMEOUT"`
	// RefreshLeeway enables proactive refresh of JWT access tokens expiring within it.
	// Zero disables it.
	RefreshLeeway time.Duration `env:"REFRESH_LEEWAY"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects a session.Store implementation.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageRedis  StorageBackend = "redis"
	StorageFile   StorageBackend = "file"
)

// StorageConfig describes where the session is persisted.
type StorageConfig struct {
	Backend       StorageBackend `env:"BACKEND"`
	RedisAddr     string         `env:"REDIS_ADDR"`
	RedisPassword string         `env:"REDIS_PASSWORD"`
	RedisDB       int            `env:"REDIS_DB"`
	KeyPrefix     string         `env:"KEY_PREFIX"`
	TTL           time.Duration  `env:"TTL"`
	FilePath      string         `env:"FILE_PATH"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:     "http://127.0.0.1:8000",
			Timeout:     10 * time.Second,
			UserAgent:   "authclient",
			LoginPath:   "/api/auth/login",
			SignupPath:  "/api/auth/signup",
			RefreshPath: "/api/auth/refresh_token",
			LogoutPath:  "/api/auth/logout",
			ProfilePath: "/api/users/profile/",
			MePath:      "/api/users/me/",
			AvatarPath:  "/api/users/avatar/",
			ContactPath: "/api/contacts",
			PostsPath:   "/posts/user/",
		},
		Retry: RetryConfig{
			MaxAttempts:    4,
			Backoff:        3000 * time.Millisecond,
			RefreshTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Backend:   StorageMemory,
			RedisAddr: "127.0.0.1:6379",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("API BaseURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("API BaseURL must be http or https")
	}
	if u.Host == "" {
		return errors.New("API BaseURL must include a host")
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	for name, p := range map[string]string{
		"LoginPath":   c.API.LoginPath,
		"SignupPath":  c.API.SignupPath,
		"RefreshPath": c.API.RefreshPath,
		"LogoutPath":  c.API.LogoutPath,
		"ProfilePath": c.API.ProfilePath,
		"MePath":      c.API.MePath,
		"AvatarPath":  c.API.AvatarPath,
		"ContactPath": c.API.ContactPath,
		"PostsPath":   c.API.PostsPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("API %s must start with /", name)
		}
	}

	// Retry
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("Retry MaxAttempts must be > 0")
	}
	if c.Retry.MaxAttempts > maxRetryAttempts {
		return fmt.Errorf("Retry MaxAttempts must be <= %d", maxRetryAttempts)
	}
	if c.Retry.Backoff < 0 {
		return errors.New("Retry Backoff must be >= 0")
	}
	if c.Retry.RefreshTimeout <= 0 {
		return errors.New("Retry RefreshTimeout must be > 0")
	}
	if c.Retry.RefreshLeeway < 0 {
		return errors.New("Retry RefreshLeeway must be >= 0")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("Storage RedisAddr is required for the redis backend")
		}
		if c.Storage.RedisDB < 0 {
			return errors.New("Storage RedisDB must be >= 0")
		}
	case StorageFile:
		if c.Storage.FilePath == "" {
			return errors.New("Storage FilePath is required for the file backend")
		}
	default:
		return fmt.Errorf("unsupported Storage Backend %q", c.Storage.Backend)
	}
	if c.Storage.TTL < 0 {
		return errors.New("Storage TTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
