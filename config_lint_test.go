package authclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLintDefaultConfigHasNoHighWarnings(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Lint().AsError(LintHigh))
	assert.Contains(t, cfg.Lint().Codes(), "storage_memory")
}

func TestLintFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
		sev    LintSeverity
	}{
		{"insecure base url", func(c *Config) { c.API.BaseURL = "http://api.example.com" }, "base_url_insecure", LintHigh},
		{"no timeout", func(c *Config) { c.API.Timeout = 0 }, "api_timeout_disabled", LintHigh},
		{"refresh timeout capped", func(c *Config) { c.Retry.RefreshTimeout = time.Minute }, "refresh_timeout_capped", LintInfo},
		{"single attempt", func(c *Config) { c.Retry.MaxAttempts = 1 }, "single_attempt", LintWarn},
		{"zero backoff", func(c *Config) { c.Retry.Backoff = 0 }, "backoff_zero", LintInfo},
		{"large leeway", func(c *Config) { c.Retry.RefreshLeeway = 10 * time.Minute }, "leeway_large", LintWarn},
		{"redis without prefix", func(c *Config) { c.Storage.Backend = StorageRedis }, "redis_prefix_empty", LintWarn},
		{"relative session file", func(c *Config) {
			c.Storage.Backend = StorageFile
			c.Storage.FilePath = "session.json"
		}, "file_path_relative", LintWarn},
		{"audit disabled", func(c *Config) {}, "audit_disabled", LintInfo},
		{"blocking audit", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.DropIfFull = false
		}, "audit_blocking", LintWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			var found *LintWarning
			for _, w := range cfg.Lint() {
				if w.Code == tt.code {
					found = &w
					break
				}
			}
			require.NotNil(t, found, "expected %s", tt.code)
			assert.Equal(t, tt.sev, found.Severity)
			assert.NotEmpty(t, found.Message)
		})
	}
}

func TestLintLoopbackHTTPIsAllowed(t *testing.T) {
	for _, base := range []string{"http://localhost:8000", "http://127.0.0.1:8000", "http://[::1]:8000"} {
		cfg := DefaultConfig()
		cfg.API.BaseURL = base
		assert.NotContains(t, cfg.Lint().Codes(), "base_url_insecure", base)
	}
}

func TestLintBySeverityAndAsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://api.example.com"
	cfg.Retry.MaxAttempts = 1
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	require.Len(t, high, 1)
	assert.Equal(t, "base_url_insecure", high[0].Code)

	assert.Len(t, ws.BySeverity(LintWarn), 2)

	err := ws.AsError(LintWarn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url_insecure [HIGH]")
	assert.Contains(t, err.Error(), "single_attempt [WARN]")
}

func TestLintSeverityString(t *testing.T) {
	assert.Equal(t, "INFO", LintInfo.String())
	assert.Equal(t, "HIGH", LintHigh.String())
	assert.Equal(t, "LintSeverity(9)", LintSeverity(9).String())
}
