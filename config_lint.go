package authclient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// LintSeverity ranks a LintWarning.
type LintSeverity int

const (
	// LintInfo marks a setting worth knowing about.
	LintInfo LintSeverity = iota
	// LintWarn marks a setting that is probably a mistake outside development.
	LintWarn
	// LintHigh marks a setting that can leave requests hanging or leak tokens.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding of Config.Lint.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the code of every warning in order.
func (ws LintResult) Codes() []string {
	codes := make([]string, 0, len(ws))
	for _, w := range ws {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns the warnings at or above min.
func (ws LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (ws LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range ws.BySeverity(min) {
		errs = append(errs, fmt.Errorf("%s [%s]: %s", w.Code, w.Severity, w.Message))
	}
	return errors.Join(errs...)
}

// Lint reports settings that pass Validate but are likely wrong for production.
// It never fails; call Validate first.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		add("base_url_insecure", LintHigh, "tokens are sent in clear text to %s", u.Host)
	}
	if c.API.Timeout == 0 {
		add("api_timeout_disabled", LintHigh, "requests without a context deadline can hang forever")
	}
	if c.API.Timeout > 0 && c.Retry.RefreshTimeout > c.API.Timeout {
		add("refresh_timeout_capped", LintInfo, "refresh is cut at the API timeout of %s", c.API.Timeout)
	}

	if c.Retry.MaxAttempts == 1 {
		add("single_attempt", LintWarn, "a 401 is never refreshed and retried")
	}
	if c.Retry.Backoff == 0 {
		add("backoff_zero", LintInfo, "transient refresh failures are retried immediately")
	}
	if c.Retry.RefreshLeeway > 5*time.Minute {
		add("leeway_large", LintWarn, "tokens living less than %s are refreshed on every request", c.Retry.RefreshLeeway)
	}

	switch c.Storage.Backend {
	case StorageMemory:
		add("storage_memory", LintInfo, "the session is lost when the process exits")
	case StorageRedis:
		if c.Storage.KeyPrefix == "" {
			add("redis_prefix_empty", LintWarn, "session keys are not namespaced")
		}
	case StorageFile:
		if !filepath.IsAbs(c.Storage.FilePath) {
			add("file_path_relative", LintWarn, "session file %q depends on the working directory", c.Storage.FilePath)
		}
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "session lifecycle events are not recorded")
	} else if !c.Audit.DropIfFull {
		add("audit_blocking", LintWarn, "a slow audit sink delays requests")
	}

	return ws
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
