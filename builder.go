package authclient

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/authclient/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Client. A Builder can be used once.
type Builder struct {
	config Config
	store  session.Store
	redis  redis.UniversalClient

	httpClient *http.Client
	logger     *slog.Logger
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets API.BaseURL.
func (b *Builder) WithBaseURL(base string) *Builder {
	b.config.API.BaseURL = base
	return b
}

// WithStore sets the session store. It overrides Storage.Backend.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithRedis supplies the client used by the redis storage backend. The caller keeps
// ownership of it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the client used for every API call. Its Timeout is left alone.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. Events reach the sink only when
// Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	if !enabled {
		b.config.Metrics.EnableLatencyHistograms = false
	}
	return b
}

// WithLatencyHistograms toggles Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(strings.TrimRight(cfg.API.BaseURL, "/"))
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, w := range cfg.Lint().BySeverity(LintWarn) {
		logger.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	hc := b.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.API.Timeout}
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: hc,
		logger:     logger,
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		store, err = b.openStore(cfg, c)
		if err != nil {
			return nil, err
		}
	}

	c.metrics = NewMetrics(cfg.Metrics)
	c.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)

	refreshURL, err := c.resolve(cfg.API.RefreshPath, nil)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.tokens = newTokenManager(cfg, store, hc, refreshURL, logger, c.metrics, c.audit)

	b.built = true

	return c, nil
}

func (b *Builder) openStore(cfg Config, c *Client) (session.Store, error) {
	switch cfg.Storage.Backend {
	case StorageRedis:
		rdb := b.redis
		if rdb == nil {
			owned := redis.NewClient(&redis.Options{
				Addr:     cfg.Storage.RedisAddr,
				Password: cfg.Storage.RedisPassword,
				DB:       cfg.Storage.RedisDB,
			})
			c.closers = append(c.closers, owned.Close)
			rdb = owned
		}
		return session.NewRedisStore(rdb, cfg.Storage.KeyPrefix, cfg.Storage.TTL), nil
	case StorageFile:
		return session.NewFileStore(cfg.Storage.FilePath), nil
	case StorageMemory:
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported Storage Backend %q", cfg.Storage.Backend)
	}
}
