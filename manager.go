package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/session"
	"golang.org/x/sync/singleflight"
)

// refreshKey is the only singleflight key: at most one refresh runs per manager.
const refreshKey = "refresh"

var errRefreshRejected = errors.New("refresh rejected with 401")

// TokenManager owns the persisted access/refresh pair and performs single-flight
// refresh against the API.
//
// Concurrent Refresh callers share one network call. A caller whose context ends
// stops waiting without cancelling the shared call. All writes to the store go
// through the manager and are serialized, and a refresh result is only written if
// the session it was derived from is still the stored one, so a logout or a new
// login that lands while a refresh is in flight is never overwritten.
type TokenManager struct {
	store      session.Store
	httpClient *http.Client
	refreshURL string
	userAgent  string
	timeout    time.Duration
	leeway     time.Duration

	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher

	group   singleflight.Group
	writeMu sync.Mutex
	now     func() time.Time
}

func newTokenManager(cfg Config, store session.Store, hc *http.Client, refreshURL string, logger *slog.Logger, metrics *Metrics, audit *auditDispatcher) *TokenManager {
	return &TokenManager{
		store:      store,
		httpClient: hc,
		refreshURL: refreshURL,
		userAgent:  cfg.API.UserAgent,
		timeout:    cfg.Retry.RefreshTimeout,
		leeway:     cfg.Retry.RefreshLeeway,
		logger:     logger,
		metrics:    metrics,
		audit:      audit,
		now:        time.Now,
	}
}

// AccessToken returns the stored access token without touching the network.
// It returns ErrNoSession when none is stored.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if !sess.HasAccess() {
		return "", ErrNoSession
	}
	return sess.AccessToken, nil
}

// Session returns a copy of the stored session.
func (m *TokenManager) Session(ctx context.Context) (session.Session, error) {
	return m.store.Load(ctx)
}

// Refresh exchanges the stored refresh token for a new pair and returns the new
// access token. If a refresh is already in flight the caller waits for it and
// receives the same outcome.
//
// Errors: ErrUnauthenticated when the API rejected the refresh token (the session
// has been cleared) or no refresh token is stored; ErrTransient for every other
// failure (the session is untouched); ctx.Err() when the caller stopped waiting.
func (m *TokenManager) Refresh(ctx context.Context) (string, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return m.refresh(ctx, sess.RefreshToken)
}

// refreshAfter is called by a request that got 401 for usedAccess. If the stored
// access token has moved on since, the request simply retries with it.
func (m *TokenManager) refreshAfter(ctx context.Context, usedAccess string) (string, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransient, err)
	}
	if sess.HasAccess() && sess.AccessToken != usedAccess {
		m.metrics.Inc(MetricRefreshCoalesced)
		return sess.AccessToken, nil
	}
	return m.refresh(ctx, sess.RefreshToken)
}

// ensureFresh refreshes ahead of time when token is a JWT expiring within the
// configured leeway. It returns the token to send; a transient failure keeps the
// current one and lets the 401 path take over.
func (m *TokenManager) ensureFresh(ctx context.Context, token string) (string, error) {
	if m.leeway <= 0 {
		return token, nil
	}
	exp, err := jwt.Inspect(token)
	if err != nil || !exp.ExpiresWithin(m.now(), m.leeway) {
		return token, nil
	}

	m.metrics.Inc(MetricRefreshProactive)
	next, err := m.refreshAfter(ctx, token)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, ErrUnauthenticated):
		return "", err
	case errors.Is(err, ErrTransient):
		m.logger.Debug("proactive refresh failed, sending current token", "error", err)
		return token, nil
	default:
		return "", err
	}
}

func (m *TokenManager) refresh(ctx context.Context, usedRefresh string) (string, error) {
	ch := m.group.DoChan(refreshKey, func() (interface{}, error) {
		return m.runRefresh(context.WithoutCancel(ctx), usedRefresh)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			m.metrics.Inc(MetricRefreshShared)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// runRefresh is the body of the shared flight.
func (m *TokenManager) runRefresh(parent context.Context, usedRefresh string) (string, error) {
	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()

	cur, err := m.store.Load(ctx)
	if err != nil {
		m.metrics.Inc(MetricRefreshTransient)
		return "", fmt.Errorf("%w: %w", ErrTransient, err)
	}

	if !cur.HasRefresh() {
		if !cur.Empty() {
			if _, err := m.clearIf(ctx, cur.RefreshToken); err != nil {
				m.logger.Warn("clear session without refresh token failed", "error", err)
			}
		}
		m.metrics.Inc(MetricRefreshUnauthenticated)
		return "", ErrUnauthenticated
	}

	// A flight that finished just before this one already rotated the pair.
	if cur.RefreshToken != usedRefresh && cur.HasAccess() {
		m.metrics.Inc(MetricRefreshCoalesced)
		return cur.AccessToken, nil
	}

	m.metrics.Inc(MetricRefreshCall)
	next, err := m.callRefresh(ctx, cur.RefreshToken)
	switch {
	case errors.Is(err, errRefreshRejected):
		if _, cerr := m.clearIf(ctx, cur.RefreshToken); cerr != nil {
			m.logger.Warn("clear rejected session failed", "error", cerr)
		}
		m.metrics.Inc(MetricRefreshUnauthenticated)
		m.logger.Warn("refresh token rejected, session cleared")
		emitAudit(ctx, m.audit, auditEventRefresh, "", "", ErrUnauthenticated, nil)
		return "", ErrUnauthenticated
	case err != nil:
		m.metrics.Inc(MetricRefreshTransient)
		m.logger.Warn("refresh failed", "error", err)
		terr := fmt.Errorf("%w: %w", ErrTransient, err)
		emitAudit(ctx, m.audit, auditEventRefresh, "", "", terr, nil)
		return "", terr
	}

	saved, err := m.saveIf(ctx, cur.RefreshToken, next)
	if err != nil {
		m.metrics.Inc(MetricRefreshTransient)
		return "", fmt.Errorf("%w: %w", ErrTransient, err)
	}
	if !saved {
		// Logged out or logged in again while the call was in flight.
		latest, err := m.store.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrTransient, err)
		}
		if !latest.HasAccess() {
			return "", ErrUnauthenticated
		}
		return latest.AccessToken, nil
	}

	m.metrics.Inc(MetricRefreshSuccess)
	m.logger.Debug("session refreshed")
	emitAudit(ctx, m.audit, auditEventRefresh, "", "", nil, nil)
	return next.AccessToken, nil
}

func (m *TokenManager) callRefresh(ctx context.Context, refreshToken string) (session.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.refreshURL, nil)
	if err != nil {
		return session.Session{}, err
	}
	req.Header.Set("Authorization", bearer(refreshToken))
	req.Header.Set("Accept", "application/json")
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer drainClose(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		return session.Session{}, errRefreshRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return session.Session{}, decodeAPIError(resp)
	}

	var body TokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err != nil {
		return session.Session{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		return session.Session{}, fmt.Errorf("%w: missing token", ErrMalformedResponse)
	}
	return session.Session{AccessToken: body.AccessToken, RefreshToken: body.RefreshToken}, nil
}

// saveIf replaces the session only if the stored refresh token is still expected.
func (m *TokenManager) saveIf(ctx context.Context, expectedRefresh string, next session.Session) (bool, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur, err := m.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if cur.RefreshToken != expectedRefresh {
		return false, nil
	}
	if err := m.store.Save(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// clearIf clears the session only if the stored refresh token is still expected.
func (m *TokenManager) clearIf(ctx context.Context, expectedRefresh string) (bool, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur, err := m.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if cur.RefreshToken != expectedRefresh {
		return false, nil
	}
	if err := m.store.Clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// setSession stores a pair obtained from login.
func (m *TokenManager) setSession(ctx context.Context, sess session.Session) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.store.Save(ctx, sess)
}

// Logout clears both tokens. It is idempotent and never contacts the API.
func (m *TokenManager) Logout(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.metrics.Inc(MetricLogout)
	return nil
}

func drainClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

func bearer(token string) string {
	return "Bearer " + strings.TrimSpace(token)
}
