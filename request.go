package authclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// HeaderRequestID carries one id across every attempt of a logical request.
const HeaderRequestID = "X-Request-ID"

var errTokenReplaced = errors.New("access token replaced")

// Request describes one logical authenticated request. Body is a byte slice so the
// request can be resent after a refresh.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
}

// Do sends r with the stored access token. A 401 answer triggers a refresh and a
// resend with the new token, at most Retry.MaxAttempts answers of 401 in total.
//
// Do returns the first non-401 response as is (the caller closes its body), or one
// of ErrNoSession, ErrSessionExpired, ErrNetwork. A transient refresh failure waits
// Retry.Backoff before the next attempt.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	target, err := c.resolve(r.Path, r.Query)
	if err != nil {
		return nil, err
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	build := func(ctx context.Context) (*http.Request, error) {
		var body io.Reader
		if r.Body != nil {
			body = bytes.NewReader(r.Body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, err
		}
		for k, vs := range r.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if r.ContentType != "" {
			req.Header.Set("Content-Type", r.ContentType)
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}
		if c.cfg.API.UserAgent != "" && req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.cfg.API.UserAgent)
		}
		return req, nil
	}

	return c.authorized(ctx, build, c.httpClient.Do)
}

// authorized runs the bounded refresh-and-retry loop. build must return a fresh
// request for every attempt; send performs it.
func (c *Client) authorized(
	ctx context.Context,
	build func(context.Context) (*http.Request, error),
	send func(*http.Request) (*http.Response, error),
) (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	start := time.Now()
	c.metrics.Inc(MetricRequest)
	defer func() {
		c.metrics.Observe(MetricRequestLatency, time.Since(start))
	}()

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			c.metrics.Inc(MetricNoSession)
		}
		return nil, err
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := c.logger.With("request_id", requestID)

	token, err = c.tokens.ensureFresh(ctx, token)
	if err != nil {
		return nil, c.expired(ctx, requestID, err)
	}

	var (
		resp     *http.Response
		attempts int
		delay    time.Duration
	)
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	})

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := build(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", bearer(token))
		req.Header.Set(HeaderRequestID, requestID)

		res, err := send(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.metrics.Inc(MetricNetworkFailure)
			return fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		if res.StatusCode != http.StatusUnauthorized {
			resp = res
			return nil
		}
		drainClose(res)

		attempts++
		if attempts >= c.cfg.Retry.MaxAttempts {
			logger.Debug("retry budget exhausted", "attempts", attempts)
			return ErrSessionExpired
		}

		next, err := c.tokens.refreshAfter(ctx, token)
		switch {
		case err == nil:
			token = next
			delay = 0
		case errors.Is(err, ErrUnauthenticated):
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		case errors.Is(err, ErrTransient):
			logger.Debug("refresh failed, backing off", "attempts", attempts, "backoff", c.cfg.Retry.Backoff)
			delay = c.cfg.Retry.Backoff
		default:
			return err
		}

		c.metrics.Inc(MetricRequestRetry)
		return retry.RetryableError(errTokenReplaced)
	})
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil, c.expired(ctx, requestID, err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) expired(ctx context.Context, requestID string, err error) error {
	if !errors.Is(err, ErrSessionExpired) {
		if !errors.Is(err, ErrUnauthenticated) {
			return err
		}
		err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	c.metrics.Inc(MetricSessionExpired)
	c.logger.Info("session expired", "request_id", requestID)
	emitAudit(ctx, c.audit, auditEventSessionExpired, "", requestID, err, nil)
	return err
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u := ref
	if !ref.IsAbs() {
		u = c.baseURL.JoinPath(ref.EscapedPath())
		u.RawQuery = ref.RawQuery
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
