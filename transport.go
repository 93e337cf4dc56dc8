package authclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Transport returns an http.RoundTripper that authenticates every request with the
// stored session and applies the same refresh-and-retry loop as Do. base performs
// the actual exchange; nil means http.DefaultTransport.
//
// Requests with a body must be replayable: either GetBody is set (as it is for
// bytes, strings and bytes.Buffer bodies) or the body is buffered in memory once.
func (c *Client) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{client: c, base: base}
}

type authTransport struct {
	client *Client
	base   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	build := func(ctx context.Context) (*http.Request, error) {
		out := req.Clone(ctx)
		if getBody != nil {
			body, err := getBody()
			if err != nil {
				return nil, err
			}
			out.Body = body
		}
		return out, nil
	}

	return t.client.authorized(req.Context(), build, t.base.RoundTrip)
}

func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: read request body: %v", ErrNetwork, err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}
