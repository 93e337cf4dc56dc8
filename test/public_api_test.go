package test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/middleware"
	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/view"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = authclient.New
	_ = authclient.DefaultConfig
	_ = authclient.LoadConfig

	var _ *authclient.Client
	var _ *authclient.TokenManager
	var _ authclient.Config
	var _ authclient.Request
	var _ authclient.AuditSink
	var _ session.Store = (*session.MemoryStore)(nil)
	var _ session.Store = (*session.RedisStore)(nil)
	var _ session.Store = (*session.FileStore)(nil)

	var _ error = authclient.ErrNoSession
	var _ error = authclient.ErrUnauthenticated
	var _ error = authclient.ErrTransient
	var _ error = authclient.ErrSessionExpired
	var _ error = authclient.ErrNetwork
	var _ error = authclient.ErrValidation

	var _ func(string, error) string = authclient.LoginURL
	var _ func(error) bool = authclient.NeedsLogin
	var _ func(*authclient.Client, string) func(http.Handler) http.Handler = middleware.RequireSession
	var _ func(http.Handler) http.Handler = middleware.RequestID
	var _ func() (*view.Renderer, error) = view.New

	var _ func(*authclient.Client, context.Context, string, string) error = (*authclient.Client).Login
	var _ func(*authclient.Client, context.Context, authclient.Request) (*http.Response, error) = (*authclient.Client).Do
	var _ func(*authclient.Client, context.Context) error = (*authclient.Client).Logout
	var _ func(*authclient.Client, context.Context, string, io.Reader) (*authclient.User, error) = (*authclient.Client).UploadAvatar
	var _ func(*authclient.TokenManager, context.Context) (string, error) = (*authclient.TokenManager).AccessToken
	var _ func(*authclient.TokenManager, context.Context) (string, error) = (*authclient.TokenManager).Refresh
	var _ func(*authclient.TokenManager, context.Context) error = (*authclient.TokenManager).Logout
}
