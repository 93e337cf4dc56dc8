//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/apitest"
	"github.com/MrEthical07/authclient/jwt"
)

func TestProactiveRefreshBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	it := newIntegration(t, apitest.Options{AccessTTL: 30 * time.Second}, func(cfg *authclient.Config) {
		cfg.Retry.RefreshLeeway = time.Minute
	})

	if err := it.client.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	before, _ := it.storedPair(t)
	exp, err := jwt.Inspect(before)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !exp.ExpiresWithin(time.Now(), time.Minute) {
		t.Fatal("expected the access token to fall inside the leeway")
	}

	if _, err := it.client.Me(ctx); err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if got := it.api.RefreshCalls(); got != 1 {
		t.Fatalf("expected one proactive refresh, got %d", got)
	}
	if got := it.client.MetricsSnapshot().Counters[authclient.MetricRefreshProactive]; got != 1 {
		t.Fatalf("expected refresh_proactive=1, got %d", got)
	}
	after, _ := it.storedPair(t)
	if after == before {
		t.Fatal("expected a new access token after proactive refresh")
	}
}

func TestNoProactiveRefreshOutsideLeeway(t *testing.T) {
	ctx := context.Background()
	it := newIntegration(t, apitest.Options{AccessTTL: time.Hour}, func(cfg *authclient.Config) {
		cfg.Retry.RefreshLeeway = time.Minute
	})

	if err := it.client.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := it.client.Me(ctx); err != nil {
			t.Fatalf("Me failed: %v", err)
		}
	}
	if got := it.api.RefreshCalls(); got != 0 {
		t.Fatalf("expected no refresh, got %d", got)
	}
}

func TestProactiveRefreshFailureFallsBackToCurrentToken(t *testing.T) {
	ctx := context.Background()
	it := newIntegration(t, apitest.Options{AccessTTL: 30 * time.Second}, func(cfg *authclient.Config) {
		cfg.Retry.RefreshLeeway = time.Minute
	})

	if err := it.client.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	before, _ := it.storedPair(t)
	it.api.FailRefresh(503)

	if _, err := it.client.Me(ctx); err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	after, _ := it.storedPair(t)
	if after != before {
		t.Fatal("expected the session to be untouched after a transient refresh failure")
	}
}
