//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/apitest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testUser     = "alice"
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
	keyPrefix    = "it"
)

type integration struct {
	client *authclient.Client
	api    *apitest.API
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

// newIntegration wires a client to a fake API and a Redis-backed session store.
func newIntegration(t *testing.T, opts apitest.Options, mutate func(*authclient.Config)) *integration {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	api, srv := apitest.NewServer(t, opts)
	if _, err := api.AddUser(testUser, testEmail, testPassword); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	cfg := authclient.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Storage.Backend = authclient.StorageRedis
	cfg.Storage.KeyPrefix = keyPrefix
	cfg.Retry.Backoff = 20 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := authclient.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &integration{client: client, api: api, mr: mr, rdb: rdb}
}

func (it *integration) storedPair(t *testing.T) (string, string) {
	t.Helper()
	access, _ := it.mr.Get(keyPrefix + ":access_token")
	refresh, _ := it.mr.Get(keyPrefix + ":refresh_token")
	return access, refresh
}
