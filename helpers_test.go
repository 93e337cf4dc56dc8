package authclient

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/internal/apitest"
	"github.com/MrEthical07/authclient/session"
)

const (
	testUser     = "alice"
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
)

type testEnv struct {
	client *Client
	api    *apitest.API
	srv    *httptest.Server
	store  *session.MemoryStore
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.Retry.Backoff = 20 * time.Millisecond
	cfg.Retry.RefreshTimeout = 5 * time.Second
	return cfg
}

func newTestEnv(t testing.TB, opts apitest.Options, mutate func(*Config)) *testEnv {
	t.Helper()

	opts.Seed = true
	api, srv := apitest.NewServer(t, opts)
	if _, err := api.AddUser(testUser, testEmail, testPassword); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}

	store := session.NewMemoryStore()
	client, err := New().WithConfig(cfg).WithStore(store).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &testEnv{client: client, api: api, srv: srv, store: store}
}

// login stores a fresh pair without going through the login endpoint.
func (e *testEnv) login(t testing.TB) session.Session {
	t.Helper()

	access, refresh, err := e.api.IssuePair(testEmail)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	sess := session.Session{AccessToken: access, RefreshToken: refresh}
	if err := e.store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return sess
}

func (e *testEnv) stored(t *testing.T) session.Session {
	t.Helper()

	sess, err := e.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return sess
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
