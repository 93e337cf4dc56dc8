package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("secret-secret-secret-secret"),
		Issuer:        "authclient-test",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestManagerRoundTripKinds(t *testing.T) {
	m := newHSManager(t)

	access, err := m.CreateAccess("42")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	refresh, err := m.CreateRefresh("42")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}

	claims, err := m.Parse(access, KindAccess)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.Subject != "42" {
		t.Fatalf("expected subject 42, got %q", claims.Subject)
	}

	if _, err := m.Parse(refresh, KindAccess); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind for refresh-as-access, got %v", err)
	}
	if _, err := m.Parse(access, KindRefresh); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind for access-as-refresh, got %v", err)
	}
}

func TestManagerTokensAreUnique(t *testing.T) {
	m := newHSManager(t)

	a, _ := m.CreateAccess("1")
	b, _ := m.CreateAccess("1")
	if a == b {
		t.Fatal("expected distinct tokens for the same subject")
	}
}

func TestManagerRejectsWrongAlgorithm(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	m, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token, KindAccess); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestManagerEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	m, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateRefresh("7")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if _, err := m.Parse(token, KindRefresh); err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{AccessTTL: 0, RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256},
		{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: "rs256", PrivateKey: []byte("k")},
		{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestInspectReadsExpiryWithoutKey(t *testing.T) {
	m := newHSManager(t)
	token, err := m.CreateAccess("99")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	exp, err := Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if exp.Subject != "99" {
		t.Fatalf("expected subject 99, got %q", exp.Subject)
	}
	now := time.Now()
	if exp.ExpiresWithin(now, 0) {
		t.Fatal("fresh token should not be expired")
	}
	if !exp.ExpiresWithin(now, 2*time.Minute) {
		t.Fatal("one-minute token should expire within two minutes")
	}
}

func TestInspectRejectsOpaqueTokens(t *testing.T) {
	if _, err := Inspect("not-a-jwt"); err == nil {
		t.Fatal("expected error for opaque token")
	}

	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Inspect(token); !errors.Is(err, ErrNoExpiry) {
		t.Fatalf("expected ErrNoExpiry, got %v", err)
	}
}

func TestManagerVerifyOnly(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	m, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.CreateAccess("1"); !errors.Is(err, ErrVerifyOnly) {
		t.Fatalf("expected ErrVerifyOnly, got %v", err)
	}
}

func TestManagerCreatePair(t *testing.T) {
	m := newHSManager(t)

	access, refresh, err := m.CreatePair("5")
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if _, err := m.Parse(access, KindAccess); err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if _, err := m.Parse(refresh, KindRefresh); err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
}
