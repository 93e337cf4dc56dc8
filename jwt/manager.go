package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm used by [Manager].
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrWrongKind is returned when a refresh token is presented as an access token or vice versa.
	ErrWrongKind = errors.New("token kind mismatch")
	// ErrVerifyOnly is returned when minting with a Manager built from a public key alone.
	ErrVerifyOnly = errors.New("manager has no signing key")
)

// Config configures a [Manager]. Ed25519 keys are raw or PEM encoded; PrivateKey
// may be omitted for a verify-only Manager.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims are the claims carried by both token kinds. ID holds a random jti so two
// tokens minted in the same second never collide.
type Claims struct {
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

// Manager issues and verifies signed token pairs. Keys are decoded once by
// NewManager; a Manager is safe for concurrent use.
type Manager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	parser     *jwt.Parser
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: TTLs must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: leeway must be within [0, 2m]")
	}

	m := &Manager{
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("jwt: hs256 requires a secret")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey, m.verifyKey = cfg.PrivateKey, cfg.PrivateKey
	case MethodEd25519:
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		m.method = jwt.SigningMethodEdDSA
		m.verifyKey = pub
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
	default:
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	m.parser = jwt.NewParser(opts...)

	return m, nil
}

// CreateAccess mints an access token for subject.
func (m *Manager) CreateAccess(subject string) (string, error) {
	return m.mint(subject, KindAccess, m.accessTTL)
}

// CreateRefresh mints a refresh token for subject.
func (m *Manager) CreateRefresh(subject string) (string, error) {
	return m.mint(subject, KindRefresh, m.refreshTTL)
}

// CreatePair mints an access and a refresh token for subject.
func (m *Manager) CreatePair(subject string) (access, refresh string, err error) {
	if access, err = m.CreateAccess(subject); err != nil {
		return "", "", err
	}
	if refresh, err = m.CreateRefresh(subject); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *Manager) mint(subject string, kind Kind, ttl time.Duration) (string, error) {
	if m.signKey == nil {
		return "", ErrVerifyOnly
	}
	now := time.Now()
	return jwt.NewWithClaims(m.method, Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}).SignedString(m.signKey)
}

// Parse verifies tokenStr and checks that it is of the expected kind.
func (m *Manager) Parse(tokenStr string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(tokenStr, claims, m.keyFunc); err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != m.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return m.verifyKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("jwt: invalid ed25519 private key: %w", err)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("jwt: invalid ed25519 public key: %w", err)
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 public key type")
	}
	return edKey, nil
}
