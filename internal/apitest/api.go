package apitest

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authclient/jwt"
)

// Options configures an [API].
type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Secret is the HS256 signing key. A random key is used when empty.
	Secret []byte
	// Seed adds one contact and two posts to every user created.
	Seed bool
}

// User is the wire shape of a user record.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Avatar    string    `json:"avatar,omitempty"`
	Active    bool      `json:"active"`
}

// Contact is the wire shape of a contact.
type Contact struct {
	ID        int64        `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	User      ContactOwner `json:"user"`
}

// ContactOwner is the nested owner of a contact.
type ContactOwner struct {
	Username string `json:"username"`
}

// Post is the wire shape of a post.
type Post struct {
	ID          int64  `json:"id"`
	CreatedAt   string `json:"created_at"`
	URLOriginal string `json:"url_original"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}

type userRecord struct {
	User
	passwordHash string
	refreshToken string
	contacts     []Contact
	posts        []Post
	comments     int64
}

// API is the fake server state. Its methods are safe for concurrent use.
type API struct {
	jwt    *jwt.Manager
	hasher *hasher
	seed   bool

	mu           sync.Mutex
	users        map[int64]*userRecord
	byEmail      map[string]int64
	byName       map[string]int64
	nextID       int64
	issuedAccess map[string]struct{}
	deadAccess   map[string]struct{}
	refreshFail  []int
	refreshGate  chan struct{}
	hits         map[string]int
	requestIDs   []string

	refreshCalls  atomic.Int64
	refreshOK     atomic.Int64
	logoutCalls   atomic.Int64
	rejectRefresh atomic.Bool
	rejectAccess  atomic.Bool
}

// New returns an empty API.
func New(opts Options) (*API, error) {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if len(opts.Secret) == 0 {
		opts.Secret = make([]byte, 32)
		if _, err := rand.Read(opts.Secret); err != nil {
			return nil, err
		}
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     opts.AccessTTL,
		RefreshTTL:    opts.RefreshTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    opts.Secret,
		Issuer:        "apitest",
	})
	if err != nil {
		return nil, err
	}

	return &API{
		jwt:          jm,
		hasher:       newHasher(defaultHasherConfig()),
		seed:         opts.Seed,
		users:        make(map[int64]*userRecord),
		byEmail:      make(map[string]int64),
		byName:       make(map[string]int64),
		issuedAccess: make(map[string]struct{}),
		deadAccess:   make(map[string]struct{}),
		hits:         make(map[string]int),
	}, nil
}

// NewServer starts an httptest.Server for a new API. The server is closed with the test.
func NewServer(t interface {
	Helper()
	Fatalf(format string, args ...any)
	Cleanup(func())
}, opts Options) (*API, *httptest.Server) {
	t.Helper()

	api, err := New(opts)
	if err != nil {
		t.Fatalf("apitest.New: %v", err)
	}
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv
}

// AddUser creates an active user and returns it.
func (a *API) AddUser(username, email, password string) (User, error) {
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return User{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byEmail[strings.ToLower(email)]; ok {
		return User{}, errAccountExists
	}
	if _, ok := a.byName[username]; ok {
		return User{}, errAccountExists
	}

	a.nextID++
	rec := &userRecord{
		User: User{
			ID:        a.nextID,
			Username:  username,
			Email:     email,
			Role:      "user",
			CreatedAt: time.Now().UTC().Truncate(time.Second),
			Active:    true,
		},
		passwordHash: hash,
	}
	if a.seed {
		a.seedRecord(rec)
	}
	a.users[rec.ID] = rec
	a.byEmail[strings.ToLower(email)] = rec.ID
	a.byName[username] = rec.ID
	return rec.User, nil
}

func (a *API) seedRecord(rec *userRecord) {
	rec.contacts = []Contact{{
		ID:        rec.ID*100 + 1,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		User:      ContactOwner{Username: rec.Username},
	}}
	created := rec.CreatedAt.Format(time.RFC3339)
	rec.posts = []Post{
		{ID: rec.ID*100 + 1, CreatedAt: created, URLOriginal: "https://img.example/1.png", Description: "first", Tags: "a,b"},
		{ID: rec.ID*100 + 2, CreatedAt: created, URLOriginal: "https://img.example/2.png", Description: "second", Tags: "c"},
	}
	rec.comments = 3
}

// IssuePair logs userEmail in without a password and returns a valid pair.
func (a *API) IssuePair(email string) (access, refresh string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.userByEmailLocked(email)
	if rec == nil {
		return "", "", errUserNotFound
	}
	return a.issuePairLocked(rec)
}

func (a *API) issuePairLocked(rec *userRecord) (string, string, error) {
	access, refresh, err := a.jwt.CreatePair(rec.Email)
	if err != nil {
		return "", "", err
	}
	claims, err := a.jwt.Parse(access, jwt.KindAccess)
	if err != nil {
		return "", "", err
	}
	a.issuedAccess[claims.ID] = struct{}{}
	rec.refreshToken = refresh
	return access, refresh, nil
}

func (a *API) userByEmailLocked(email string) *userRecord {
	id, ok := a.byEmail[strings.ToLower(email)]
	if !ok {
		return nil
	}
	return a.users[id]
}

// ExpireAccessTokens makes every access token issued so far answer 401.
func (a *API) ExpireAccessTokens() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id := range a.issuedAccess {
		a.deadAccess[id] = struct{}{}
	}
}

// RevokeRefresh forgets the stored refresh token of email, so its next refresh is rejected.
func (a *API) RevokeRefresh(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec := a.userByEmailLocked(email); rec != nil {
		rec.refreshToken = ""
	}
}

// FailRefresh makes the next len(statuses) refresh calls answer with those statuses.
func (a *API) FailRefresh(statuses ...int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshFail = append(a.refreshFail, statuses...)
}

// RejectRefresh makes every refresh call answer 401 while on is true.
func (a *API) RejectRefresh(on bool) {
	a.rejectRefresh.Store(on)
}

// RejectAccess makes every protected endpoint answer 401 while on is true.
func (a *API) RejectAccess(on bool) {
	a.rejectAccess.Store(on)
}

// HoldRefresh blocks refresh calls until the returned release func is called.
func (a *API) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	a.mu.Lock()
	a.refreshGate = gate
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			if a.refreshGate == gate {
				a.refreshGate = nil
			}
			a.mu.Unlock()
			close(gate)
		})
	}
}

func (a *API) waitRefreshGate(ctx context.Context) error {
	a.mu.Lock()
	gate := a.refreshGate
	a.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *API) nextRefreshFailure() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.refreshFail) == 0 {
		return 0
	}
	status := a.refreshFail[0]
	a.refreshFail = a.refreshFail[1:]
	return status
}

// RefreshCalls returns the number of refresh requests received.
func (a *API) RefreshCalls() int64 {
	return a.refreshCalls.Load()
}

// RefreshSuccesses returns the number of refresh requests that rotated the pair.
func (a *API) RefreshSuccesses() int64 {
	return a.refreshOK.Load()
}

// LogoutCalls returns the number of logout requests received.
func (a *API) LogoutCalls() int64 {
	return a.logoutCalls.Load()
}

// Hits returns how often "METHOD /path" was requested.
func (a *API) Hits(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[method+" "+path]
}

// RequestIDs returns the X-Request-ID of every protected request, in arrival order.
func (a *API) RequestIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.requestIDs))
	copy(out, a.requestIDs)
	return out
}

// RefreshTokenOf returns the refresh token the API currently accepts for email.
func (a *API) RefreshTokenOf(email string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec := a.userByEmailLocked(email); rec != nil {
		return rec.refreshToken
	}
	return ""
}

var (
	errAccountExists = errors.New("Account already exists")
	errUserNotFound  = errors.New("User not found")
)

func (a *API) record(r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hits[fmt.Sprintf("%s %s", r.Method, r.URL.Path)]++
}
