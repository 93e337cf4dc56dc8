package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MrEthical07/authclient/jwt"
)

const maxUploadBytes = 2 << 20

type detailEntry struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type,omitempty"`
}

type tokenBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type profileBody struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Avatar        string `json:"avatar,omitempty"`
	CreatedAt     string `json:"created_at"`
	CommentsCount int64  `json:"comments_count"`
	ImagesCount   int64  `json:"images_count"`
}

type userContextKey struct{}

// Handler returns the routes of the fake API.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("POST /api/auth/signup", a.handleSignup)
	mux.HandleFunc("GET /api/auth/refresh_token", a.handleRefresh)

	mux.Handle("GET /api/auth/logout", a.guard(http.HandlerFunc(a.handleLogout)))
	mux.Handle("GET /api/users/me/", a.guard(http.HandlerFunc(a.handleMe)))
	mux.Handle("PATCH /api/users/me/", a.guard(http.HandlerFunc(a.handleUpdateMe)))
	mux.Handle("GET /api/users/profile/", a.guard(http.HandlerFunc(a.handleProfile)))
	mux.Handle("PATCH /api/users/avatar/", a.guard(http.HandlerFunc(a.handleAvatar)))
	mux.Handle("GET /api/contacts", a.guard(http.HandlerFunc(a.handleContacts)))
	mux.Handle("GET /posts/user/{id}", a.guard(http.HandlerFunc(a.handlePosts)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		mux.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Public endpoints
// ---------------------------------------------------------------------------

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	var missing []detailEntry
	if username == "" {
		missing = append(missing, detailEntry{Loc: []string{"body", "username"}, Msg: "field required"})
	}
	if password == "" {
		missing = append(missing, detailEntry{Loc: []string{"body", "password"}, Msg: "field required"})
	}
	if len(missing) > 0 {
		writeValidation(w, missing)
		return
	}

	a.mu.Lock()
	rec := a.userByEmailLocked(username)
	if rec == nil {
		if id, ok := a.byName[username]; ok {
			rec = a.users[id]
		}
	}
	var hash string
	if rec != nil {
		hash = rec.passwordHash
	}
	a.mu.Unlock()

	if rec == nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid email")
		return
	}
	if !rec.Active {
		writeDetail(w, http.StatusUnauthorized, "Email not active")
		return
	}
	ok, err := a.hasher.Verify(password, hash)
	if err != nil || !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	a.mu.Lock()
	access, refresh, err := a.issuePairLocked(rec)
	a.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token issue failed")
		return
	}

	writeJSON(w, http.StatusOK, tokenBody{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			writeValidation(w, []detailEntry{{Loc: []string{"body"}, Msg: "invalid JSON", Type: "value_error.jsondecode"}})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid form")
			return
		}
		in.Username = r.PostForm.Get("username")
		in.Email = r.PostForm.Get("email")
		in.Password = r.PostForm.Get("password")
	}

	if problems := validateSignup(in.Username, in.Email, in.Password); len(problems) > 0 {
		writeValidation(w, problems)
		return
	}

	user, err := a.AddUser(in.Username, in.Email, in.Password)
	if errors.Is(err, errAccountExists) {
		writeDetail(w, http.StatusConflict, errAccountExists.Error())
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Some troubles with create")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":   user,
		"detail": "User successfully created. Check your email for confirmation.",
	})
}

func validateSignup(username, email, password string) []detailEntry {
	var out []detailEntry
	if n := len(username); n < 5 || n > 16 {
		out = append(out, detailEntry{
			Loc:  []string{"body", "username"},
			Msg:  "ensure this value has between 5 and 16 characters",
			Type: "value_error.any_str",
		})
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		out = append(out, detailEntry{
			Loc:  []string{"body", "email"},
			Msg:  "value is not a valid email address",
			Type: "value_error.email",
		})
	}
	if n := len(password); n < 6 || n > 64 {
		out = append(out, detailEntry{
			Loc:  []string{"body", "password"},
			Msg:  "ensure this value has between 6 and 64 characters",
			Type: "value_error.any_str",
		})
	}
	return out
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a.refreshCalls.Add(1)

	if err := a.waitRefreshGate(r.Context()); err != nil {
		return
	}
	if status := a.nextRefreshFailure(); status != 0 {
		writeDetail(w, status, "refresh failed")
		return
	}
	if a.rejectRefresh.Load() {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	claims, err := a.jwt.Parse(token, jwt.KindRefresh)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.userByEmailLocked(claims.Subject)
	if rec == nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	if rec.refreshToken != token {
		// Reuse of a rotated token revokes the user's session.
		rec.refreshToken = ""
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, refresh, err := a.issuePairLocked(rec)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	a.refreshOK.Add(1)
	writeJSON(w, http.StatusOK, tokenBody{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
}

// ---------------------------------------------------------------------------
// Protected endpoints
// ---------------------------------------------------------------------------

func (a *API) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			a.mu.Lock()
			a.requestIDs = append(a.requestIDs, id)
			a.mu.Unlock()
		}

		if a.rejectAccess.Load() {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := a.jwt.Parse(token, jwt.KindAccess)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		a.mu.Lock()
		_, dead := a.deadAccess[claims.ID]
		rec := a.userByEmailLocked(claims.Subject)
		a.mu.Unlock()
		if dead || rec == nil || !rec.Active {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, accessContext{userID: rec.ID, jti: claims.ID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type accessContext struct {
	userID int64
	jti    string
}

func (a *API) current(r *http.Request) (accessContext, *userRecord) {
	ac, _ := r.Context().Value(userContextKey{}).(accessContext)
	return ac, a.users[ac.userID]
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.logoutCalls.Add(1)

	a.mu.Lock()
	ac, rec := a.current(r)
	a.deadAccess[ac.jti] = struct{}{}
	if rec != nil {
		rec.refreshToken = ""
	}
	a.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	_, rec := a.current(r)
	user := rec.User
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		writeValidation(w, []detailEntry{{Loc: []string{"body"}, Msg: "invalid JSON", Type: "value_error.jsondecode"}})
		return
	}
	if n := len(in.Username); n < 5 || n > 16 {
		writeValidation(w, []detailEntry{{
			Loc:  []string{"body", "username"},
			Msg:  "ensure this value has between 5 and 16 characters",
			Type: "value_error.any_str",
		}})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, rec := a.current(r)
	if id, taken := a.byName[in.Username]; taken && id != rec.ID {
		writeDetail(w, http.StatusConflict, "Account already exists")
		return
	}
	delete(a.byName, rec.Username)
	rec.Username = in.Username
	a.byName[rec.Username] = rec.ID
	for i := range rec.contacts {
		rec.contacts[i].User.Username = rec.Username
	}

	writeJSON(w, http.StatusOK, rec.User)
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	_, rec := a.current(r)
	body := profileBody{
		Username:      rec.Username,
		Email:         rec.Email,
		Avatar:        rec.Avatar,
		CreatedAt:     rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		CommentsCount: rec.comments,
		ImagesCount:   int64(len(rec.posts)),
	}
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidation(w, []detailEntry{{Loc: []string{"body", "file"}, Msg: "field required", Type: "value_error.missing"}})
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeDetail(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	a.mu.Lock()
	_, rec := a.current(r)
	rec.Avatar = "https://avatars.example/" + strconv.FormatInt(rec.ID, 10) + "/" + filepath.Base(header.Filename)
	user := rec.User
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleContacts(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	_, rec := a.current(r)
	out := append([]Contact{}, rec.contacts...)
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (a *API) handlePosts(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeValidation(w, []detailEntry{{Loc: []string{"path", "id"}, Msg: "value is not a valid integer", Type: "type_error.integer"}})
		return
	}
	limit, offset := 10, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			writeValidation(w, []detailEntry{{Loc: []string{"query", "limit"}, Msg: "value is not a valid integer", Type: "type_error.integer"}})
			return
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			writeValidation(w, []detailEntry{{Loc: []string{"query", "offset"}, Msg: "value is not a valid integer", Type: "type_error.integer"}})
			return
		}
	}

	a.mu.Lock()
	rec, ok := a.users[id]
	var posts []Post
	if ok {
		posts = append([]Post{}, rec.posts...)
	}
	a.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, errUserNotFound.Error())
		return
	}

	if offset > len(posts) {
		offset = len(posts)
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	writeJSON(w, http.StatusOK, posts[offset:end])
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, entries []detailEntry) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]detailEntry{"detail": entries})
}
