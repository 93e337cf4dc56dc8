package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MrEthical07/authclient/session"
)

const maxResponseBody = 4 << 20

// Login posts the credentials as a form and stores the returned pair. Only a
// bearer token_type is accepted.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	err := c.login(ctx, form)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.logger.Info("login failed", "username", username, "error", err)
	} else {
		c.metrics.Inc(MetricLoginSuccess)
		c.logger.Info("login succeeded", "username", username)
	}
	emitAudit(ctx, c.audit, auditEventLogin, username, "", err, nil)
	return err
}

func (c *Client) login(ctx context.Context, form url.Values) error {
	resp, err := c.postPublic(ctx, c.cfg.API.LoginPath, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	defer drainClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	var body TokenResponse
	if err := decodeJSON(resp, &body); err != nil {
		return err
	}
	if !strings.EqualFold(body.TokenType, "bearer") {
		return fmt.Errorf("%w: %q", ErrUnexpectedTokenType, body.TokenType)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		return fmt.Errorf("%w: missing token", ErrMalformedResponse)
	}

	return c.tokens.setSession(ctx, session.Session{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	})
}

// Signup creates an account. It does not log in. A 422 answer with a detail array
// returns *ValidationError; any other status but 201 returns *StatusError.
func (c *Client) Signup(ctx context.Context, in SignupRequest) (*User, error) {
	user, err := c.signup(ctx, in)
	if err != nil {
		c.metrics.Inc(MetricSignupFailure)
	} else {
		c.metrics.Inc(MetricSignupSuccess)
	}
	emitAudit(ctx, c.audit, auditEventSignup, in.Username, "", err, nil)
	return user, err
}

func (c *Client) signup(ctx context.Context, in SignupRequest) (*User, error) {
	var (
		body        io.Reader
		contentType string
	)
	if c.cfg.API.SignupJSON {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body, contentType = bytes.NewReader(data), "application/json"
	} else {
		form := url.Values{}
		form.Set("username", in.Username)
		form.Set("email", in.Email)
		form.Set("password", in.Password)
		body, contentType = strings.NewReader(form.Encode()), "application/x-www-form-urlencoded"
	}

	resp, err := c.postPublic(ctx, c.cfg.API.SignupPath, contentType, body)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp)

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeAPIError(resp)
	}

	var out SignupResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Me returns the current user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.getJSON(ctx, c.cfg.API.MePath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the current user's profile with activity counters.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.getJSON(ctx, c.cfg.API.ProfilePath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe patches the current user with a JSON body.
func (c *Client) UpdateMe(ctx context.Context, in UserUpdate) (*User, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out User
	err = c.doJSON(ctx, Request{
		Method:      http.MethodPatch,
		Path:        c.cfg.API.MePath,
		Body:        data,
		ContentType: "application/json",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAvatar sends the image as the multipart field "file".
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (*User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", avatarContentType(filename))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out User
	err = c.doJSON(ctx, Request{
		Method:      http.MethodPatch,
		Path:        c.cfg.API.AvatarPath,
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Contacts lists the current user's contacts.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	if err := c.getJSON(ctx, c.cfg.API.ContactPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserPosts lists the posts of userID.
func (c *Client) UserPosts(ctx context.Context, userID int64, limit, offset int) ([]Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out []Post
	p := strings.TrimSuffix(c.cfg.API.PostsPath, "/") + "/" + strconv.FormatInt(userID, 10)
	if err := c.getJSON(ctx, p, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyPosts resolves the current user and lists their posts.
func (c *Client) MyPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	return c.UserPosts(ctx, me.ID, limit, offset)
}

// Logout asks the API to end the session, then clears the local session whatever
// the answer. Only a local store failure is returned.
func (c *Client) Logout(ctx context.Context) error {
	if token, err := c.tokens.AccessToken(ctx); err == nil {
		if err := c.remoteLogout(ctx, token); err != nil {
			c.logger.Debug("server logout failed", "error", err)
		}
	}

	err := c.tokens.Logout(ctx)
	emitAudit(ctx, c.audit, auditEventLogout, "", "", err, nil)
	return err
}

func (c *Client) remoteLogout(ctx context.Context, token string) error {
	target, err := c.resolve(c.cfg.API.LogoutPath, nil)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", bearer(token))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer drainClose(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	return c.doJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: q}, out)
}

func (c *Client) doJSON(ctx context.Context, r Request, out any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	defer drainClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	return decodeJSON(resp, out)
}

func (c *Client) postPublic(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	target, err := c.resolve(path, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.cfg.API.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.API.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.metrics.Inc(MetricNetworkFailure)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, out any) error {
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func avatarContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
