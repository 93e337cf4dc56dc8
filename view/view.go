package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/authclient"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names accepted by Render and Respond.
const (
	Loading       = "loading"
	Alert         = "alert"
	Contacts      = "contacts"
	Posts         = "posts"
	ProfileCard   = "profile"
	LoginPage     = "login_page"
	DashboardPage = "dashboard_page"
)

const dateLayout = "2006-01-02 15:04"

// LoginData feeds LoginPage.
type LoginData struct {
	Action   string
	Username string
	Error    string
}

// DashboardData feeds DashboardPage.
type DashboardData struct {
	Profile        *authclient.Profile
	Posts          []authclient.Post
	Contacts       []authclient.Contact
	Flash          string
	UsernameAction string
	LogoutAction   string
}

// Renderer turns API payloads into HTML. It holds no state beyond the parsed
// templates and is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("view").Funcs(template.FuncMap{
		"date": formatDate,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Must is New that panics on error.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes the named template into w. Output is buffered so a failing
// template writes nothing.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Respond renders name as a full HTML response with status.
func (r *Renderer) Respond(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// Contacts renders the contact list items.
func (r *Renderer) Contacts(w io.Writer, contacts []authclient.Contact) error {
	return r.Render(w, Contacts, contacts)
}

// Posts renders one card per post.
func (r *Renderer) Posts(w io.Writer, posts []authclient.Post) error {
	return r.Render(w, Posts, posts)
}

// Profile renders the profile card.
func (r *Renderer) Profile(w io.Writer, p *authclient.Profile) error {
	if p == nil {
		return nil
	}
	return r.Render(w, ProfileCard, p)
}

// Loading renders the placeholder shown while a request is pending.
func (r *Renderer) Loading(w io.Writer) error {
	return r.Render(w, Loading, nil)
}

// Error renders err as an alert using the same wording as the login redirect.
func (r *Renderer) Error(w io.Writer, err error) error {
	if err == nil {
		return nil
	}
	return r.Render(w, Alert, authclient.ErrorMessage(err))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
