package middleware

import (
	"net/http"

	"github.com/MrEthical07/authclient"
)

// RequireSession lets the request through only when client holds an access token.
// Otherwise the browser is sent to loginPath with an explanatory ?error= message.
//
// The check is local: it never calls the API and never refreshes. Expiry is detected
// by the handler's own API calls and reported through [LoginRedirect].
func RequireSession(client *authclient.Client, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil || !client.IsAuthenticated(r.Context()) {
				redirect(w, r, loginPath, authclient.ErrNoSession)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRedirect sends the browser to loginPath when err means the user must log in
// again, and reports whether it did. Handlers call it on every client error.
func LoginRedirect(w http.ResponseWriter, r *http.Request, loginPath string, err error) bool {
	if !authclient.NeedsLogin(err) {
		return false
	}
	redirect(w, r, loginPath, err)
	return true
}

func redirect(w http.ResponseWriter, r *http.Request, loginPath string, err error) {
	http.Redirect(w, r, authclient.LoginURL(loginPath, err), http.StatusSeeOther)
}
