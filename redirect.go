package authclient

import (
	"errors"
	"net/url"
)

// LoginURL returns loginPath with the message of err as the "error" query
// parameter. A nil err returns loginPath unchanged. Only the message of a
// ValidationError or StatusError is exposed; other errors map to a fixed phrase.
func LoginURL(loginPath string, err error) string {
	if err == nil {
		return loginPath
	}
	u, perr := url.Parse(loginPath)
	if perr != nil {
		return loginPath
	}
	q := u.Query()
	q.Set("error", ErrorMessage(err))
	u.RawQuery = q.Encode()
	return u.String()
}

// ErrorMessage returns the user-facing text for err. It never includes token values.
func ErrorMessage(err error) string {
	var verr *ValidationError
	var serr *StatusError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &serr) && serr.Detail != "":
		return serr.Detail
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrUnauthenticated):
		return "Session expired, please log in again"
	case errors.Is(err, ErrNoSession):
		return "Please log in"
	case errors.Is(err, ErrNetwork):
		return "Service unreachable, try again later"
	default:
		return "Authentication failed"
	}
}
