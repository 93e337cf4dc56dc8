package session

// Fixed store keys for the two persisted tokens.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Session is the persisted token pair.
//
// A Session is a value: stores hand out copies, and a successful refresh replaces both
// fields in a single Save so no reader observes a mixed pair.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Empty reports whether neither token is present.
func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// HasAccess reports whether an access token is present.
func (s Session) HasAccess() bool {
	return s.AccessToken != ""
}

// HasRefresh reports whether a refresh token is present.
func (s Session) HasRefresh() bool {
	return s.RefreshToken != ""
}
