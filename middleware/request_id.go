package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/authclient"
	"github.com/google/uuid"
)

const maxRequestIDLen = 128

// RequestID propagates the incoming X-Request-ID (or a new one) into the request
// context, so API calls made while serving it carry the same id. The id is echoed
// on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(authclient.HeaderRequestID))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(authclient.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(authclient.WithRequestID(r.Context(), id)))
	})
}
