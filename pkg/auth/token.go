package auth

import (
	"net/http"
	"strings"
)

// TokenQueryParam carries the bearer token on WebSocket upgrades, where
// browsers cannot set an Authorization header.
const TokenQueryParam = "access_token"

// BearerToken extracts the bearer token of r. ok is false when the request
// carries no credential for a bearer authenticator to judge; an empty
// token with ok set means a malformed "Bearer " header.
func BearerToken(r *http.Request) (token string, ok bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return "", false
		}
		return strings.TrimPrefix(header, "Bearer "), true
	}
	if isWebSocketUpgrade(r) {
		if v := r.URL.Query().Get(TokenQueryParam); v != "" {
			return v, true
		}
	}
	return "", false
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
