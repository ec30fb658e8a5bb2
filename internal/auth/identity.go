package auth

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer " // prefix match is case-sensitive

// Identity is the caller identity resolved from a request credential.
type Identity struct {
	UserID string
	Email  string
}

// ResolveIdentity reads the bearer credential from the Authorization header
// and verifies it as an access token.  A missing header, a malformed prefix
// and an invalid or expired token all return ok=false with no further detail:
// callers treat every failure uniformly as unauthenticated.
func ResolveIdentity(r *http.Request, codec *TokenCodec) (Identity, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return Identity{}, false
	}
	claims, err := codec.VerifyAccess(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		return Identity{}, false
	}
	return Identity{UserID: claims.UserID, Email: claims.Email}, true
}
