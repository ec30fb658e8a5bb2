package auth // package auth provides token issuance, verification and hashing

import (
	"crypto/sha256" // SHA-256 hashing for refresh token storage
	"encoding/hex"  // hex encoding of digests
	"errors"        // sentinel error definition
	"time"          // expiry computations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // jti generation
)

// ErrInvalidToken is returned for every verification failure: malformed input,
// wrong signing secret, expired claims, tampered payloads.  Callers must not
// be able to distinguish the reason, so the codec collapses all of them into
// this single value.
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the identity claim carried by both access and refresh tokens.
type TokenClaims struct {
	UserID string
	Email  string
}

// TokenCodec signs and verifies the two token kinds.  Access and refresh
// tokens use separate secrets: a refresh token presented as an access token
// (or the reverse) fails signature verification outright.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenCodec builds a codec from the two signing secrets and the TTLs for
// each token kind.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess signs a short-lived HS256 access token for the user.
func (tc *TokenCodec) IssueAccess(userID, email string) (string, error) {
	return tc.issue(userID, email, tc.accessSecret, tc.accessTTL)
}

// IssueRefresh signs a long-lived HS256 refresh token for the user.  The
// token must additionally be persisted by the token store before it counts
// as valid.
func (tc *TokenCodec) IssueRefresh(userID, email string) (string, error) {
	return tc.issue(userID, email, tc.refreshSecret, tc.refreshTTL)
}

func (tc *TokenCodec) issue(userID, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		// iat has second precision; jti keeps two tokens minted for the same
		// user within one second from being byte-identical, which matters for
		// the unique index on stored refresh tokens.
		"jti": uuid.NewString(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// VerifyAccess checks signature and expiry of an access token and returns the
// identity claim.  Any failure yields ErrInvalidToken.
func (tc *TokenCodec) VerifyAccess(token string) (TokenClaims, error) {
	return verify(token, tc.accessSecret)
}

// VerifyRefresh is VerifyAccess for the refresh secret.
func (tc *TokenCodec) VerifyRefresh(token string) (TokenClaims, error) {
	return verify(token, tc.refreshSecret)
}

func verify(token string, secret []byte) (TokenClaims, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC before touching the secret.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	return TokenClaims{UserID: sub, Email: email}, nil
}

// PeekExpiry decodes the exp claim without verifying the signature.  It is
// used only to compute when a refresh record should expire in storage, never
// for authorization decisions.
func (tc *TokenCodec) PeekExpiry(token string) (time.Time, error) {
	var claims jwt.MapClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrInvalidToken
	}
	return exp.Time.UTC(), nil
}

// HashToken returns the SHA-256 hex digest of a raw token.  Only the digest is
// stored in the database so a leaked refresh_tokens table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
