package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dbforge/schema-designer/internal/auth"
	"github.com/dbforge/schema-designer/internal/model"
)

// TokenRepo persists issued refresh tokens.  A refresh token is valid iff a
// non-expired row for it exists here; the cryptographic validity of the token
// alone is never enough, which is what makes revocation possible before the
// token expires on its own.
type TokenRepo struct {
	DB    *sql.DB
	Codec *auth.TokenCodec
}

func NewTokenRepo(db *sql.DB, codec *auth.TokenCodec) *TokenRepo {
	return &TokenRepo{DB: db, Codec: codec}
}

// Save inserts a row for a freshly issued refresh token.  The row expiry is
// read from the token's own exp claim via the codec; a token without a
// decodable expiry is rejected with auth.ErrInvalidToken.  Before inserting,
// the user's already-expired rows are swept out.  The sweep is garbage
// collection, not a correctness step: a missed sweep only wastes storage.
func (r *TokenRepo) Save(ctx context.Context, userID, rawToken string) (model.RefreshToken, error) {
	exp, err := r.Codec.PeekExpiry(rawToken)
	if err != nil {
		return model.RefreshToken{}, auth.ErrInvalidToken
	}

	_, _ = r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=? AND expires_at < ?",
		userID, time.Now().UTC())

	rec := model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: auth.HashToken(rawToken),
		ExpiresAt: exp,
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES (?,?,?,?)",
		rec.ID, rec.UserID, rec.TokenHash, rec.ExpiresAt)
	if err != nil {
		return model.RefreshToken{}, err
	}
	return rec, nil
}

// IsValid reports whether a row for this exact token exists and its stored
// expiry is still in the future.
func (r *TokenRepo) IsValid(ctx context.Context, rawToken string) (bool, error) {
	var expiresAt time.Time
	err := r.DB.QueryRowContext(ctx,
		"SELECT expires_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		auth.HashToken(rawToken)).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Now().UTC().Before(expiresAt), nil
}

// Delete removes the row for one token.  Deleting an absent token is not an
// error, which makes rotation and logout idempotent.
func (r *TokenRepo) Delete(ctx context.Context, rawToken string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", auth.HashToken(rawToken))
	return err
}

// DeleteAllForUser removes every refresh token the user owns ("log out
// everywhere").
func (r *TokenRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
