package model

import (
	"database/sql"
	"time"
)

// User mirrors the 'users' table.  Primary keys are UUID strings so they can
// travel through JWT claims and JSON payloads without conversion.
type User struct {
	ID           string         // users.id
	Email        string         // users.email (unique, stored lowercase)
	PasswordHash string         // users.password_hash (bcrypt)
	Name         sql.NullString // users.name (optional display name)
	CreatedAt    time.Time      // users.created_at
	UpdatedAt    time.Time      // users.updated_at
}

// RefreshToken models a row in the `refresh_tokens` table.  One row exists
// per issued refresh token; rotation deletes the row and inserts a new one.
// Only the SHA-256 digest of the raw token is stored.
type RefreshToken struct {
	ID        string    // refresh_tokens.id
	UserID    string    // refresh_tokens.user_id (cascade-deletes with the user)
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
