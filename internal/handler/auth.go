package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dbforge/schema-designer/internal/auth"
	"github.com/dbforge/schema-designer/internal/model"
	"github.com/dbforge/schema-designer/internal/repository"
)

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
	Codec      *auth.TokenCodec
	Users      UserStore
	Tokens     TokenStore
	BcryptCost int
}

func NewAuthHandler(codec *auth.TokenCodec, users UserStore, tokens TokenStore, bcryptCost int) *AuthHandler {
	return &AuthHandler{Codec: codec, Users: users, Tokens: tokens, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type logoutReq struct {
	RefreshToken string `json:"refreshToken"`
	LogoutAll    bool   `json:"logoutAll"`
}

type userPart struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}
type authResp struct {
	User         userPart `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

func toUserPart(u model.User) userPart {
	p := userPart{ID: u.ID, Email: u.Email}
	if u.Name.Valid {
		p.Name = &u.Name.String
	}
	return p
}

// issuePair signs an access+refresh pair for the user and persists the
// refresh half so it becomes redeemable.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (access, refresh string, err error) {
	if access, err = h.Codec.IssueAccess(u.ID, u.Email); err != nil {
		return "", "", err
	}
	if refresh, err = h.Codec.IssueRefresh(u.ID, u.Email); err != nil {
		return "", "", err
	}
	if _, err = h.Tokens.Save(ctx, u.ID, refresh); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Register creates a user and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, req.Name, h.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already exists"})
		}
		log.Printf("register: create user: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	access, refresh, err := h.issuePair(ctx, u)
	if err != nil {
		log.Printf("register: issue tokens: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), AccessToken: access, RefreshToken: refresh})
}

// Login verifies credentials and returns a fresh token pair.  Unknown email
// and wrong password produce the same response body so the endpoint does not
// leak account existence; the two cases stay distinct in the server log.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("login: unknown email %q", req.Email)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
		}
		log.Printf("login: query user: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		log.Printf("login: wrong password for user %s", u.ID)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	}

	access, refresh, err := h.issuePair(ctx, u)
	if err != nil {
		log.Printf("login: issue tokens: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), AccessToken: access, RefreshToken: refresh})
}

// Refresh rotates a refresh token: the presented token must be valid both
// cryptographically and in the store.  The old row is deleted before the new
// pair is issued, so a replayed token dies after its first successful use.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token is required"})
	}
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Tokens.IsValid(ctx, raw)
	if err != nil {
		log.Printf("refresh: store lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	claims, err := h.Codec.VerifyRefresh(raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	u, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Printf("refresh: load user: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	if err := h.Tokens.Delete(ctx, raw); err != nil {
		log.Printf("refresh: delete old token: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	access, refresh, err := h.issuePair(ctx, u)
	if err != nil {
		log.Printf("refresh: issue tokens: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access, "refreshToken": refresh})
}

// Logout ends one session (by refresh token) or, with logoutAll and a valid
// bearer credential, every session of the caller.  Logging out everywhere
// with no active sessions is a successful no-op.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	_ = c.Bind(&req) // an unreadable body is treated like an empty one
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if req.LogoutAll {
		if id, ok := auth.ResolveIdentity(c.Request(), h.Codec); ok {
			if err := h.Tokens.DeleteAllForUser(ctx, id.UserID); err != nil {
				log.Printf("logout: delete all for user %s: %v", id.UserID, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
			}
			return c.JSON(http.StatusOK, echo.Map{"message": "logged out from all devices"})
		}
	}
	if refreshToken != "" {
		if err := h.Tokens.Delete(ctx, refreshToken); err != nil {
			log.Printf("logout: delete token: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token is required"})
}

// Me echoes the identity resolved by the bearer middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"id":    c.Get(CtxUserID),
		"email": c.Get(CtxEmail),
	})
}
