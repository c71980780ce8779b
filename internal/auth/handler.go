package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"sentinel-backend/internal/engine"
	"sentinel-backend/internal/store"
)

// Handler handles authentication endpoints.
type Handler struct {
	store  *store.Store
	issuer *TokenIssuer
}

func NewHandler(s *store.Store, issuer *TokenIssuer) *Handler {
	return &Handler{store: s, issuer: issuer}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return engine.UnauthorizedError("Email and password are required")
	}

	ctx := c.Context()

	var userID, passwordHash string
	var roles []string
	var active bool
	err := h.store.Pool.QueryRow(ctx,
		"SELECT id, password_hash, roles, active FROM _users WHERE email = $1",
		body.Email).Scan(&userID, &passwordHash, &roles, &active)
	if err != nil {
		return engine.UnauthorizedError("Invalid email or password")
	}
	if !active {
		return engine.UnauthorizedError("Account is disabled")
	}
	if !CheckPassword(body.Password, passwordHash) {
		return engine.UnauthorizedError("Invalid email or password")
	}

	pair, err := h.generateTokenPair(ctx, userID, roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Refresh handles POST /api/auth/refresh with token rotation.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return engine.UnauthorizedError("Refresh token is required")
	}

	ctx := c.Context()

	var tokenID, userID string
	var expiresAt time.Time
	var roles []string
	var active bool
	err := h.store.Pool.QueryRow(ctx,
		`SELECT rt.id, rt.user_id, rt.expires_at, u.roles, u.active
		 FROM _refresh_tokens rt
		 JOIN _users u ON u.id = rt.user_id
		 WHERE rt.token = $1`, body.RefreshToken).
		Scan(&tokenID, &userID, &expiresAt, &roles, &active)
	if err != nil {
		return engine.UnauthorizedError("Invalid refresh token")
	}

	if time.Now().After(expiresAt) {
		_, _ = h.store.Pool.Exec(ctx,
			"DELETE FROM _refresh_tokens WHERE id = $1", tokenID)
		return engine.UnauthorizedError("Refresh token expired")
	}
	if !active {
		return engine.UnauthorizedError("Account is disabled")
	}

	// Rotate: the used token is gone either way.
	_, _ = h.store.Pool.Exec(ctx,
		"DELETE FROM _refresh_tokens WHERE id = $1", tokenID)

	pair, err := h.generateTokenPair(ctx, userID, roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return engine.UnauthorizedError("Refresh token is required")
	}

	_, _ = h.store.Pool.Exec(c.Context(),
		"DELETE FROM _refresh_tokens WHERE token = $1", body.RefreshToken)

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// ChangePassword handles POST /api/auth/password for the authenticated user.
// All refresh tokens are revoked so stolen sessions die with the old password.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	user := GetUser(c)
	if user == nil {
		return engine.UnauthorizedError("Missing auth token")
	}

	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if len(body.NewPassword) < 8 {
		return engine.NewAppError("WEAK_PASSWORD", 400, "New password must be at least 8 characters")
	}

	ctx := c.Context()

	var passwordHash string
	err := h.store.Pool.QueryRow(ctx,
		"SELECT password_hash FROM _users WHERE id = $1", user.ID).Scan(&passwordHash)
	if err != nil {
		return engine.UnauthorizedError("Unknown user")
	}
	if !CheckPassword(body.CurrentPassword, passwordHash) {
		return engine.UnauthorizedError("Current password is incorrect")
	}

	newHash, err := HashPassword(body.NewPassword)
	if err != nil {
		return engine.NewAppError("INTERNAL_ERROR", 500, "Failed to hash password")
	}

	_, err = h.store.Pool.Exec(ctx,
		"UPDATE _users SET password_hash = $1, updated_at = NOW() WHERE id = $2",
		newHash, user.ID)
	if err != nil {
		return engine.NewAppError("INTERNAL_ERROR", 500, "Failed to update password")
	}

	_, _ = h.store.Pool.Exec(ctx,
		"DELETE FROM _refresh_tokens WHERE user_id = $1", user.ID)

	return c.JSON(fiber.Map{"message": "Password changed"})
}

// RegisterRoutes registers public auth routes on the given Fiber app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	grp := app.Group("/api/auth")
	grp.Post("/login", h.Login)
	grp.Post("/refresh", h.Refresh)
	grp.Post("/logout", h.Logout)
}

// RegisterProtectedRoutes registers auth routes that require a valid token.
func RegisterProtectedRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	grp := app.Group("/api/auth", middleware...)
	grp.Post("/password", h.ChangePassword)
}

func (h *Handler) generateTokenPair(ctx context.Context, userID string, roles []string) (*TokenPair, error) {
	accessToken, err := h.issuer.IssueAccessToken(userID, roles)
	if err != nil {
		return nil, engine.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	refreshToken := h.issuer.NewRefreshToken()
	_, err = h.store.Pool.Exec(ctx,
		`INSERT INTO _refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`,
		userID, refreshToken, h.issuer.RefreshExpiry(time.Now()))
	if err != nil {
		return nil, engine.NewAppError("INTERNAL_ERROR", 500, "Failed to store refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
