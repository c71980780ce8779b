package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sentinel-backend/internal/config"
	"sentinel-backend/internal/metadata"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims is the access-token payload: the registered claims plus the roles
// the validation engine sees on the actor scope.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// Actor projects the claims into the acting principal handed to the engine.
func (c *Claims) Actor() *metadata.UserContext {
	return &metadata.UserContext{ID: c.Subject, Roles: c.Roles}
}

// TokenIssuer signs and verifies access tokens and mints opaque refresh
// tokens. Lifetimes come from configuration.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret string, cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

// IssueAccessToken signs an HS256 token carrying the user id and roles.
func (ti *TokenIssuer) IssueAccessToken(userID string, roles []string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.accessTTL)),
		},
		Roles: roles,
	})

	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken parses a signed token and returns its claims. Expired or
// tampered tokens are rejected.
func (ti *TokenIssuer) VerifyAccessToken(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// NewRefreshToken mints an opaque refresh token.
func (ti *TokenIssuer) NewRefreshToken() string {
	return uuid.New().String()
}

// RefreshExpiry returns when a refresh token minted at now stops working.
func (ti *TokenIssuer) RefreshExpiry(now time.Time) time.Time {
	return now.Add(ti.refreshTTL)
}

// HashPassword derives a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
