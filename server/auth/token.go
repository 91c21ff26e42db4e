// Package auth issues and verifies HS256 bearer tokens identifying the schedule owner.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/voicecal/server/internal/errors"
)

// Issuer is the iss claim of every access token.
const Issuer = "voicecal"

// DefaultTokenTTL is used when no ttl is given to GenerateAccessToken.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrSecretMissing is returned when no signing secret is configured.
	ErrSecretMissing = errors.New("jwt secret not configured")
	// ErrInvalidToken is returned for malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("invalid access token")
)

// TokenManager signs and parses access tokens.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager creates a new token manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// GenerateAccessToken returns a signed token for userID and its expiry.
func (m *TokenManager) GenerateAccessToken(userID int32, ttl time.Duration) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, ErrSecretMissing
	}
	if userID <= 0 {
		return "", time.Time{}, fmt.Errorf("invalid user id %d", userID)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := m.now()
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(int64(userID), 10),
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccessToken validates token and returns the user id it was issued for.
func (m *TokenManager) ParseAccessToken(token string) (int32, error) {
	if len(m.secret) == 0 {
		return 0, ErrSecretMissing
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return int32(id), nil
}

type userIDKey struct{}

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int32) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int32, bool) {
	id, ok := ctx.Value(userIDKey{}).(int32)
	return id, ok
}

// UserIDFromEcho returns the user id stored by Middleware.
func UserIDFromEcho(c echo.Context) (int32, bool) {
	return UserIDFromContext(c.Request().Context())
}

// Middleware requires a valid "Authorization: Bearer <token>" header and stores the user id
// in the request context.
func (m *TokenManager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				aiErr := apierrors.Unauthorized("")
				return c.JSON(aiErr.HTTPStatus(), aiErr.Body())
			}

			userID, err := m.ParseAccessToken(strings.TrimSpace(token))
			if err != nil {
				aiErr := apierrors.Unauthorized("")
				return c.JSON(aiErr.HTTPStatus(), aiErr.Body())
			}

			c.SetRequest(c.Request().WithContext(WithUserID(c.Request().Context(), userID)))
			return next(c)
		}
	}
}
