package middleware

import (
	"errors"
	"strings"

	"n8n-monitor/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

const (
	CtxSubjectKey = "subject"
	CtxClaimsKey  = "claims"

	// QueryAccessToken carries the token for WebSocket clients, which cannot
	// set headers from a browser. Only WebSocketMiddleware reads it.
	QueryAccessToken = "access_token"
)

type AuthMiddleware struct {
	jwt jwt.Service
}

func NewAuthMiddleware(jwtSvc jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwtSvc}
}

// Middleware validates the bearer token and requires ScopeRead.
func (m *AuthMiddleware) Middleware() fiber.Handler {
	return m.handler(false)
}

// WebSocketMiddleware is Middleware that also accepts QueryAccessToken.
func (m *AuthMiddleware) WebSocketMiddleware() fiber.Handler {
	return m.handler(true)
}

func (m *AuthMiddleware) handler(allowQuery bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerTokenFromHeader(c.Get("Authorization"))
		if !ok && allowQuery {
			token = strings.TrimSpace(c.Query(QueryAccessToken))
		}
		if token == "" {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return NewAppError(fiber.StatusUnauthorized, "Token expired", nil, err)
			}
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil, err)
		}
		if !claims.HasScope(jwt.ScopeRead) {
			return NewAppError(fiber.StatusForbidden, "Missing scope "+jwt.ScopeRead, nil, nil)
		}

		c.Locals(CtxSubjectKey, claims.Subject)
		c.Locals(CtxClaimsKey, claims)

		return c.Next()
	}
}

// RequireScope must run after Middleware. With auth disabled no claims are
// present and the request passes.
func RequireScope(scope string) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := c.Locals(CtxClaimsKey).(jwt.Claims)
		if !ok {
			return c.Next()
		}
		if !claims.HasScope(scope) {
			return NewAppError(fiber.StatusForbidden, "Missing scope "+scope, nil, nil)
		}
		return c.Next()
	}
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
