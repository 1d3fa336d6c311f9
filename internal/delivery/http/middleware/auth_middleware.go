package middleware

import (
	"context"
	"errors"
	"strings"

	"studnet/internal/session"

	"github.com/gofiber/fiber/v3"
)

const (
	CtxSessionKey = "session"
	CtxUserIDKey  = "user_id"

	// initDataQuery carries init data for clients that cannot set headers,
	// such as browser websockets.
	initDataQuery = "init_data"
)

// SessionOpener resolves the session of the user behind a request.
type SessionOpener interface {
	Open(ctx context.Context, initData string) (*session.Session, error)
}

// AuthMiddleware authenticates mini-app requests by their Telegram init data,
// sent as "Authorization: tma <initData>".
type AuthMiddleware struct {
	sessions SessionOpener
}

func NewAuthMiddleware(sessions SessionOpener) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

func (m *AuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		initData, ok := tmaFromHeader(c.Get("Authorization"))
		if !ok {
			initData = strings.TrimSpace(c.Query(initDataQuery))
		}

		sess, err := m.sessions.Open(c.Context(), initData)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrNoIdentity):
				return NewAppError(fiber.StatusUnauthorized, "Init data required", nil, err)
			case errors.Is(err, session.ErrRejected):
				return NewAppError(fiber.StatusUnauthorized, "Invalid init data", nil, err)
			default:
				return NewAppError(fiber.StatusBadGateway, "Backend unavailable", nil, err)
			}
		}

		c.Locals(CtxSessionKey, sess)
		c.Locals(CtxUserIDKey, sess.UserID)
		return c.Next()
	}
}

func SessionFrom(c fiber.Ctx) (*session.Session, bool) {
	s, ok := c.Locals(CtxSessionKey).(*session.Session)
	return s, ok && s != nil
}

func tmaFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "tma") {
		return "", false
	}

	data := strings.TrimSpace(parts[1])
	if data == "" {
		return "", false
	}

	return data, true
}
