package httpserver

import (
	"net/http"
	"strings"

	"github.com/and161185/signup/internal/session"
	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"
)

const accountIDKey = "signup.accountID"

// WithAccountID stores the authenticated account ID on the request context.
func WithAccountID(c echo.Context, id uuid.UUID) {
	c.Set(accountIDKey, id)
}

// AccountIDFromCtx fetches the authenticated account ID from the request context.
func AccountIDFromCtx(c echo.Context) (uuid.UUID, bool) {
	v := c.Get(accountIDKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequireSession validates the bearer session token and stores the account ID.
func RequireSession(sessions *session.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			tok, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || tok == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}
			id, err := sessions.Parse(tok)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}
			WithAccountID(c, id)
			return next(c)
		}
	}
}
