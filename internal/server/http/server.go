// Package httpserver exposes the account lifecycle API over HTTP.
package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/and161185/signup/internal/errs"
	"github.com/and161185/signup/internal/model"
	"github.com/and161185/signup/internal/service"
	"github.com/and161185/signup/internal/session"
	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Server wires the account service into HTTP handlers.
type Server struct {
	svc        service.AccountService
	sessions   *session.Issuer
	confirmTTL time.Duration
	log        *zap.Logger
}

// New constructs a Server with injected dependencies.
func New(svc service.AccountService, sessions *session.Issuer, confirmTTL time.Duration, log *zap.Logger) *Server {
	return &Server{svc: svc, sessions: sessions, confirmTTL: confirmTTL, log: log}
}

// Echo builds the routed echo instance with logging and recovery middleware.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(Recover(s.log), RequestLogger(s.log))

	api := e.Group("/api")
	api.POST("/register", s.register)
	api.POST("/confirm", s.confirm)
	api.POST("/login", s.login)
	api.POST("/remember", s.remember)
	api.GET("/me", s.me, RequireSession(s.sessions))
	return e
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type confirmRequest struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
}

type loginRequest struct {
	Credential string `json:"credential"`
	Password   string `json:"password"`
}

type rememberRequest struct {
	AccountID   string `json:"account_id"`
	RememberKey string `json:"remember_key"`
}

type accountView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type sessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// viewOf strips credentials before an account leaves the process.
func viewOf(a *model.Account) accountView {
	return accountView{
		ID:          a.ID.String(),
		Email:       a.Email,
		Username:    a.Username,
		ConfirmedAt: a.ConfirmedAt,
		CreatedAt:   a.CreatedAt,
	}
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}

	acc, err := s.svc.Register(c.Request().Context(), model.RegisterDraft{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, s.confirmTTL)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, viewOf(acc))
	case errors.Is(err, errs.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, "email or username already taken")
	default:
		return err
	}
}

// confirm renders every token failure the same way; the caller must not be
// able to probe whether a code is wrong, expired or already used.
func (s *Server) confirm(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	accountID, err := uuid.FromString(req.AccountID)
	if err != nil || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired code")
	}

	sess, err := s.svc.ConfirmAccount(c.Request().Context(), accountID, req.Code)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, sessionView{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
	case errors.Is(err, errs.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired code")
	default:
		return err
	}
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if req.Credential == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "empty credential/password")
	}

	sess, acc, err := s.svc.AuthenticateWithIP(c.Request().Context(), req.Credential, req.Password, c.RealIP())
	switch {
	case err == nil:
		// The remember key lets the client re-authenticate without the
		// password after the session expires. Login is the only place
		// that hands it out.
		return c.JSON(http.StatusOK, map[string]any{
			"session":      sessionView{Token: sess.Token, ExpiresAt: sess.ExpiresAt},
			"account":      viewOf(acc),
			"remember_key": acc.AuthKey,
		})
	case errors.Is(err, errs.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, errs.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts")
	default:
		return err
	}
}

// remember trades a stored remember key for a fresh session. Failures are
// rendered uniformly so the endpoint cannot be used to enumerate accounts.
func (s *Server) remember(c echo.Context) error {
	var req rememberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	accountID, err := uuid.FromString(req.AccountID)
	if err != nil || req.RememberKey == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid remember key")
	}

	sess, acc, err := s.svc.RememberWithKey(c.Request().Context(), accountID, req.RememberKey)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]any{
			"session": sessionView{Token: sess.Token, ExpiresAt: sess.ExpiresAt},
			"account": viewOf(acc),
		})
	case errors.Is(err, errs.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid remember key")
	default:
		return err
	}
}

func (s *Server) me(c echo.Context) error {
	id, ok := AccountIDFromCtx(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	acc, err := s.svc.GetAccount(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
		}
		return err
	}
	return c.JSON(http.StatusOK, viewOf(acc))
}
