// Package auth registers accounts, signs users in and resets passwords.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/validation"
)

// Notifier queues account emails.
type Notifier interface {
	Welcome(userID string) error
	PasswordReset(userID, resetURL string, ttl time.Duration) error
}

type Options struct {
	AppURL          string
	ResetTTL        time.Duration
	BootstrapSecret string
}

type Handler struct {
	store    Store
	issuer   *session.Issuer
	notifier Notifier
	opts     Options
	now      func() time.Time
}

func NewHandler(store Store, issuer *session.Issuer, notifier Notifier, opts Options) *Handler {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = 30 * time.Minute
	}
	return &Handler{store: store, issuer: issuer, notifier: notifier, opts: opts, now: time.Now}
}

// Register mounts the public auth routes on pub and /auth/me on authed.
func (h *Handler) Register(pub, authed *echo.Group) {
	pub.POST("/auth/signup", h.Signup)
	pub.POST("/auth/login", h.Login)
	pub.POST("/auth/password/request", h.RequestPasswordReset)
	pub.POST("/auth/password/reset", h.ResetPassword)
	pub.POST("/auth/bootstrap-admin", h.BootstrapAdmin)
	authed.GET("/auth/me", h.Me)
}

type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required,max=80"`
	LastName  string `json:"last_name" validate:"required,max=80"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type TokenResponse struct {
	Token string  `json:"token"`
	User  Account `json:"user"`
}

// Signup creates a client, mechanic or vendor account. Admins are only made
// through promotion.
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": validation.Fields(err)})
	}

	role := session.RoleClient
	if req.Role != "" {
		r, ok := session.NormalizeRole(req.Role)
		if !ok || r == session.RoleAdmin {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
		}
		role = r
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	acct, err := h.store.Create(c.Request().Context(), Account{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        req.Email,
		PasswordHash: string(hashed),
		Role:         role,
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		IsActive:     true,
	})
	if errors.Is(err, ErrEmailTaken) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		zap.L().Error("signup", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "account creation failed"})
	}

	token, err := h.issuer.Issue(acct.ID, acct.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	if h.notifier != nil {
		if err := h.notifier.Welcome(acct.ID); err != nil {
			zap.L().Warn("welcome email not queued", zap.String("user_id", acct.ID), zap.Error(err))
		}
	}
	zap.L().Info("account created", zap.String("user_id", acct.ID), zap.String("role", acct.Role))
	return c.JSON(http.StatusCreated, TokenResponse{Token: token, User: acct})
}
