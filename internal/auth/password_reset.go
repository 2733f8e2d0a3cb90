package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const resetRequested = "If the email exists, a reset link has been sent."

type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RequestPasswordReset mails a reset link. It answers the same way whether
// or not the email is known.
func (h *Handler) RequestPasswordReset(c echo.Context) error {
	req := new(RequestPasswordResetRequest)
	if err := c.Bind(req); err != nil || c.Validate(req) != nil {
		return c.JSON(http.StatusOK, echo.Map{"message": resetRequested})
	}

	ctx := c.Request().Context()
	acct, err := h.store.ByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			zap.L().Error("reset lookup", zap.Error(err))
		}
		return c.JSON(http.StatusOK, echo.Map{"message": resetRequested})
	}

	token, err := h.issuer.IssueReset(acct.ID, h.opts.ResetTTL)
	if err == nil {
		err = h.store.SaveResetToken(ctx, hashToken(token), acct.ID, h.now().Add(h.opts.ResetTTL))
	}
	if err != nil {
		zap.L().Error("issue reset token", zap.String("user_id", acct.ID), zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{"message": resetRequested})
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", h.opts.AppURL, url.QueryEscape(token))
	if h.notifier != nil {
		if err := h.notifier.PasswordReset(acct.ID, resetURL, h.opts.ResetTTL); err != nil {
			zap.L().Warn("reset email not queued", zap.String("user_id", acct.ID), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": resetRequested})
}

// ResetPassword sets a new password. A token works once.
func (h *Handler) ResetPassword(c echo.Context) error {
	req := new(ResetPasswordRequest)
	if err := c.Bind(req); err != nil || c.Validate(req) != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	userID, err := h.issuer.VerifyReset(req.Token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	ctx := c.Request().Context()
	owner, err := h.store.ConsumeResetToken(ctx, hashToken(req.Token), h.now())
	if err != nil || owner != userID {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	err = h.store.SetPassword(ctx, userID, string(hashed))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		zap.L().Error("set password", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update password"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}
