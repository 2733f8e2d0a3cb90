package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mecanomotors/mecano/internal/session"
)

// Me returns the currently authenticated user's account.
func (h *Handler) Me(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	acct, err := h.store.ByID(c.Request().Context(), me.UserID)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}
	return c.JSON(http.StatusOK, acct)
}
