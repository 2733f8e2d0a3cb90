package admin

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/lifecycle"
)

// GET /admin/requests?kind=&status=
// Without kind, reservations and orders are merged newest first.
func (h *Handler) ListRequests(c echo.Context) error {
	kinds := []lifecycle.Kind{lifecycle.KindReservation, lifecycle.KindOrder}
	if k := lifecycle.Kind(c.QueryParam("kind")); k != "" {
		if !k.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid kind"})
		}
		kinds = []lifecycle.Kind{k}
	}
	status := lifecycle.Status(c.QueryParam("status"))
	if status != "" && !validForAny(kinds, status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx := c.Request().Context()
	out := []lifecycle.Request{}
	for _, k := range kinds {
		if status != "" && !lifecycle.ValidStatus(k, status) {
			continue
		}
		reqs, err := h.tracker.List(ctx, k)
		if err != nil {
			zap.L().Error("admin list requests", zap.String("kind", string(k)), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch requests"})
		}
		for _, r := range reqs {
			if status == "" || r.Status == status {
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return c.JSON(http.StatusOK, echo.Map{"requests": out, "count": len(out)})
}

func validForAny(kinds []lifecycle.Kind, s lifecycle.Status) bool {
	for _, k := range kinds {
		if lifecycle.ValidStatus(k, s) {
			return true
		}
	}
	return false
}
