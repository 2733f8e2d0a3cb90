package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/lifecycle"
)

type RequestStats struct {
	Total    int                      `json:"total"`
	ByStatus map[lifecycle.Status]int `json:"by_status"`
	Value    int64                    `json:"value"`
}

type Stats struct {
	Counts
	Reservations RequestStats `json:"reservations"`
	Orders       RequestStats `json:"orders"`
}

func summarize(reqs []lifecycle.Request) RequestStats {
	out := RequestStats{Total: len(reqs), ByStatus: map[lifecycle.Status]int{}}
	for _, r := range reqs {
		out.ByStatus[r.Status]++
		if r.Status != lifecycle.StatusCancelled {
			out.Value += r.Total
		}
	}
	return out
}

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	counts, err := h.store.Counts(ctx)
	if err != nil {
		zap.L().Error("admin counts", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not compute stats"})
	}

	out := Stats{Counts: counts}
	for kind, dst := range map[lifecycle.Kind]*RequestStats{
		lifecycle.KindReservation: &out.Reservations,
		lifecycle.KindOrder:       &out.Orders,
	} {
		reqs, err := h.tracker.List(ctx, kind)
		if err != nil {
			zap.L().Error("admin request stats", zap.String("kind", string(kind)), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not compute stats"})
		}
		*dst = summarize(reqs)
	}
	return c.JSON(http.StatusOK, out)
}
