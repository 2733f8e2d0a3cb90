package marketplace

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/session"
)

// Reservations and orders share the same read and transition endpoints; the
// handlers below are parameterised by kind and the JSON key of the list.

func filterStatus(rs []lifecycle.Request, status lifecycle.Status) []lifecycle.Request {
	if status == "" {
		return rs
	}
	out := rs[:0:0]
	for _, r := range rs {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func (h *Handler) list(c echo.Context, kind lifecycle.Kind, key string, asTarget bool) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := lifecycle.Status(strings.ToLower(strings.TrimSpace(c.QueryParam("status"))))
	if status != "" && !lifecycle.ValidStatus(kind, status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status", "status": status})
	}

	ctx := c.Request().Context()
	var (
		rs  []lifecycle.Request
		err error
	)
	if asTarget {
		rs, err = h.tracker.ListByTarget(ctx, me.UserID, kind)
	} else {
		rs, err = h.tracker.ListByOwner(ctx, me.UserID, kind)
	}
	if err != nil {
		return requestError(c, "list "+string(kind)+"s", err)
	}
	rs = filterStatus(rs, status)
	return c.JSON(http.StatusOK, echo.Map{key: views(rs), "total": len(rs)})
}

// load fetches a request of kind that the caller takes part in. When ok is
// false the response has been written and err is the handler's result.
func (h *Handler) load(c echo.Context, kind lifecycle.Kind) (r lifecycle.Request, me session.Session, ok bool, err error) {
	me, ok = session.CurrentUser(c)
	if !ok {
		return r, me, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	r, err = h.tracker.Get(c.Request().Context(), c.Param("id"))
	if err == nil && r.Kind != kind {
		err = lifecycle.ErrNotFound
	}
	if err != nil {
		return r, me, false, requestError(c, "load "+string(kind), err)
	}
	if me.UserID != r.OwnerID && me.UserID != r.TargetID && me.Role != session.RoleAdmin {
		return r, me, false, c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this " + string(kind)})
	}
	return r, me, true, nil
}

func (h *Handler) get(c echo.Context, kind lifecycle.Kind) error {
	r, _, ok, err := h.load(c, kind)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{string(kind): view(r, true)})
}

// cancel is open to the request owner and admins.
func (h *Handler) cancel(c echo.Context, kind lifecycle.Kind) error {
	r, me, ok, err := h.load(c, kind)
	if !ok {
		return err
	}
	if me.UserID != r.OwnerID && me.Role != session.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the client can cancel this " + string(kind)})
	}
	var req CancelRequest
	if body, ok := decode(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, body)
	}

	updated, err := h.tracker.Cancel(c.Request().Context(), r.ID, me.UserID, strings.TrimSpace(req.Reason))
	if err != nil {
		return requestError(c, "cancel "+string(kind), err)
	}
	return c.JSON(http.StatusOK, echo.Map{string(kind): view(updated, true)})
}

// advance is open to the mechanic or vendor serving the request and admins.
func (h *Handler) advance(c echo.Context, kind lifecycle.Kind) error {
	r, me, ok, err := h.load(c, kind)
	if !ok {
		return err
	}
	if me.UserID != r.TargetID && me.Role != session.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the provider can update this " + string(kind)})
	}

	updated, err := h.tracker.Advance(c.Request().Context(), r.ID)
	if err != nil {
		return requestError(c, "advance "+string(kind), err)
	}
	return c.JSON(http.StatusOK, echo.Map{string(kind): view(updated, true)})
}
