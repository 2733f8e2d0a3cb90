// Package marketplace serves discovery, reservations, orders and reviews.
package marketplace

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/cart"
	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/directory"
	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/middleware"
	"github.com/mecanomotors/mecano/internal/payment"
	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/validation"
)

// Ledger records charges. A charge stays pending until the orders it paid for
// are stored, so a retried checkout can reuse it.
type Ledger interface {
	Record(ctx context.Context, userID string, ch payment.Charge, res payment.Result) error
	Pending(ctx context.Context, userID, method string, amount int64) (payment.Result, bool, error)
	Settle(ctx context.Context, transactionID string) error
}

// LocationProvider yields the requester's position, if known.
type LocationProvider interface {
	Current(c echo.Context) (*directory.Coordinate, bool)
}

// QueryLocation reads lat and lng query parameters. Malformed or out of range
// values count as unknown.
type QueryLocation struct{}

func (QueryLocation) Current(c echo.Context) (*directory.Coordinate, bool) {
	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err1 != nil || err2 != nil {
		return nil, false
	}
	coord := directory.Coordinate{Lat: lat, Lon: lng}
	if !directory.ValidCoordinate(coord) {
		return nil, false
	}
	return &coord, true
}

type Deps struct {
	Catalog  catalog.Store
	Tracker  *lifecycle.Tracker
	Carts    cart.Store
	Gateway  payment.Gateway
	Ledger   Ledger
	Reviews  ReviewStore
	Location LocationProvider
}

type Handler struct {
	catalog  catalog.Store
	tracker  *lifecycle.Tracker
	carts    cart.Store
	gateway  payment.Gateway
	ledger   Ledger
	reviews  ReviewStore
	location LocationProvider
}

func NewHandler(d Deps) *Handler {
	if d.Location == nil {
		d.Location = QueryLocation{}
	}
	return &Handler{
		catalog:  d.Catalog,
		tracker:  d.Tracker,
		carts:    d.Carts,
		gateway:  d.Gateway,
		ledger:   d.Ledger,
		reviews:  d.Reviews,
		location: d.Location,
	}
}

// Register mounts public listing routes on pub and everything else on
// authed, which must already run the JWT middleware.
func (h *Handler) Register(pub, authed *echo.Group) {
	pub.GET("/mechanics", h.ListMechanics)
	pub.GET("/mechanics/:id", h.GetMechanic)
	pub.GET("/mechanics/:id/reviews", h.MechanicReviews)
	pub.GET("/products", h.ListProducts)
	pub.GET("/products/:id", h.GetProduct)

	clients := middleware.RequireRoles(session.RoleClient, session.RoleAdmin)
	mechanics := middleware.RequireRoles(session.RoleMechanic, session.RoleAdmin)
	vendors := middleware.RequireRoles(session.RoleVendor, session.RoleAdmin)

	authed.POST("/reservations", h.CreateReservation, clients)
	authed.GET("/reservations", h.ListReservations)
	authed.GET("/reservations/:id", h.GetReservation)
	authed.POST("/reservations/:id/cancel", h.CancelReservation)
	authed.POST("/reservations/:id/advance", h.AdvanceReservation)
	authed.POST("/reservations/:id/review", h.CreateReview, clients)
	authed.GET("/mechanic/reservations", h.MechanicReservations, mechanics)

	authed.POST("/orders/checkout", h.Checkout, clients)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.POST("/orders/:id/cancel", h.CancelOrder)
	authed.POST("/orders/:id/advance", h.AdvanceOrder)
	authed.GET("/vendor/orders", h.VendorOrders, vendors)

	authed.POST("/vendor/products", h.CreateProduct, vendors)
	authed.GET("/vendor/products", h.VendorProducts, vendors)
	authed.PUT("/vendor/products/:id", h.UpdateProduct, vendors)
	authed.DELETE("/vendor/products/:id", h.DeleteProduct, vendors)
}

// requestError maps lifecycle errors onto HTTP responses.
func requestError(c echo.Context, op string, err error) error {
	var verr *lifecycle.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, lifecycle.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	zap.L().Error(op, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not " + op})
}

// decode binds and validates req. On failure it returns the 400 body.
func decode(c echo.Context, req any) (echo.Map, bool) {
	if err := c.Bind(req); err != nil {
		return echo.Map{"error": "invalid request"}, false
	}
	if err := c.Validate(req); err != nil {
		return echo.Map{"error": "validation failed", "fields": validation.Fields(err)}, false
	}
	return nil, true
}

func pagination(c echo.Context, defLimit, maxLimit int) (page, limit int) {
	page, limit = 1, defLimit
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}
	return page, limit
}
