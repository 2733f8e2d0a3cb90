package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/validation"
)

// Line is a cart item priced against the catalog.
type Line struct {
	ProductID string `json:"product_id"`
	VendorID  string `json:"vendor_id"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
	Subtotal  int64  `json:"subtotal"`
}

type Summary struct {
	Lines []Line `json:"items"`
	Count int    `json:"count"`
	Total int64  `json:"total"`
}

// ByVendor groups lines per vendor, keeping first-seen vendor order.
func (s Summary) ByVendor() (vendors []string, lines map[string][]Line) {
	lines = map[string][]Line{}
	for _, l := range s.Lines {
		if _, seen := lines[l.VendorID]; !seen {
			vendors = append(vendors, l.VendorID)
		}
		lines[l.VendorID] = append(lines[l.VendorID], l)
	}
	return vendors, lines
}

// OverStock returns the lines asking for more than the product has in stock.
func (s Summary) OverStock() []Line {
	var out []Line
	for _, l := range s.Lines {
		if l.Quantity > l.Stock {
			out = append(out, l)
		}
	}
	return out
}

// Price resolves every item against the catalog. Products that no longer
// exist are skipped.
func Price(ctx context.Context, src catalog.Source, items []Item) (Summary, error) {
	sum := Summary{Lines: []Line{}}
	for _, it := range items {
		p, err := src.Product(ctx, it.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return Summary{}, err
		}
		l := Line{
			ProductID: p.ID,
			VendorID:  p.VendorID,
			Name:      p.Name,
			Brand:     p.Brand,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
			Stock:     p.Stock,
			Subtotal:  p.Price * int64(it.Quantity),
		}
		sum.Lines = append(sum.Lines, l)
		sum.Count += l.Quantity
		sum.Total += l.Subtotal
	}
	return sum, nil
}

type Handler struct {
	store   Store
	catalog catalog.Source
}

func NewHandler(store Store, src catalog.Source) *Handler {
	return &Handler{store: store, catalog: src}
}

// Register mounts the cart routes on an authenticated group.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/cart", h.Get)
	g.POST("/cart/items", h.AddItem)
	g.PATCH("/cart/items/:product_id", h.UpdateItem)
	g.DELETE("/cart/items/:product_id", h.RemoveItem)
	g.DELETE("/cart", h.Clear)
}

func (h *Handler) Summary(ctx context.Context, userID string) (Summary, error) {
	items, err := h.store.Items(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Price(ctx, h.catalog, items)
}

func (h *Handler) respond(c echo.Context, userID string) error {
	sum, err := h.Summary(c.Request().Context(), userID)
	if err != nil {
		zap.L().Error("price cart", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load cart"})
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) Get(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.respond(c, me.UserID)
}

type addRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
}

func (h *Handler) AddItem(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": validation.Fields(err)})
	}

	ctx := c.Request().Context()
	p, err := h.catalog.Product(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if err != nil {
		zap.L().Error("lookup product", zap.String("product_id", req.ProductID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add item"})
	}
	inCart, err := h.quantity(ctx, me.UserID, p.ID)
	if err != nil {
		zap.L().Error("read cart", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add item"})
	}
	if inCart+req.Quantity > p.Stock {
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock", "stock": p.Stock, "in_cart": inCart})
	}

	if err := h.store.Add(ctx, me.UserID, p.ID, req.Quantity); err != nil {
		zap.L().Error("add cart item", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add item"})
	}
	return h.respond(c, me.UserID)
}

func (h *Handler) quantity(ctx context.Context, userID, productID string) (int, error) {
	items, err := h.store.Items(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if it.ProductID == productID {
			return it.Quantity, nil
		}
	}
	return 0, nil
}

type updateRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

// UpdateItem sets a line's quantity; zero removes it.
func (h *Handler) UpdateItem(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": validation.Fields(err)})
	}
	ctx := c.Request().Context()
	productID := c.Param("product_id")
	if *req.Quantity > 0 {
		p, err := h.catalog.Product(ctx, productID)
		if errors.Is(err, catalog.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		if err != nil {
			zap.L().Error("lookup product", zap.String("product_id", productID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update item"})
		}
		if *req.Quantity > p.Stock {
			return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock", "stock": p.Stock})
		}
	}
	if err := h.store.Set(ctx, me.UserID, productID, *req.Quantity); err != nil {
		zap.L().Error("update cart item", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update item"})
	}
	return h.respond(c, me.UserID)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.store.Remove(c.Request().Context(), me.UserID, c.Param("product_id")); err != nil {
		zap.L().Error("remove cart item", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not remove item"})
	}
	return h.respond(c, me.UserID)
}

func (h *Handler) Clear(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.store.Clear(c.Request().Context(), me.UserID); err != nil {
		zap.L().Error("clear cart", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not clear cart"})
	}
	return c.NoContent(http.StatusNoContent)
}
