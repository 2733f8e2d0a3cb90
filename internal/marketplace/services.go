package marketplace

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/directory"
	"github.com/mecanomotors/mecano/internal/metrics"
	"github.com/mecanomotors/mecano/internal/session"
)

// ListMechanics ranks mechanics by search, specialty, city, sort and the
// caller's location.
func (h *Handler) ListMechanics(c echo.Context) error {
	mechanics, err := h.catalog.Mechanics(c.Request().Context())
	if err != nil {
		zap.L().Error("load mechanics", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch mechanics"})
	}
	entities, byID := catalog.MechanicEntities(mechanics)

	q := directory.Query{
		Term:     c.QueryParam("search"),
		Category: c.QueryParam("specialty"),
		City:     c.QueryParam("city"),
		Sort:     directory.ParseSortKey(c.QueryParam("sort")),
	}
	if coord, ok := h.location.Current(c); ok {
		q.Requester = coord
	}

	ranked := directory.Rank(entities, q)
	metrics.ObserveRank("mechanics", string(q.Sort), len(ranked))

	results := make([]MechanicResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, MechanicResult{Mechanic: byID[r.Entity.ID], DistanceKm: r.Distance})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"mechanics":   results,
		"total":       len(results),
		"sort":        q.Sort,
		"cities":      directory.Cities(entities),
		"specialties": directory.Categories(entities),
	})
}

// GetMechanic returns a mechanic with the latest reviews.
func (h *Handler) GetMechanic(c echo.Context) error {
	ctx := c.Request().Context()
	m, err := h.catalog.Mechanic(ctx, c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "mechanic not found"})
	}
	if err != nil {
		zap.L().Error("load mechanic", zap.String("id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch mechanic"})
	}

	reviews, err := h.reviews.ForMechanic(ctx, m.UserID, 5, 0)
	if err != nil {
		zap.L().Warn("load recent reviews", zap.String("id", m.UserID), zap.Error(err))
		reviews = []Review{}
	}
	var distance *float64
	if coord, ok := h.location.Current(c); ok {
		if e := m.Entity(); e.Coordinate != nil {
			d := directory.Haversine(*coord, *e.Coordinate)
			distance = &d
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"mechanic": MechanicResult{Mechanic: m, DistanceKm: distance},
		"reviews":  reviews,
	})
}

// ListProducts ranks the parts catalogue. Products sort by name unless asked
// otherwise.
func (h *Handler) ListProducts(c echo.Context) error {
	products, err := h.catalog.Products(c.Request().Context())
	if err != nil {
		zap.L().Error("load products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch products"})
	}
	entities, byID := catalog.ProductEntities(products)

	sort := directory.SortName
	if raw := c.QueryParam("sort"); raw != "" {
		sort = directory.ParseSortKey(raw)
	}
	q := directory.Query{
		Term:     c.QueryParam("search"),
		Category: c.QueryParam("category"),
		City:     c.QueryParam("brand"),
		Sort:     sort,
	}

	ranked := directory.Rank(entities, q)
	metrics.ObserveRank("products", string(q.Sort), len(ranked))

	results := make([]catalog.Product, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, byID[r.Entity.ID])
	}
	return c.JSON(http.StatusOK, echo.Map{
		"products":   results,
		"total":      len(results),
		"sort":       q.Sort,
		"categories": directory.Categories(entities),
		"brands":     directory.Cities(entities),
	})
}

func (h *Handler) GetProduct(c echo.Context) error {
	p, err := h.catalog.Product(c.Request().Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if err != nil {
		zap.L().Error("load product", zap.String("id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch product"})
	}
	return c.JSON(http.StatusOK, echo.Map{"product": p})
}

// CreateProduct lists a new part for the calling vendor.
func (h *Handler) CreateProduct(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req CreateProductRequest
	if body, ok := decode(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, body)
	}

	p, err := h.catalog.CreateProduct(c.Request().Context(), catalog.Product{
		VendorID:    me.UserID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
		Brand:       strings.TrimSpace(req.Brand),
		Stock:       req.Stock,
	})
	if err != nil {
		zap.L().Error("create product", zap.String("vendor_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"product": p})
}

// ownedProduct loads the :id product for its vendor or an admin. On failure
// the response has been written.
func (h *Handler) ownedProduct(c echo.Context) (catalog.Product, bool, error) {
	me, ok := session.CurrentUser(c)
	if !ok {
		return catalog.Product{}, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, err := h.catalog.Product(c.Request().Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return p, false, c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if err != nil {
		zap.L().Error("load product", zap.String("id", c.Param("id")), zap.Error(err))
		return p, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch product"})
	}
	if p.VendorID != me.UserID && me.Role != session.RoleAdmin {
		return p, false, c.JSON(http.StatusForbidden, echo.Map{"error": "not your product"})
	}
	return p, true, nil
}

// UpdateProduct replaces a listed part's details.
func (h *Handler) UpdateProduct(c echo.Context) error {
	current, ok, err := h.ownedProduct(c)
	if !ok {
		return err
	}
	var req CreateProductRequest
	if body, ok := decode(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, body)
	}

	p, err := h.catalog.UpdateProduct(c.Request().Context(), catalog.Product{
		ID:          current.ID,
		VendorID:    current.VendorID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
		Brand:       strings.TrimSpace(req.Brand),
		Stock:       req.Stock,
	})
	if errors.Is(err, catalog.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	if err != nil {
		zap.L().Error("update product", zap.String("id", current.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update product"})
	}
	return c.JSON(http.StatusOK, echo.Map{"product": p})
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	current, ok, err := h.ownedProduct(c)
	if !ok {
		return err
	}
	err = h.catalog.DeleteProduct(c.Request().Context(), current.ID)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		zap.L().Error("delete product", zap.String("id", current.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete product"})
	}
	zap.L().Info("product deleted", zap.String("id", current.ID), zap.String("vendor_id", current.VendorID))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) VendorProducts(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	products, err := h.catalog.VendorProducts(c.Request().Context(), me.UserID)
	if err != nil {
		zap.L().Error("list vendor products", zap.String("vendor_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch products"})
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}
