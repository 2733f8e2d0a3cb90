package marketplace

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/cart"
	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/metrics"
	"github.com/mecanomotors/mecano/internal/payment"
	"github.com/mecanomotors/mecano/internal/session"
)

func orderDetails(clientID, vendorID string, lines []cart.Line, req CheckoutRequest, transactionID string) lifecycle.Details {
	items := make([]lifecycle.LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, lifecycle.LineItem{
			RefID:     l.ProductID,
			Label:     l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return lifecycle.Details{
		Kind:     lifecycle.KindOrder,
		OwnerID:  clientID,
		TargetID: vendorID,
		Items:    items,
		Notes:    req.Notes,
		Order: &lifecycle.OrderDetails{
			ShippingAddress: strings.TrimSpace(req.ShippingAddress),
			PaymentMethod:   req.PaymentMethod,
			TransactionID:   transactionID,
		},
	}
}

// Checkout charges the caller's cart once and opens one order per vendor in
// it. All orders are stored together; if that fails the charge stays pending
// and the next checkout of the same amount reuses it.
func (h *Handler) Checkout(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req CheckoutRequest
	if body, ok := decode(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, body)
	}

	ctx := c.Request().Context()
	items, err := h.carts.Items(ctx, me.UserID)
	if err != nil {
		zap.L().Error("read cart", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not read cart"})
	}
	sum, err := cart.Price(ctx, h.catalog, items)
	if err != nil {
		zap.L().Error("price cart", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not read cart"})
	}
	if len(sum.Lines) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
	}
	if short := sum.OverStock(); len(short) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock", "items": short})
	}

	vendors, byVendor := sum.ByVendor()
	for _, v := range vendors {
		if err := orderDetails(me.UserID, v, byVendor[v], req, "pending").Validate(); err != nil {
			return requestError(c, "checkout", err)
		}
	}

	res, found, err := h.ledger.Pending(ctx, me.UserID, req.PaymentMethod, sum.Total)
	if err != nil {
		zap.L().Error("look up pending charge", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start payment"})
	}
	if found {
		zap.L().Info("reusing pending charge",
			zap.String("user_id", me.UserID), zap.String("transaction_id", res.TransactionID))
	} else {
		charge := payment.Charge{
			Amount:      sum.Total,
			Method:      req.PaymentMethod,
			Phone:       req.Phone,
			Description: "Commande Mecano Motor's",
			Reference:   uuid.NewString(),
		}
		res, err = h.gateway.Charge(ctx, charge)
		metrics.ObservePayment(req.PaymentMethod, err)
		if err != nil {
			zap.L().Warn("checkout payment failed",
				zap.String("user_id", me.UserID), zap.String("method", req.PaymentMethod), zap.Error(err))
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": payment.Message(req.PaymentMethod, err)})
		}
		if err := h.ledger.Record(ctx, me.UserID, charge, res); err != nil {
			zap.L().Error("record transaction", zap.String("transaction_id", res.TransactionID), zap.Error(err))
		}
	}

	details := make([]lifecycle.Details, 0, len(vendors))
	for _, v := range vendors {
		details = append(details, orderDetails(me.UserID, v, byVendor[v], req, res.TransactionID))
	}
	created, err := h.tracker.CreateAll(ctx, details)
	if err != nil {
		zap.L().Error("create orders after payment",
			zap.String("transaction_id", res.TransactionID), zap.Int("vendors", len(vendors)), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "payment received but orders were not saved, retry checkout to complete them",
			"payment": res,
		})
	}
	if err := h.ledger.Settle(ctx, res.TransactionID); err != nil {
		zap.L().Error("settle transaction", zap.String("transaction_id", res.TransactionID), zap.Error(err))
	}

	orders := make([]RequestView, 0, len(created))
	for _, r := range created {
		orders = append(orders, view(r, true))
	}
	if err := h.carts.Clear(ctx, me.UserID); err != nil {
		zap.L().Warn("clear cart after checkout", zap.String("user_id", me.UserID), zap.Error(err))
	}
	return c.JSON(http.StatusCreated, echo.Map{"orders": orders, "payment": res})
}

func (h *Handler) ListOrders(c echo.Context) error {
	return h.list(c, lifecycle.KindOrder, "orders", false)
}

// VendorOrders lists the orders placed with the calling vendor.
func (h *Handler) VendorOrders(c echo.Context) error {
	return h.list(c, lifecycle.KindOrder, "orders", true)
}

func (h *Handler) GetOrder(c echo.Context) error {
	return h.get(c, lifecycle.KindOrder)
}

func (h *Handler) CancelOrder(c echo.Context) error {
	return h.cancel(c, lifecycle.KindOrder)
}

func (h *Handler) AdvanceOrder(c echo.Context) error {
	return h.advance(c, lifecycle.KindOrder)
}
