package marketplace

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/session"
)

// CreateReview lets a client rate one of their completed reservations, then
// refreshes the mechanic's rating aggregate.
func (h *Handler) CreateReview(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req CreateReviewRequest
	if body, ok := decode(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, body)
	}

	ctx := c.Request().Context()
	r, err := h.tracker.Get(ctx, c.Param("id"))
	if err == nil && (r.Kind != lifecycle.KindReservation || r.OwnerID != me.UserID) {
		err = lifecycle.ErrNotFound
	}
	if err != nil {
		return requestError(c, "load reservation", err)
	}
	if r.Status != lifecycle.StatusCompleted {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "can only review completed reservations",
			"status": r.Status,
		})
	}

	review, err := h.reviews.Create(ctx, Review{
		RequestID:  r.ID,
		MechanicID: r.TargetID,
		ClientID:   me.UserID,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
	})
	if errors.Is(err, ErrDuplicateReview) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "review already exists for this reservation"})
	}
	if err != nil {
		zap.L().Error("create review", zap.String("reservation_id", r.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create review"})
	}

	sum, err := h.reviews.Summary(ctx, r.TargetID)
	if err == nil {
		avg := math.Round(sum.AverageRating*100) / 100
		err = h.catalog.RecordRating(ctx, r.TargetID, avg, sum.TotalReviews)
	}
	if err != nil {
		zap.L().Warn("refresh mechanic rating", zap.String("mechanic_id", r.TargetID), zap.Error(err))
	}

	return c.JSON(http.StatusCreated, echo.Map{"review": review})
}

// MechanicReviews pages through a mechanic's reviews with the rating summary.
func (h *Handler) MechanicReviews(c echo.Context) error {
	ctx := c.Request().Context()
	m, err := h.catalog.Mechanic(ctx, c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "mechanic not found"})
	}
	if err != nil {
		zap.L().Error("load mechanic", zap.String("id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch mechanic"})
	}

	page, limit := pagination(c, 10, 50)
	sum, err := h.reviews.Summary(ctx, m.UserID)
	if err != nil {
		zap.L().Error("rating summary", zap.String("id", m.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch rating summary"})
	}
	sum.MechanicName = m.Name()

	reviews, err := h.reviews.ForMechanic(ctx, m.UserID, limit, (page-1)*limit)
	if err != nil {
		zap.L().Error("list reviews", zap.String("id", m.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reviews"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"summary": sum,
		"reviews": reviews,
		"pagination": echo.Map{
			"page":  page,
			"limit": limit,
			"total": sum.TotalReviews,
		},
	})
}
