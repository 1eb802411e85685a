package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
	"github.com/Tombunzel/HarmonApp/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// canAccessOrder is the owner-or-admin rule shared by order and order-item
// mutations.
func canAccessOrder(user *models.User, order *models.Order) bool {
	return user.ID == order.UserID || user.Role == models.RoleAdmin
}

// Create opens a new order for the authenticated user with a zero total.
func (h *OrderHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	var req struct {
		PaymentMethodID uint `json:"payment_method_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var pm models.UserPaymentMethod
	if err := h.DB.WithContext(ctx).First(&pm, req.PaymentMethodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: bad payment method id", apperr.ErrValidation))
		}
		return httpError(err)
	}
	if pm.UserID != user.ID {
		return httpError(fmt.Errorf("%w: payment method belongs to another user", apperr.ErrForbidden))
	}

	order := models.Order{
		UserID:          user.ID,
		Status:          models.OrderStatusProcessing,
		Total:           0,
		PaymentMethodID: req.PaymentMethodID,
	}

	if err := h.DB.WithContext(ctx).Create(&order).Error; err != nil {
		return httpError(err)
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"user_id":  order.UserID,
	})

	return c.JSON(http.StatusCreated, order)
}

// List is admin only; with ?order_id= it returns a single-element list or
// 404.
func (h *OrderHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	q := h.DB.WithContext(ctx).Model(&models.Order{})

	if idParam := c.QueryParam("order_id"); idParam != "" {
		var order models.Order
		if err := q.Where("id = ?", idParam).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpError(fmt.Errorf("%w: order", apperr.ErrNotFound))
			}
			return httpError(err)
		}
		return c.JSON(http.StatusOK, []models.Order{order})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var orders []models.Order
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

// Mine lists the authenticated user's orders; no orders is an empty list,
// not an error.
func (h *OrderHandler) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	orders := []models.Order{}
	if err := h.DB.WithContext(ctx).Where("user_id = ?", user.ID).Order("id ASC").Find(&orders).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

// Update lets the owner or an admin change an order's status or payment
// method. The total is ledger-owned and cannot be set here.
func (h *OrderHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: order", apperr.ErrNotFound))
		}
		return httpError(err)
	}
	if !canAccessOrder(user, &order) {
		return httpError(fmt.Errorf("%w: not authorized to modify this order", apperr.ErrForbidden))
	}

	var req struct {
		Status          *string `json:"status"`
		PaymentMethodID *uint   `json:"payment_method_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	updates := map[string]any{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.PaymentMethodID != nil {
		updates["payment_method_id"] = *req.PaymentMethodID
	}

	if len(updates) > 0 {
		if err := h.DB.WithContext(ctx).Model(&order).Updates(updates).Error; err != nil {
			return httpError(fmt.Errorf("%w: check input", apperr.ErrValidation))
		}
	}

	return c.JSON(http.StatusOK, order)
}

// Delete removes an order (owner or admin) together with its items.
func (h *OrderHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: order", apperr.ErrNotFound))
		}
		return httpError(err)
	}
	if !canAccessOrder(user, &order) {
		return httpError(fmt.Errorf("%w: not authorized to delete this order", apperr.ErrForbidden))
	}

	if err := h.DB.WithContext(ctx).Select(clause.Associations).Delete(&order).Error; err != nil {
		return httpError(err)
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":     "order_deleted",
		"order_id": order.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
