package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/ledger"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
)

type OrderItemHandler struct {
	DB       *gorm.DB
	Ledger   *ledger.Service
	Producer *mykafka.Producer
}

// Create adds an item to an order owned by the caller (or any order, for an
// admin) and re-establishes the order total.
func (h *OrderItemHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	var req struct {
		OrderID  uint   `json:"order_id"`
		ItemID   uint   `json:"item_id"`
		Type     string `json:"type"`
		Quantity int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var order models.Order
	if err := h.DB.WithContext(ctx).First(&order, req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: order", apperr.ErrNotFound))
		}
		return httpError(err)
	}
	if !canAccessOrder(user, &order) {
		return httpError(fmt.Errorf("%w: not authorized to modify this order", apperr.ErrForbidden))
	}

	item, err := h.Ledger.AddItem(ctx, req.OrderID, req.ItemID, req.Type, req.Quantity)
	if err != nil {
		return httpError(err)
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":     "order_item_added",
		"order_id": order.ID,
		"item_id":  item.ItemID,
	})

	return c.JSON(http.StatusCreated, item)
}

// List returns the items of one order (owner or admin), ordered by
// insertion; an empty order yields an empty list.
func (h *OrderItemHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	orderID := c.QueryParam("order_id")
	if orderID == "" {
		return httpError(fmt.Errorf("%w: order_id required", apperr.ErrValidation))
	}

	var order models.Order
	if err := h.DB.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: order", apperr.ErrNotFound))
		}
		return httpError(err)
	}
	if !canAccessOrder(user, &order) {
		return httpError(fmt.Errorf("%w: not authorized to see this order's items", apperr.ErrForbidden))
	}

	items := []models.OrderItem{}
	if err := h.DB.WithContext(ctx).Where("order_id = ?", order.ID).Order("id ASC").Find(&items).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// Update changes an item (owner or admin) and re-establishes the order
// total.
func (h *OrderItemHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Ledger.OrderOf(ctx, id)
	if err != nil {
		return httpError(err)
	}
	if !canAccessOrder(user, order) {
		return httpError(fmt.Errorf("%w: not authorized to modify this item", apperr.ErrForbidden))
	}

	var changes ledger.ItemChanges
	if err := c.Bind(&changes); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Ledger.UpdateItem(ctx, id, changes)
	if err != nil {
		return httpError(err)
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":     "order_item_updated",
		"order_id": order.ID,
		"item_id":  item.ItemID,
	})

	return c.JSON(http.StatusOK, item)
}

// Delete removes an item (owner or admin) and re-establishes the order
// total.
func (h *OrderItemHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Ledger.OrderOf(ctx, id)
	if err != nil {
		return httpError(err)
	}
	if !canAccessOrder(user, order) {
		return httpError(fmt.Errorf("%w: not authorized to delete this item", apperr.ErrForbidden))
	}

	if err := h.Ledger.RemoveItem(ctx, id); err != nil {
		return httpError(err)
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":     "order_item_removed",
		"order_id": order.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
