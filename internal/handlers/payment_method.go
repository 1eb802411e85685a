package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/models"
)

type PaymentMethodHandler struct {
	DB *gorm.DB
}

type paymentMethodRequest struct {
	Type            string `json:"type"`
	Provider        string `json:"provider"`
	AccountNumber   string `json:"account_number"`
	ExpiryDate      string `json:"expiry_date"`
	CVV             string `json:"cvv"`
	ShippingAddress string `json:"shipping_address"`
	BillingAddress  string `json:"billing_address"`
	PhoneNumber     string `json:"phone_number"`
	IsDefault       bool   `json:"is_default"`
}

// Create stores a payment method for the authenticated user.
func (h *PaymentMethodHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	var req paymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pm := models.UserPaymentMethod{
		UserID:          user.ID,
		Type:            req.Type,
		Provider:        req.Provider,
		AccountNumber:   req.AccountNumber,
		ExpiryDate:      req.ExpiryDate,
		CVV:             req.CVV,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PhoneNumber:     req.PhoneNumber,
		IsDefault:       req.IsDefault,
	}

	if err := h.DB.WithContext(ctx).Create(&pm).Error; err != nil {
		return httpError(fmt.Errorf("%w: check input", apperr.ErrValidation))
	}

	return c.JSON(http.StatusCreated, pm)
}

// Mine lists the authenticated user's payment methods.
func (h *PaymentMethodHandler) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	methods := []models.UserPaymentMethod{}
	if err := h.DB.WithContext(ctx).Where("user_id = ?", user.ID).Order("id ASC").Find(&methods).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, methods)
}

func (h *PaymentMethodHandler) owned(c echo.Context) (*models.UserPaymentMethod, error) {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}

	var pm models.UserPaymentMethod
	if err := h.DB.WithContext(ctx).First(&pm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpError(fmt.Errorf("%w: payment method", apperr.ErrNotFound))
		}
		return nil, httpError(err)
	}
	if pm.UserID != user.ID {
		return nil, httpError(fmt.Errorf("%w: not authorized to access this payment method", apperr.ErrForbidden))
	}
	return &pm, nil
}

// Update modifies one of the caller's own payment methods.
func (h *PaymentMethodHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	pm, err := h.owned(c)
	if err != nil {
		return err
	}

	var req struct {
		Type            *string `json:"type"`
		Provider        *string `json:"provider"`
		AccountNumber   *string `json:"account_number"`
		ExpiryDate      *string `json:"expiry_date"`
		CVV             *string `json:"cvv"`
		ShippingAddress *string `json:"shipping_address"`
		BillingAddress  *string `json:"billing_address"`
		PhoneNumber     *string `json:"phone_number"`
		IsDefault       *bool   `json:"is_default"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	updates := map[string]any{}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Provider != nil {
		updates["provider"] = *req.Provider
	}
	if req.AccountNumber != nil {
		updates["account_number"] = *req.AccountNumber
	}
	if req.ExpiryDate != nil {
		updates["expiry_date"] = *req.ExpiryDate
	}
	if req.CVV != nil {
		updates["cvv"] = *req.CVV
	}
	if req.ShippingAddress != nil {
		updates["shipping_address"] = *req.ShippingAddress
	}
	if req.BillingAddress != nil {
		updates["billing_address"] = *req.BillingAddress
	}
	if req.PhoneNumber != nil {
		updates["phone_number"] = *req.PhoneNumber
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}

	if len(updates) > 0 {
		if err := h.DB.WithContext(ctx).Model(pm).Updates(updates).Error; err != nil {
			return httpError(fmt.Errorf("%w: check input", apperr.ErrValidation))
		}
	}

	return c.JSON(http.StatusOK, pm)
}

// Delete removes one of the caller's own payment methods.
func (h *PaymentMethodHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	pm, err := h.owned(c)
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(ctx).Delete(pm).Error; err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
