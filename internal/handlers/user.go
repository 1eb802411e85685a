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
	"github.com/Tombunzel/HarmonApp/internal/hash"
	"github.com/Tombunzel/HarmonApp/internal/logging"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
	"github.com/Tombunzel/HarmonApp/internal/token"
	"github.com/Tombunzel/HarmonApp/internal/util"
)

type UserHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Producer *mykafka.Producer
}

type userCreateRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
}

type userUpdateRequest struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	Name        *string `json:"name"`
	DateOfBirth *string `json:"date_of_birth"`
	Role        *string `json:"role"`
	Disabled    *bool   `json:"disabled"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *UserHandler) createUser(c echo.Context, role string) error {
	var req userCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return httpError(fmt.Errorf("%w: username and password required", apperr.ErrValidation))
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return httpError(err)
	}

	user := models.User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    pwHash,
		Name:        req.Name,
		DateOfBirth: req.DateOfBirth,
		Role:        role,
		Disabled:    false,
	}

	if err := h.DB.WithContext(c.Request().Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httpError(fmt.Errorf("%w: username or email already exists", apperr.ErrDuplicateKey))
		}
		return httpError(err)
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})

	return c.JSON(http.StatusCreated, user)
}

// Register creates a regular user account; this is a public endpoint.
func (h *UserHandler) Register(c echo.Context) error {
	return h.createUser(c, models.RoleUser)
}

// CreateAdmin provisions a new admin; only an existing admin can reach it.
func (h *UserHandler) CreateAdmin(c echo.Context) error {
	return h.createUser(c, models.RoleAdmin)
}

// Login verifies credentials and issues a user-kind bearer token.
func (h *UserHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login failed", "reason", "unknown username")
			return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
		}
		return httpError(err)
	}
	if !hash.CheckPassword(user.Password, req.Password) {
		l.Warn("login failed", "reason", "bad password", "user_id", user.ID)
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}

	access, err := h.Tokens.Issue(user.ID, token.KindUser, token.LoginTTL)
	if err != nil {
		return httpError(err)
	}

	l.Info("login success", "user_id", user.ID)
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: access, TokenType: "bearer"})
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, authz.UserFromContext(c))
}

// List is admin only; with ?user_id= it returns a single-element list or 404.
func (h *UserHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	q := h.DB.WithContext(ctx).Model(&models.User{})

	if idParam := c.QueryParam("user_id"); idParam != "" {
		var user models.User
		if err := q.Where("id = ?", idParam).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpError(fmt.Errorf("%w: user", apperr.ErrNotFound))
			}
			return httpError(err)
		}
		return c.JSON(http.StatusOK, []models.User{user})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var users []models.User
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// Update modifies the caller's own account. Role changes are admin only;
// a new password is re-hashed before storage.
func (h *UserHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	current := authz.UserFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if current.ID != id {
		return httpError(fmt.Errorf("%w: not authorized to modify this user", apperr.ErrForbidden))
	}

	var req userUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Role != nil && current.Role != models.RoleAdmin {
		return httpError(fmt.Errorf("%w: only administrators can modify roles", apperr.ErrForbidden))
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: user", apperr.ErrNotFound))
		}
		return httpError(err)
	}

	updates := map[string]any{}
	if req.Username != nil {
		updates["username"] = *req.Username
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.DateOfBirth != nil {
		updates["date_of_birth"] = *req.DateOfBirth
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Disabled != nil {
		updates["disabled"] = *req.Disabled
	}
	if req.Password != nil {
		pwHash, err := hash.HashPassword(*req.Password)
		if err != nil {
			return httpError(err)
		}
		updates["password"] = pwHash
	}

	if len(updates) > 0 {
		if err := h.DB.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return httpError(fmt.Errorf("%w: username or email already exists", apperr.ErrDuplicateKey))
			}
			return httpError(err)
		}
	}

	return c.JSON(http.StatusOK, user)
}

// Delete removes the caller's own account together with its followers,
// playlists, orders and payment methods.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	current := authz.UserFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if current.ID != id {
		return httpError(fmt.Errorf("%w: not authorized to delete this user", apperr.ErrForbidden))
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: user", apperr.ErrNotFound))
		}
		return httpError(err)
	}

	if err := h.DB.WithContext(ctx).Select(clause.Associations).Delete(&user).Error; err != nil {
		return httpError(err)
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":    "user_deleted",
		"user_id": user.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
