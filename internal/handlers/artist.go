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

type ArtistHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Producer *mykafka.Producer
}

type artistCreateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Genre    string `json:"genre"`
}

type artistUpdateRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
	Genre    *string `json:"genre"`
	Disabled *bool   `json:"disabled"`
}

// Register creates an artist account; public endpoint.
func (h *ArtistHandler) Register(c echo.Context) error {
	var req artistCreateRequest
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

	artist := models.Artist{
		Username: req.Username,
		Email:    req.Email,
		Password: pwHash,
		Name:     req.Name,
		Genre:    req.Genre,
		Role:     models.RoleArtist,
		Disabled: false,
	}

	if err := h.DB.WithContext(c.Request().Context()).Create(&artist).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httpError(fmt.Errorf("%w: username, email or name already exists", apperr.ErrDuplicateKey))
		}
		return httpError(err)
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(artist.ID), map[string]any{
		"type":      "artist_registered",
		"artist_id": artist.ID,
		"username":  artist.Username,
	})

	return c.JSON(http.StatusCreated, artist)
}

// Login verifies credentials and issues an artist-kind bearer token.
func (h *ArtistHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "artist.login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var artist models.Artist
	if err := h.DB.WithContext(ctx).Where("username = ?", req.Username).First(&artist).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login failed", "reason", "unknown username")
			return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
		}
		return httpError(err)
	}
	if !hash.CheckPassword(artist.Password, req.Password) {
		l.Warn("login failed", "reason", "bad password", "artist_id", artist.ID)
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}

	access, err := h.Tokens.Issue(artist.ID, token.KindArtist, token.LoginTTL)
	if err != nil {
		return httpError(err)
	}

	l.Info("login success", "artist_id", artist.ID)
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: access, TokenType: "bearer"})
}

// Me returns the authenticated artist.
func (h *ArtistHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, authz.ArtistFromContext(c))
}

// List is restricted to admin users; with ?artist_id= it returns a
// single-element list or 404.
func (h *ArtistHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	q := h.DB.WithContext(ctx).Model(&models.Artist{})

	if idParam := c.QueryParam("artist_id"); idParam != "" {
		var artist models.Artist
		if err := q.Where("id = ?", idParam).First(&artist).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpError(fmt.Errorf("%w: artist", apperr.ErrNotFound))
			}
			return httpError(err)
		}
		return c.JSON(http.StatusOK, []models.Artist{artist})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var artists []models.Artist
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&artists).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, artists)
}

// Update modifies the caller's own artist profile.
func (h *ArtistHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	current := authz.ArtistFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if current.ID != id {
		return httpError(fmt.Errorf("%w: not authorized to modify this artist", apperr.ErrForbidden))
	}

	var req artistUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var artist models.Artist
	if err := h.DB.WithContext(ctx).First(&artist, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: artist", apperr.ErrNotFound))
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
	if req.Genre != nil {
		updates["genre"] = *req.Genre
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
		if err := h.DB.WithContext(ctx).Model(&artist).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return httpError(fmt.Errorf("%w: username, email or name already exists", apperr.ErrDuplicateKey))
			}
			return httpError(err)
		}
	}

	return c.JSON(http.StatusOK, artist)
}

// Delete removes the caller's own artist account with its tracks, albums and
// followers.
func (h *ArtistHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	current := authz.ArtistFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if current.ID != id {
		return httpError(fmt.Errorf("%w: not authorized to delete this artist", apperr.ErrForbidden))
	}

	var artist models.Artist
	if err := h.DB.WithContext(ctx).First(&artist, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: artist", apperr.ErrNotFound))
		}
		return httpError(err)
	}

	if err := h.DB.WithContext(ctx).Select(clause.Associations).Delete(&artist).Error; err != nil {
		return httpError(err)
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(artist.ID), map[string]any{
		"type":      "artist_deleted",
		"artist_id": artist.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
