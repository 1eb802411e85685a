package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/logging"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
	"github.com/Tombunzel/HarmonApp/internal/service/search"
	"github.com/Tombunzel/HarmonApp/internal/util"
)

type AlbumHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

type albumCreateRequest struct {
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Price       float64 `json:"price"`
}

type albumUpdateRequest struct {
	Name        *string  `json:"name"`
	ReleaseDate *string  `json:"release_date"`
	Price       *float64 `json:"price"`
}

func (h *AlbumHandler) indexAlbum(c echo.Context, a *models.Album) {
	if err := search.Index(c.Request().Context(), h.ES, h.Index, search.AlbumDoc(a)); err != nil {
		logging.FromContext(c.Request().Context()).Warn("catalog index failed", "error", err)
	}
}

// Create adds an album owned by the authenticated artist.
func (h *AlbumHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	artist := authz.ArtistFromContext(c)

	var req albumCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	album := models.Album{
		ArtistID:    artist.ID,
		Name:        req.Name,
		ReleaseDate: req.ReleaseDate,
		Price:       req.Price,
	}

	if err := h.DB.WithContext(ctx).Create(&album).Error; err != nil {
		return httpError(fmt.Errorf("%w: check input", apperr.ErrValidation))
	}

	h.indexAlbum(c, &album)
	publish(c, h.Producer, "catalog_events", fmt.Sprint(album.ID), map[string]any{
		"type":      "album_created",
		"album_id":  album.ID,
		"artist_id": album.ArtistID,
		"name":      album.Name,
	})

	return c.JSON(http.StatusCreated, album)
}

// List is public; with ?album_id= it returns a single-element list or 404.
func (h *AlbumHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	q := h.DB.WithContext(ctx).Model(&models.Album{})

	if idParam := c.QueryParam("album_id"); idParam != "" {
		var album models.Album
		if err := q.Where("id = ?", idParam).First(&album).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpError(fmt.Errorf("%w: album", apperr.ErrNotFound))
			}
			return httpError(err)
		}
		return c.JSON(http.StatusOK, []models.Album{album})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var albums []models.Album
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&albums).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, albums)
}

// Tracks lists an album's tracks; an album with no tracks yields an empty
// list, a missing album a 404.
func (h *AlbumHandler) Tracks(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var album models.Album
	if err := h.DB.WithContext(ctx).First(&album, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: album", apperr.ErrNotFound))
		}
		return httpError(err)
	}

	tracks := []models.Track{}
	if err := h.DB.WithContext(ctx).Where("album_id = ?", id).Order("id ASC").Find(&tracks).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tracks)
}

// Update modifies an album owned by the authenticated artist.
func (h *AlbumHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	artist := authz.ArtistFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var album models.Album
	if err := h.DB.WithContext(ctx).First(&album, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: album", apperr.ErrNotFound))
		}
		return httpError(err)
	}
	if album.ArtistID != artist.ID {
		return httpError(fmt.Errorf("%w: not authorized to modify this album", apperr.ErrForbidden))
	}

	var req albumUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.Name != nil {
		album.Name = *req.Name
	}
	if req.ReleaseDate != nil {
		album.ReleaseDate = *req.ReleaseDate
	}
	if req.Price != nil {
		album.Price = *req.Price
	}

	if err := h.DB.WithContext(ctx).Save(&album).Error; err != nil {
		return httpError(fmt.Errorf("%w: check input", apperr.ErrValidation))
	}

	h.indexAlbum(c, &album)
	publish(c, h.Producer, "catalog_events", fmt.Sprint(album.ID), map[string]any{
		"type":     "album_updated",
		"album_id": album.ID,
	})

	return c.JSON(http.StatusOK, album)
}

// Delete removes an album owned by the authenticated artist, cascading to its
// tracks.
func (h *AlbumHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	artist := authz.ArtistFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var album models.Album
	if err := h.DB.WithContext(ctx).First(&album, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: album", apperr.ErrNotFound))
		}
		return httpError(err)
	}
	if album.ArtistID != artist.ID {
		return httpError(fmt.Errorf("%w: not authorized to delete this album", apperr.ErrForbidden))
	}

	if err := h.DB.WithContext(ctx).Select(clause.Associations).Delete(&album).Error; err != nil {
		return httpError(err)
	}

	if err := search.Delete(ctx, h.ES, h.Index, models.ItemTypeAlbum, album.ID); err != nil {
		logging.FromContext(ctx).Warn("catalog index delete failed", "error", err)
	}
	publish(c, h.Producer, "catalog_events", fmt.Sprint(album.ID), map[string]any{
		"type":     "album_deleted",
		"album_id": album.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
