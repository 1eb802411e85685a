package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/logging"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
	"github.com/Tombunzel/HarmonApp/internal/service/search"
	"github.com/Tombunzel/HarmonApp/internal/util"
)

type TrackHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

type trackCreateRequest struct {
	AlbumID     uint    `json:"album_id"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Price       float64 `json:"price"`
	Path        string  `json:"path"`
}

type trackUpdateRequest struct {
	AlbumID     *uint    `json:"album_id"`
	Name        *string  `json:"name"`
	ReleaseDate *string  `json:"release_date"`
	Price       *float64 `json:"price"`
	Path        *string  `json:"path"`
}

func (h *TrackHandler) indexTrack(c echo.Context, t *models.Track) {
	if err := search.Index(c.Request().Context(), h.ES, h.Index, search.TrackDoc(t)); err != nil {
		logging.FromContext(c.Request().Context()).Warn("catalog index failed", "error", err)
	}
}

// Create adds a track owned by the authenticated artist.
func (h *TrackHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	artist := authz.ArtistFromContext(c)

	var req trackCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	track := models.Track{
		ArtistID:    artist.ID,
		AlbumID:     req.AlbumID,
		Name:        req.Name,
		ReleaseDate: req.ReleaseDate,
		Price:       req.Price,
		Path:        req.Path,
	}

	if err := h.DB.WithContext(ctx).Create(&track).Error; err != nil {
		return httpError(fmt.Errorf("%w: check input", apperr.ErrValidation))
	}

	h.indexTrack(c, &track)
	publish(c, h.Producer, "catalog_events", fmt.Sprint(track.ID), map[string]any{
		"type":      "track_created",
		"track_id":  track.ID,
		"artist_id": track.ArtistID,
		"name":      track.Name,
	})

	return c.JSON(http.StatusCreated, track)
}

// List is public; with ?track_id= it returns a single-element list or 404.
func (h *TrackHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	q := h.DB.WithContext(ctx).Model(&models.Track{})

	if idParam := c.QueryParam("track_id"); idParam != "" {
		var track models.Track
		if err := q.Where("id = ?", idParam).First(&track).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpError(fmt.Errorf("%w: track", apperr.ErrNotFound))
			}
			return httpError(err)
		}
		return c.JSON(http.StatusOK, []models.Track{track})
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var tracks []models.Track
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&tracks).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tracks)
}

// Update modifies a track owned by the authenticated artist.
func (h *TrackHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	artist := authz.ArtistFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var track models.Track
	if err := h.DB.WithContext(ctx).First(&track, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: track", apperr.ErrNotFound))
		}
		return httpError(err)
	}
	if track.ArtistID != artist.ID {
		return httpError(fmt.Errorf("%w: not authorized to modify this track", apperr.ErrForbidden))
	}

	var req trackUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.AlbumID != nil {
		track.AlbumID = *req.AlbumID
	}
	if req.Name != nil {
		track.Name = *req.Name
	}
	if req.ReleaseDate != nil {
		track.ReleaseDate = *req.ReleaseDate
	}
	if req.Price != nil {
		track.Price = *req.Price
	}
	if req.Path != nil {
		track.Path = *req.Path
	}

	if err := h.DB.WithContext(ctx).Save(&track).Error; err != nil {
		return httpError(fmt.Errorf("%w: check input", apperr.ErrValidation))
	}

	h.indexTrack(c, &track)
	publish(c, h.Producer, "catalog_events", fmt.Sprint(track.ID), map[string]any{
		"type":     "track_updated",
		"track_id": track.ID,
	})

	return c.JSON(http.StatusOK, track)
}

// Delete removes a track owned by the authenticated artist.
func (h *TrackHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	artist := authz.ArtistFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var track models.Track
	if err := h.DB.WithContext(ctx).First(&track, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: track", apperr.ErrNotFound))
		}
		return httpError(err)
	}
	if track.ArtistID != artist.ID {
		return httpError(fmt.Errorf("%w: not authorized to delete this track", apperr.ErrForbidden))
	}

	if err := h.DB.WithContext(ctx).Delete(&track).Error; err != nil {
		return httpError(err)
	}

	if err := search.Delete(ctx, h.ES, h.Index, models.ItemTypeTrack, track.ID); err != nil {
		logging.FromContext(ctx).Warn("catalog index delete failed", "error", err)
	}
	publish(c, h.Producer, "catalog_events", fmt.Sprint(track.ID), map[string]any{
		"type":     "track_deleted",
		"track_id": track.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
