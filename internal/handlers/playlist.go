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
)

type PlaylistHandler struct {
	DB *gorm.DB
}

// Create opens an empty playlist for the authenticated user.
func (h *PlaylistHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return httpError(fmt.Errorf("%w: name required", apperr.ErrValidation))
	}

	playlist := models.Playlist{UserID: user.ID, Name: req.Name}
	if err := h.DB.WithContext(ctx).Create(&playlist).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, playlist)
}

// Mine lists the authenticated user's playlists.
func (h *PlaylistHandler) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	playlists := []models.Playlist{}
	if err := h.DB.WithContext(ctx).Where("user_id = ?", user.ID).Order("id ASC").Find(&playlists).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, playlists)
}

func (h *PlaylistHandler) owned(c echo.Context) (*models.Playlist, error) {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}

	var playlist models.Playlist
	if err := h.DB.WithContext(ctx).First(&playlist, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpError(fmt.Errorf("%w: playlist", apperr.ErrNotFound))
		}
		return nil, httpError(err)
	}
	if playlist.UserID != user.ID {
		return nil, httpError(fmt.Errorf("%w: not authorized to access this playlist", apperr.ErrForbidden))
	}
	return &playlist, nil
}

// Tracks lists the playlist's entries in position order.
func (h *PlaylistHandler) Tracks(c echo.Context) error {
	ctx := c.Request().Context()

	playlist, err := h.owned(c)
	if err != nil {
		return err
	}

	entries := []models.PlaylistTrack{}
	if err := h.DB.WithContext(ctx).Where("playlist_id = ?", playlist.ID).Order("position ASC").Find(&entries).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

// Rename changes the playlist's name.
func (h *PlaylistHandler) Rename(c echo.Context) error {
	ctx := c.Request().Context()

	playlist, err := h.owned(c)
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return httpError(fmt.Errorf("%w: name required", apperr.ErrValidation))
	}

	if err := h.DB.WithContext(ctx).Model(playlist).Update("name", req.Name).Error; err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, playlist)
}

// Delete removes a playlist and its entries.
func (h *PlaylistHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	playlist, err := h.owned(c)
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(ctx).Select(clause.Associations).Delete(playlist).Error; err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddTrack appends a track to the playlist.
func (h *PlaylistHandler) AddTrack(c echo.Context) error {
	ctx := c.Request().Context()

	playlist, err := h.owned(c)
	if err != nil {
		return err
	}

	var req struct {
		TrackID  uint `json:"track_id"`
		Position int  `json:"position"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var track models.Track
	if err := h.DB.WithContext(ctx).First(&track, req.TrackID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: track", apperr.ErrNotFound))
		}
		return httpError(err)
	}

	if req.Position == 0 {
		var count int64
		if err := h.DB.WithContext(ctx).Model(&models.PlaylistTrack{}).Where("playlist_id = ?", playlist.ID).Count(&count).Error; err != nil {
			return httpError(err)
		}
		req.Position = int(count) + 1
	}

	entry := models.PlaylistTrack{
		PlaylistID: playlist.ID,
		TrackID:    track.ID,
		Position:   req.Position,
	}
	if err := h.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httpError(fmt.Errorf("%w: track already in playlist", apperr.ErrDuplicateKey))
		}
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// RemoveTrack drops a track from the playlist.
func (h *PlaylistHandler) RemoveTrack(c echo.Context) error {
	ctx := c.Request().Context()

	playlist, err := h.owned(c)
	if err != nil {
		return err
	}

	trackID, err := parseIDParam(c, "track_id")
	if err != nil {
		return err
	}

	res := h.DB.WithContext(ctx).
		Where("playlist_id = ? AND track_id = ?", playlist.ID, trackID).
		Delete(&models.PlaylistTrack{})
	if res.Error != nil {
		return httpError(res.Error)
	}
	if res.RowsAffected == 0 {
		return httpError(fmt.Errorf("%w: track not in playlist", apperr.ErrNotFound))
	}
	return c.NoContent(http.StatusNoContent)
}
