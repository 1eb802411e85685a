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
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
)

type FollowerHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// Follow subscribes the authenticated user to an artist.
func (h *FollowerHandler) Follow(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	artistID, err := parseIDParam(c, "artist_id")
	if err != nil {
		return err
	}

	var artist models.Artist
	if err := h.DB.WithContext(ctx).First(&artist, artistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(fmt.Errorf("%w: artist", apperr.ErrNotFound))
		}
		return httpError(err)
	}

	follower := models.Follower{UserID: user.ID, ArtistID: artist.ID}
	if err := h.DB.WithContext(ctx).Create(&follower).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return httpError(fmt.Errorf("%w: already following", apperr.ErrDuplicateKey))
		}
		return httpError(err)
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":      "artist_followed",
		"user_id":   user.ID,
		"artist_id": artist.ID,
	})

	return c.JSON(http.StatusCreated, follower)
}

// Unfollow removes the subscription.
func (h *FollowerHandler) Unfollow(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	artistID, err := parseIDParam(c, "artist_id")
	if err != nil {
		return err
	}

	res := h.DB.WithContext(ctx).
		Where("user_id = ? AND artist_id = ?", user.ID, artistID).
		Delete(&models.Follower{})
	if res.Error != nil {
		return httpError(res.Error)
	}
	if res.RowsAffected == 0 {
		return httpError(fmt.Errorf("%w: not following this artist", apperr.ErrNotFound))
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":      "artist_unfollowed",
		"user_id":   user.ID,
		"artist_id": artistID,
	})

	return c.NoContent(http.StatusNoContent)
}

// Following lists the artists the authenticated user follows.
func (h *FollowerHandler) Following(c echo.Context) error {
	ctx := c.Request().Context()
	user := authz.UserFromContext(c)

	artists := []models.Artist{}
	err := h.DB.WithContext(ctx).
		Joins("JOIN followers ON followers.artist_id = artists.id").
		Where("followers.user_id = ?", user.ID).
		Order("artists.id ASC").
		Find(&artists).Error
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, artists)
}
