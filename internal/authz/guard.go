// Package authz derives the calling principal from a bearer token and gates
// access to operations. Per request the chain is: extract token, verify
// signature/expiry/kind, load the principal row, check the disabled flag,
// then any role requirement. Ownership rules stay in the handlers.
package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/token"
)

const (
	userContextKey   = "currentUser"
	artistContextKey = "currentArtist"
)

type Guard struct {
	DB     *gorm.DB
	Tokens *token.Service
}

func NewGuard(db *gorm.DB, tokens *token.Service) *Guard {
	return &Guard{DB: db, Tokens: tokens}
}

// CurrentUser resolves a raw bearer token into an active User.
func (g *Guard) CurrentUser(ctx context.Context, raw string) (*models.User, error) {
	claims, err := g.verify(raw, token.KindUser)
	if err != nil {
		return nil, err
	}

	id, err := claims.SubjectID()
	if err != nil {
		return nil, apperr.ErrUnauthenticated
	}

	var user models.User
	if err := g.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUnauthenticated
		}
		return nil, err
	}
	if user.Disabled {
		return nil, apperr.ErrInactive
	}
	return &user, nil
}

// CurrentArtist resolves a raw bearer token into an active Artist.
func (g *Guard) CurrentArtist(ctx context.Context, raw string) (*models.Artist, error) {
	claims, err := g.verify(raw, token.KindArtist)
	if err != nil {
		return nil, err
	}

	id, err := claims.SubjectID()
	if err != nil {
		return nil, apperr.ErrUnauthenticated
	}

	var artist models.Artist
	if err := g.DB.WithContext(ctx).First(&artist, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUnauthenticated
		}
		return nil, err
	}
	if artist.Disabled {
		return nil, apperr.ErrInactive
	}
	return &artist, nil
}

func (g *Guard) verify(raw string, kind token.Kind) (*token.Claims, error) {
	if raw == "" {
		return nil, apperr.ErrUnauthenticated
	}
	claims, err := g.Tokens.Verify(raw, kind)
	if err != nil {
		if errors.Is(err, token.ErrKindMismatch) {
			return nil, fmt.Errorf("%w: expected %s token", apperr.ErrTokenKindMismatch, kind)
		}
		return nil, apperr.ErrUnauthenticated
	}
	return claims, nil
}

// RequireActiveUser authenticates a user token and stores the principal in
// the echo context.
func (g *Guard) RequireActiveUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := g.CurrentUser(c.Request().Context(), BearerToken(c))
		if err != nil {
			return denied(err)
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireAdmin allows only active users with the admin role.
func (g *Guard) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return g.RequireActiveUser(func(c echo.Context) error {
		user := UserFromContext(c)
		if user.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "only administrators can access this endpoint")
		}
		return next(c)
	})
}

// RequireActiveArtist authenticates an artist token and stores the principal
// in the echo context.
func (g *Guard) RequireActiveArtist(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		artist, err := g.CurrentArtist(c.Request().Context(), BearerToken(c))
		if err != nil {
			return denied(err)
		}
		c.Set(artistContextKey, artist)
		return next(c)
	}
}

func denied(err error) error {
	switch {
	case errors.Is(err, apperr.ErrInactive):
		// the source API reports a disabled principal as a bad request,
		// not as an auth failure
		return echo.NewHTTPError(http.StatusBadRequest, "inactive principal")
	case errors.Is(err, apperr.ErrUnauthenticated), errors.Is(err, apperr.ErrTokenKindMismatch):
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// BearerToken extracts the token from the Authorization header; empty string
// when missing or malformed.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

// UserFromContext returns the principal set by RequireActiveUser; nil when
// the middleware did not run.
func UserFromContext(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

func ArtistFromContext(c echo.Context) *models.Artist {
	if a, ok := c.Get(artistContextKey).(*models.Artist); ok {
		return a
	}
	return nil
}

// SetUserContext is a test hook mirroring what RequireActiveUser does.
func SetUserContext(c echo.Context, u *models.User) {
	c.Set(userContextKey, u)
}

func SetArtistContext(c echo.Context, a *models.Artist) {
	c.Set(artistContextKey, a)
}
