package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
	"github.com/Tombunzel/HarmonApp/internal/token"
)

func TestArtistRegisterAndLogin(t *testing.T) {
	db := initTestDB(t)
	tokens := testTokens()
	h := ArtistHandler{DB: db, Tokens: tokens, Producer: &mykafka.Producer{}}
	e := echo.New()

	c, rec := newJSONContext(t, e, http.MethodPost, "/artists/register", map[string]string{
		"username": "test_artist",
		"email":    "artist@example.com",
		"password": "password",
		"name":     "The Tests",
		"genre":    "rock",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var artist models.Artist
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artist))
	require.Equal(t, models.RoleArtist, artist.Role)

	// a second artist cannot reuse the band name
	cDup, _ := newJSONContext(t, e, http.MethodPost, "/artists/register", map[string]string{
		"username": "other_artist",
		"email":    "other@example.com",
		"password": "password",
		"name":     "The Tests",
		"genre":    "rock",
	})
	requireHTTPError(t, h.Register(cDup), http.StatusBadRequest)

	// login yields an artist-kind token
	cLogin, recLogin := newJSONContext(t, e, http.MethodPost, "/artists/login", map[string]string{
		"username": "test_artist",
		"password": "password",
	})
	require.NoError(t, h.Login(cLogin))
	require.Equal(t, http.StatusOK, recLogin.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(recLogin.Body.Bytes(), &resp))
	claims, err := tokens.Verify(resp["access_token"], token.KindArtist)
	require.NoError(t, err)
	require.Equal(t, token.KindArtist, claims.Kind)

	// and that token is not a user token
	_, err = tokens.Verify(resp["access_token"], token.KindUser)
	require.ErrorIs(t, err, token.ErrKindMismatch)
}

func TestArtistUpdateSelfOnly(t *testing.T) {
	db := initTestDB(t)
	h := ArtistHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()
	artist := createTestArtist(t, db, "test_artist")
	other := createTestArtist(t, db, "other_artist")

	c, _ := newJSONContext(t, e, http.MethodPatch, "/", map[string]string{"genre": "jazz"})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(other.ID))
	authz.SetArtistContext(c, artist)
	requireHTTPError(t, h.Update(c), http.StatusForbidden)

	cSelf, rec := newJSONContext(t, e, http.MethodPatch, "/", map[string]string{"genre": "jazz"})
	cSelf.SetParamNames("id")
	cSelf.SetParamValues(fmt.Sprint(artist.ID))
	authz.SetArtistContext(cSelf, artist)
	require.NoError(t, h.Update(cSelf))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Artist
	require.NoError(t, db.First(&stored, artist.ID).Error)
	require.Equal(t, "jazz", stored.Genre)
}

func TestArtistDeleteCascades(t *testing.T) {
	db := initTestDB(t)
	h := ArtistHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()
	artist := createTestArtist(t, db, "test_artist")

	album := models.Album{ArtistID: artist.ID, Name: "First Album", ReleaseDate: "2024-01-01", Price: 5.0}
	require.NoError(t, db.Create(&album).Error)
	track := models.Track{ArtistID: artist.ID, AlbumID: album.ID, Name: "First Track", ReleaseDate: "2024-01-01", Price: 10.0, Path: "/tracks/1"}
	require.NoError(t, db.Create(&track).Error)

	c, rec := newJSONContext(t, e, http.MethodDelete, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(artist.ID))
	authz.SetArtistContext(c, artist)
	require.NoError(t, h.Delete(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.Track{}).Where("artist_id = ?", artist.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Album{}).Where("artist_id = ?", artist.ID).Count(&count).Error)
	require.Zero(t, count)
}
