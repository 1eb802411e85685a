package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Tombunzel/HarmonApp/internal/hash"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/token"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Artist{}, &models.Follower{},
		&models.Album{}, &models.Track{},
		&models.Playlist{}, &models.PlaylistTrack{},
		&models.UserPaymentMethod{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func testTokens() *token.Service {
	return token.NewService([]byte("test_secret"))
}

// newJSONContext builds an echo context around a JSON request body.
func newJSONContext(t *testing.T, e *echo.Echo, method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func createTestUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	digest, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    digest,
		Name:        "Test " + username,
		DateOfBirth: "1990-01-01",
		Role:        role,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestArtist(t *testing.T, db *gorm.DB, username string) *models.Artist {
	digest, err := hash.HashPassword("password")
	require.NoError(t, err)
	artist := models.Artist{
		Username: username,
		Email:    username + "@example.com",
		Password: digest,
		Name:     "Band " + username,
		Genre:    "rock",
	}
	require.NoError(t, db.Create(&artist).Error)
	return &artist
}

func createTestPaymentMethod(t *testing.T, db *gorm.DB, userID uint) *models.UserPaymentMethod {
	pm := models.UserPaymentMethod{
		UserID:          userID,
		Type:            "card",
		Provider:        "visa",
		AccountNumber:   "4111111111111111",
		ExpiryDate:      "12/30",
		CVV:             "123",
		ShippingAddress: "1 Test St",
		BillingAddress:  "1 Test St",
		PhoneNumber:     "555-0100",
	}
	require.NoError(t, db.Create(&pm).Error)
	return &pm
}

func requireHTTPError(t *testing.T, err error, code int) {
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, code, he.Code)
}
