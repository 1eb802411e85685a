package ledger

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Artist{}, &models.Album{}, &models.Track{},
		&models.User{}, &models.UserPaymentMethod{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

type fixture struct {
	order models.Order
	track models.Track
	album models.Album
}

func seed(t *testing.T, db *gorm.DB) fixture {
	artist := models.Artist{Username: "test_artist", Email: "a@example.com", Password: "x", Name: "The Tests", Genre: "rock"}
	require.NoError(t, db.Create(&artist).Error)

	album := models.Album{ArtistID: artist.ID, Name: "First Album", ReleaseDate: "2024-01-01", Price: 5.0}
	require.NoError(t, db.Create(&album).Error)

	track := models.Track{ArtistID: artist.ID, AlbumID: album.ID, Name: "First Track", ReleaseDate: "2024-01-01", Price: 10.0, Path: "/tracks/1"}
	require.NoError(t, db.Create(&track).Error)

	user := models.User{Username: "test_user", Email: "u@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	order := models.Order{UserID: user.ID, Status: models.OrderStatusProcessing, PaymentMethodID: 1}
	require.NoError(t, db.Create(&order).Error)

	return fixture{order: order, track: track, album: album}
}

func orderTotal(t *testing.T, db *gorm.DB, orderID uint) float64 {
	var order models.Order
	require.NoError(t, db.First(&order, orderID).Error)
	return order.Total
}

func TestTotalFollowsItemMutations(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)
	ctx := context.Background()

	// 10.0 x 2 = 20.0
	item, err := s.AddItem(ctx, f.order.ID, f.track.ID, models.ItemTypeTrack, 2)
	require.NoError(t, err)
	require.Equal(t, 20.0, item.Subtotal)
	require.Equal(t, 20.0, orderTotal(t, db, f.order.ID))

	// + 5.0 x 1 = 25.0
	albumItem, err := s.AddItem(ctx, f.order.ID, f.album.ID, models.ItemTypeAlbum, 1)
	require.NoError(t, err)
	require.Equal(t, 25.0, orderTotal(t, db, f.order.ID))

	// remove the track item, 5.0 remains
	require.NoError(t, s.RemoveItem(ctx, item.ID))
	require.Equal(t, 5.0, orderTotal(t, db, f.order.ID))

	// remove the last item, back to zero
	require.NoError(t, s.RemoveItem(ctx, albumItem.ID))
	require.Equal(t, 0.0, orderTotal(t, db, f.order.ID))
}

func TestAddItemInvalidType(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)

	_, err := s.AddItem(context.Background(), f.order.ID, f.track.ID, "podcast", 1)
	require.ErrorIs(t, err, apperr.ErrInvalidItemType)
	require.Equal(t, 0.0, orderTotal(t, db, f.order.ID))
}

func TestAddItemUnknownCatalogRow(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)

	_, err := s.AddItem(context.Background(), f.order.ID, 999, models.ItemTypeTrack, 1)
	require.ErrorIs(t, err, apperr.ErrItemNotFound)
	require.Equal(t, 0.0, orderTotal(t, db, f.order.ID))
}

func TestAddItemBadQuantity(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)

	_, err := s.AddItem(context.Background(), f.order.ID, f.track.ID, models.ItemTypeTrack, 0)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.AddItem(context.Background(), f.order.ID, f.track.ID, models.ItemTypeTrack, -1)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAddItemUnknownOrder(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)

	_, err := s.AddItem(context.Background(), 999, f.track.ID, models.ItemTypeTrack, 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateItemQuantityKeepsCapturedPrice(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)
	ctx := context.Background()

	item, err := s.AddItem(ctx, f.order.ID, f.track.ID, models.ItemTypeTrack, 1)
	require.NoError(t, err)

	// a later catalog price change must not leak into the captured price
	require.NoError(t, db.Model(&models.Track{}).Where("id = ?", f.track.ID).Update("price", 99.0).Error)

	qty := 3
	updated, err := s.UpdateItem(ctx, item.ID, ItemChanges{Quantity: &qty})
	require.NoError(t, err)
	require.Equal(t, 10.0, updated.Price)
	require.Equal(t, 30.0, updated.Subtotal)
	require.Equal(t, 30.0, orderTotal(t, db, f.order.ID))
}

func TestUpdateItemTypeReResolvesPrice(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)
	ctx := context.Background()

	item, err := s.AddItem(ctx, f.order.ID, f.track.ID, models.ItemTypeTrack, 2)
	require.NoError(t, err)

	newType := models.ItemTypeAlbum
	newID := f.album.ID
	updated, err := s.UpdateItem(ctx, item.ID, ItemChanges{ItemID: &newID, Type: &newType})
	require.NoError(t, err)
	require.Equal(t, 5.0, updated.Price)
	require.Equal(t, 10.0, updated.Subtotal)
	require.Equal(t, 10.0, orderTotal(t, db, f.order.ID))
}

func TestUpdateItemBadQuantity(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)
	ctx := context.Background()

	item, err := s.AddItem(ctx, f.order.ID, f.track.ID, models.ItemTypeTrack, 2)
	require.NoError(t, err)

	qty := 0
	_, err = s.UpdateItem(ctx, item.ID, ItemChanges{Quantity: &qty})
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Equal(t, 20.0, orderTotal(t, db, f.order.ID))
}

func TestRemoveItemNotFound(t *testing.T) {
	db := initTestDB(t)
	seed(t, db)
	s := NewService(db)

	require.ErrorIs(t, s.RemoveItem(context.Background(), 999), apperr.ErrNotFound)
}

func TestOrderOf(t *testing.T) {
	db := initTestDB(t)
	f := seed(t, db)
	s := NewService(db)
	ctx := context.Background()

	item, err := s.AddItem(ctx, f.order.ID, f.track.ID, models.ItemTypeTrack, 1)
	require.NoError(t, err)

	order, err := s.OrderOf(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, f.order.ID, order.ID)

	_, err = s.OrderOf(ctx, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
