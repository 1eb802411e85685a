// Package ledger keeps an order's total consistent with the sum of its item
// subtotals. Every item mutation runs in a transaction that locks the order
// row, captures the catalog price, writes the item and then re-sums the total
// from scratch. A full re-sum is deliberate: item counts per order are small
// and incremental deltas drift under partial failures.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tombunzel/HarmonApp/internal/apperr"
	"github.com/Tombunzel/HarmonApp/internal/models"
)

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// ItemChanges carries the mutable fields of an order item; nil means "leave
// unchanged".
type ItemChanges struct {
	ItemID   *uint   `json:"item_id"`
	Type     *string `json:"type"`
	Quantity *int    `json:"quantity"`
}

// AddItem resolves the current catalog price for (itemID, itemType), persists
// the item with subtotal = price * quantity and re-sums the order total.
func (s *Service) AddItem(ctx context.Context, orderID, itemID uint, itemType string, quantity int) (*models.OrderItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
	}

	var item models.OrderItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, orderID); err != nil {
			return err
		}

		price, err := resolvePrice(tx, itemID, itemType)
		if err != nil {
			return err
		}

		item = models.OrderItem{
			OrderID:  orderID,
			ItemID:   itemID,
			Type:     itemType,
			Price:    price,
			Quantity: quantity,
			Subtotal: price * float64(quantity),
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		return recomputeTotal(tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem applies changes to an existing item. When item_id or type
// changes the price is re-resolved from the catalog and the subtotal
// recomputed from the (possibly new) quantity; when only the quantity changes
// the captured price is reused. The order total is re-summed either way.
func (s *Service) UpdateItem(ctx context.Context, itemID uint, changes ItemChanges) (*models.OrderItem, error) {
	if changes.Quantity != nil && *changes.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
	}

	var item models.OrderItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if err := lockOrder(tx, item.OrderID); err != nil {
			return err
		}

		if changes.ItemID != nil {
			item.ItemID = *changes.ItemID
		}
		if changes.Type != nil {
			item.Type = *changes.Type
		}
		if changes.Quantity != nil {
			item.Quantity = *changes.Quantity
		}

		if changes.ItemID != nil || changes.Type != nil {
			price, err := resolvePrice(tx, item.ItemID, item.Type)
			if err != nil {
				return err
			}
			item.Price = price
		}
		item.Subtotal = item.Price * float64(item.Quantity)

		if err := tx.Save(&item).Error; err != nil {
			return err
		}

		return recomputeTotal(tx, item.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes the item and re-sums the order total over the remaining
// items.
func (s *Service) RemoveItem(ctx context.Context, itemID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if err := lockOrder(tx, item.OrderID); err != nil {
			return err
		}

		if err := tx.Delete(&item).Error; err != nil {
			return err
		}

		return recomputeTotal(tx, item.OrderID)
	})
}

// OrderOf returns the order an item belongs to, for ownership checks at the
// handler layer.
func (s *Service) OrderOf(ctx context.Context, itemID uint) (*models.Order, error) {
	var item models.OrderItem
	if err := s.DB.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, item.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// lockOrder takes a row lock on the order for the duration of the
// transaction so two concurrent item mutations cannot interleave their
// re-sums. sqlite has no row locks; its single-writer model covers it.
func lockOrder(tx *gorm.DB, orderID uint) error {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := q.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}
	return nil
}

func resolvePrice(tx *gorm.DB, itemID uint, itemType string) (float64, error) {
	var price float64
	var err error
	switch itemType {
	case models.ItemTypeTrack:
		err = tx.Model(&models.Track{}).Select("price").Where("id = ?", itemID).Take(&price).Error
	case models.ItemTypeAlbum:
		err = tx.Model(&models.Album{}).Select("price").Where("id = ?", itemID).Take(&price).Error
	default:
		return 0, fmt.Errorf("%w: %q", apperr.ErrInvalidItemType, itemType)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %s %d", apperr.ErrItemNotFound, itemType, itemID)
		}
		return 0, err
	}
	return price, nil
}

func recomputeTotal(tx *gorm.DB, orderID uint) error {
	var total float64
	if err := tx.Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(subtotal), 0)").
		Scan(&total).Error; err != nil {
		return err
	}
	return tx.Model(&models.Order{}).Where("id = ?", orderID).Update("total", total).Error
}
