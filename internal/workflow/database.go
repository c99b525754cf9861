package workflow

import (
	"errors"
	"time"

	"github.com/ksred/restock-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateOrder(order *types.Order) error {
	return d.db.Create(order).Error
}

func (d *Database) GetOrder(orderID string) (*types.Order, error) {
	var order types.Order
	err := d.db.
		Preload("LineItems").
		Preload("AuditHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("id asc")
		}).
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) ListOrders(storeID string) ([]types.Order, error) {
	var orders []types.Order
	q := d.db.Preload("LineItems").Order("created_at desc")
	if storeID != "" {
		q = q.Where("store_id = ?", storeID)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) GetAuditHistory(orderID string) ([]types.AuditEntry, error) {
	var entries []types.AuditEntry
	err := d.db.Where("order_id = ?", orderID).Order("id asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ApplyTransition persists a state change and its single audit entry in one
// transaction, guarded by an optimistic version check. A zero row count on
// the update means another writer advanced the order first.
func (d *Database) ApplyTransition(order *types.Order, entry *types.AuditEntry, expectedVersion int64) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	result := tx.Model(&types.Order{}).
		Where("order_id = ? AND version = ?", order.OrderID, expectedVersion).
		Updates(map[string]interface{}{
			"status":                 order.Status,
			"total_cost":             order.TotalCost,
			"version":                expectedVersion + 1,
			"shipping_method":        order.Shipping.Method,
			"shipping_address":       order.Shipping.Address,
			"shipping_dispatched_at": order.Shipping.DispatchedAt,
			"shipping_delivered_at":  order.Shipping.DeliveredAt,
			"updated_at":             time.Now(),
		})
	if result.Error != nil {
		tx.Rollback()
		return result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return types.InvalidTransitionf("order %s was modified concurrently", order.OrderID)
	}

	if err := tx.Create(entry).Error; err != nil {
		tx.Rollback()
		return err
	}

	order.Version = expectedVersion + 1
	return tx.Commit().Error
}

// ReplaceLineItems swaps an order's line items and stores the recomputed
// total, appending the audit entry in the same transaction.
func (d *Database) ReplaceLineItems(order *types.Order, items []types.LineItem, entry *types.AuditEntry, expectedVersion int64) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Unscoped().Where("order_id = ?", order.OrderID).Delete(&types.LineItem{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	for i := range items {
		items[i].OrderID = order.OrderID
		if err := tx.Create(&items[i]).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	result := tx.Model(&types.Order{}).
		Where("order_id = ? AND version = ?", order.OrderID, expectedVersion).
		Updates(map[string]interface{}{
			"total_cost": order.TotalCost,
			"version":    expectedVersion + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		tx.Rollback()
		return result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return types.InvalidTransitionf("order %s was modified concurrently", order.OrderID)
	}

	if err := tx.Create(entry).Error; err != nil {
		tx.Rollback()
		return err
	}

	order.Version = expectedVersion + 1
	return tx.Commit().Error
}
