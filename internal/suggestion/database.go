package suggestion

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

func (d *Database) CreateSuggestion(sg *types.ReplenishmentSuggestion) error {
	return d.db.Create(sg).Error
}

// GetPending returns a suggestion still in the pending set.
func (d *Database) GetPending(suggestionID string) (*types.ReplenishmentSuggestion, error) {
	var sg types.ReplenishmentSuggestion
	if err := d.db.Where("suggestion_id = ?", suggestionID).First(&sg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sg, nil
}

func (d *Database) ListPending(storeID string) ([]types.ReplenishmentSuggestion, error) {
	var suggestions []types.ReplenishmentSuggestion
	q := d.db.Order("created_at desc")
	if storeID != "" {
		q = q.Where("store_id = ?", storeID)
	}
	if err := q.Find(&suggestions).Error; err != nil {
		return nil, err
	}
	return suggestions, nil
}

// consume marks a pending suggestion consumed with its terminal outcome.
// The guarded update makes consumption at-most-once: a second attempt
// (double-click, retry) matches zero rows.
func consume(db *gorm.DB, suggestionID string, outcome types.SuggestionOutcome) error {
	result := db.Model(&types.ReplenishmentSuggestion{}).Unscoped().
		Where("suggestion_id = ? AND deleted_at IS NULL", suggestionID).
		Updates(map[string]interface{}{
			"outcome":    outcome,
			"deleted_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.NotFoundf("suggestion %s already consumed or unknown", suggestionID)
	}
	return nil
}

// ConsumeAndCreateOrder removes a suggestion from the pending set and
// creates its order in the same transaction, recording the approved
// outcome. A failed consume aborts the whole transaction, so a retried
// approval can never produce a duplicate order.
func (d *Database) ConsumeAndCreateOrder(suggestionID string, order *types.Order) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := consume(tx, suggestionID, types.OutcomeApproved); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// Consume removes a suggestion from the pending set with no side product,
// recording the given outcome (the reject path).
func (d *Database) Consume(suggestionID string, outcome types.SuggestionOutcome) error {
	return consume(d.db, suggestionID, outcome)
}

// CreateConsumedWithOrder stores an already-consumed suggestion record (the
// auto-approval path: it never enters the pending set, but the report still
// needs its outcome) together with its order.
func (d *Database) CreateConsumedWithOrder(sg *types.ReplenishmentSuggestion, order *types.Order) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	sg.Outcome = types.OutcomeAutoApproved
	sg.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	if err := tx.Create(sg).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// PurgeExpired consumes pending suggestions past their expiry, recording
// the expired outcome so reports can tell them apart from triaged ones.
func (d *Database) PurgeExpired(now time.Time) (int64, error) {
	result := d.db.Model(&types.ReplenishmentSuggestion{}).Unscoped().
		Where("expires_at < ? AND deleted_at IS NULL", now).
		Updates(map[string]interface{}{
			"outcome":    types.OutcomeExpired,
			"deleted_at": now,
		})
	return result.RowsAffected, result.Error
}
