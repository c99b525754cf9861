package registry

import (
	"errors"
	"time"

	"github.com/ksred/restock-api/internal/types"
	"gorm.io/gorm"
)

// maxExecutionLogs bounds retained history per schedule; oldest evicted first.
const maxExecutionLogs = 100

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateSchedule(cfg *types.ScheduleConfig) error {
	return d.db.Create(cfg).Error
}

func (d *Database) GetSchedule(scheduleID string) (*types.ScheduleConfig, error) {
	var cfg types.ScheduleConfig
	if err := d.db.Where("schedule_id = ?", scheduleID).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (d *Database) ListSchedules() ([]types.ScheduleConfig, error) {
	var configs []types.ScheduleConfig
	if err := d.db.Order("schedule_id").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// DueSchedules returns enabled schedules whose next run has passed.
func (d *Database) DueSchedules(now time.Time) ([]types.ScheduleConfig, error) {
	var configs []types.ScheduleConfig
	err := d.db.
		Where("enabled = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (d *Database) SaveSchedule(cfg *types.ScheduleConfig) error {
	return d.db.Save(cfg).Error
}

// DeleteSchedule removes a schedule and its run history. The rows are hard
// deleted so the schedule_id (and its execution ids) can be reused by a later
// create; a soft delete would leave the unique index claimed forever.
func (d *Database) DeleteSchedule(scheduleID string) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Unscoped().Where("schedule_id = ?", scheduleID).Delete(&types.ScheduleConfig{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Unscoped().Where("schedule_id = ?", scheduleID).Delete(&types.ScheduleExecutionLog{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// AppendExecutionLog stores a run record and the schedule's recomputed run
// markers in a single transaction, evicting history beyond the retention
// bound oldest-first.
func (d *Database) AppendExecutionLog(log *types.ScheduleExecutionLog, cfg *types.ScheduleConfig) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(log).Error; err != nil {
		tx.Rollback()
		return err
	}

	var count int64
	if err := tx.Model(&types.ScheduleExecutionLog{}).
		Where("schedule_id = ?", log.ScheduleID).
		Count(&count).Error; err != nil {
		tx.Rollback()
		return err
	}
	if excess := count - maxExecutionLogs; excess > 0 {
		var oldest []types.ScheduleExecutionLog
		if err := tx.Where("schedule_id = ?", log.ScheduleID).
			Order("executed_at asc").
			Limit(int(excess)).
			Find(&oldest).Error; err != nil {
			tx.Rollback()
			return err
		}
		for _, old := range oldest {
			if err := tx.Unscoped().Delete(&old).Error; err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	if err := tx.Save(cfg).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (d *Database) GetExecutionHistory(scheduleID string, limit int) ([]types.ScheduleExecutionLog, error) {
	var logs []types.ScheduleExecutionLog
	q := d.db.Where("schedule_id = ?", scheduleID).Order("executed_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// RecentSuggestions returns the latest suggestion outcomes produced by a
// schedule, newest first, for confidence reporting.
func (d *Database) RecentSuggestions(scheduleID string, limit int) ([]types.ReplenishmentSuggestion, error) {
	var suggestions []types.ReplenishmentSuggestion
	err := d.db.Unscoped().
		Where("schedule_id = ?", scheduleID).
		Order("created_at desc").
		Limit(limit).
		Find(&suggestions).Error
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}
