package migrations

import (
	"gorm.io/gorm"

	"github.com/ksred/restock-api/internal/types"
)

// AddExecutionLogs creates the schedule execution log table ahead of the
// general auto-migration so history survives schedule re-creation.
func AddExecutionLogs(db *gorm.DB) error {
	return db.AutoMigrate(&types.ScheduleExecutionLog{})
}
