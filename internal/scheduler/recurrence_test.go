package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/restock-api/internal/types"
)

func daily(timeOfDay string) *types.ScheduleConfig {
	return &types.ScheduleConfig{
		ScheduleID: "SCH_daily",
		Enabled:    true,
		Frequency:  types.FrequencyDaily,
		TimeOfDay:  timeOfDay,
	}
}

func TestDailyBeforeSlot(t *testing.T) {
	// 2025-03-10 is a Monday
	now := time.Date(2025, time.March, 10, 5, 0, 0, 0, time.UTC)

	next, err := ComputeNextRun(daily("06:00"), now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC), *next)
}

func TestDailyAfterSlotRollsToTomorrow(t *testing.T) {
	now := time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)

	next, err := ComputeNextRun(daily("06:00"), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 11, 6, 0, 0, 0, time.UTC), *next)
}

func TestDailyExactlyAtSlotRolls(t *testing.T) {
	// next run must be strictly after now
	now := time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)

	next, err := ComputeNextRun(daily("06:00"), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 11, 6, 0, 0, 0, time.UTC), *next)
}

func TestWeekly(t *testing.T) {
	cfg := &types.ScheduleConfig{
		ScheduleID: "SCH_weekly",
		Enabled:    true,
		Frequency:  types.FrequencyWeekly,
		TimeOfDay:  "09:00",
		DaysOfWeek: []int{1, 4}, // Monday, Thursday
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"monday before slot fires today",
			time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
			time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			"monday after slot skips to thursday",
			time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC),
			time.Date(2025, time.March, 13, 9, 0, 0, 0, time.UTC),
		},
		{
			"friday wraps to next monday",
			time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC),
			time.Date(2025, time.March, 17, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := ComputeNextRun(cfg, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, *next)
		})
	}
}

func TestWeeklySingleDayWrapsFullWeek(t *testing.T) {
	cfg := &types.ScheduleConfig{
		ScheduleID: "SCH_weekly",
		Frequency:  types.FrequencyWeekly,
		TimeOfDay:  "09:00",
		DaysOfWeek: []int{1},
	}
	// Monday after the slot: next Monday
	now := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

	next, err := ComputeNextRun(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 17, 9, 0, 0, 0, time.UTC), *next)
}

func TestMonthly(t *testing.T) {
	cfg := &types.ScheduleConfig{
		ScheduleID: "SCH_monthly",
		Frequency:  types.FrequencyMonthly,
		TimeOfDay:  "06:30",
		DayOfMonth: 15,
	}

	before := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(cfg, before)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 15, 6, 30, 0, 0, time.UTC), *next)

	after := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)
	next, err = ComputeNextRun(cfg, after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.April, 15, 6, 30, 0, 0, time.UTC), *next)
}

func TestMonthlyClampsToLastDay(t *testing.T) {
	cfg := &types.ScheduleConfig{
		ScheduleID: "SCH_monthly",
		Frequency:  types.FrequencyMonthly,
		TimeOfDay:  "06:00",
		DayOfMonth: 31,
	}

	// February 2025 has 28 days
	now := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.February, 28, 6, 0, 0, 0, time.UTC), *next)

	// past February's clamped slot: April has 30 days
	now = time.Date(2025, time.March, 31, 7, 0, 0, 0, time.UTC)
	next, err = ComputeNextRun(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.April, 30, 6, 0, 0, 0, time.UTC), *next)
}

func TestMonthlyDecemberWrapsYear(t *testing.T) {
	cfg := &types.ScheduleConfig{
		ScheduleID: "SCH_monthly",
		Frequency:  types.FrequencyMonthly,
		TimeOfDay:  "06:00",
		DayOfMonth: 5,
	}

	now := time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 5, 6, 0, 0, 0, time.UTC), *next)
}

func TestOnDemandNeverSchedules(t *testing.T) {
	cfg := &types.ScheduleConfig{
		ScheduleID: "SCH_od",
		Enabled:    true,
		Frequency:  types.FrequencyOnDemand,
	}

	next, err := ComputeNextRun(cfg, time.Now())
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestNextVisibleRunHiddenWhenDisabled(t *testing.T) {
	cfg := daily("06:00")
	cfg.Enabled = false

	next, err := NextVisibleRun(cfg, time.Now())
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestComputeNextRunIdempotent(t *testing.T) {
	cfg := &types.ScheduleConfig{
		ScheduleID: "SCH_weekly",
		Frequency:  types.FrequencyWeekly,
		TimeOfDay:  "14:45",
		DaysOfWeek: []int{0, 3, 6},
	}
	now := time.Date(2025, time.July, 2, 14, 45, 0, 0, time.UTC)

	first, err := ComputeNextRun(cfg, now)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := ComputeNextRun(cfg, now)
		require.NoError(t, err)
		assert.Equal(t, *first, *again)
	}
}

func TestInvalidTimeOfDay(t *testing.T) {
	_, err := ComputeNextRun(daily("25:99"), time.Now())
	assert.ErrorIs(t, err, types.ErrValidation)
}
