package scheduler

import (
	"time"

	"github.com/ksred/restock-api/internal/types"
)

// ComputeNextRun returns the next time a schedule should fire, strictly
// after now. It is pure and idempotent: the same (schedule, now) pair always
// yields the same result. ON_DEMAND schedules return nil.
//
// Monthly schedules whose day_of_month exceeds the days in the target month
// clamp to the last day of that month (a "31st" schedule fires on Feb 28).
func ComputeNextRun(cfg *types.ScheduleConfig, now time.Time) (*time.Time, error) {
	if cfg.Frequency == types.FrequencyOnDemand {
		return nil, nil
	}

	hour, minute, err := types.ParseTimeOfDay(cfg.TimeOfDay)
	if err != nil {
		return nil, err
	}

	switch cfg.Frequency {
	case types.FrequencyDaily:
		next := at(now, hour, minute)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return &next, nil

	case types.FrequencyWeekly:
		if len(cfg.DaysOfWeek) == 0 {
			return nil, types.Validationf("weekly schedule %s has no days_of_week", cfg.ScheduleID)
		}
		days := make(map[int]bool, len(cfg.DaysOfWeek))
		for _, d := range cfg.DaysOfWeek {
			days[d] = true
		}
		// Walk forward at most a full week plus today; the earliest
		// matching weekday with a future slot wins.
		for offset := 0; offset <= 7; offset++ {
			candidate := at(now.AddDate(0, 0, offset), hour, minute)
			if days[int(candidate.Weekday())] && candidate.After(now) {
				return &candidate, nil
			}
		}
		return nil, types.Validationf("weekly schedule %s has no reachable day", cfg.ScheduleID)

	case types.FrequencyMonthly:
		if cfg.DayOfMonth < 1 || cfg.DayOfMonth > 31 {
			return nil, types.Validationf("monthly schedule %s has day_of_month %d", cfg.ScheduleID, cfg.DayOfMonth)
		}
		next := onDayOfMonth(now.Year(), now.Month(), cfg.DayOfMonth, hour, minute, now.Location())
		if !next.After(now) {
			y, m := now.Year(), now.Month()+1
			next = onDayOfMonth(y, m, cfg.DayOfMonth, hour, minute, now.Location())
		}
		return &next, nil
	}

	return nil, types.Validationf("unknown frequency %q", cfg.Frequency)
}

// NextVisibleRun is the trigger-facing variant: disabled schedules never
// expose a next run.
func NextVisibleRun(cfg *types.ScheduleConfig, now time.Time) (*time.Time, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return ComputeNextRun(cfg, now)
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func onDayOfMonth(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func daysIn(year int, month time.Month) int {
	// Day zero of the following month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
