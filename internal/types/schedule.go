package types

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "DAILY"
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
	FrequencyOnDemand Frequency = "ON_DEMAND"
)

// ConfidenceThresholds partitions the [0,1] confidence range into routing
// bands. The three values must be monotonically ordered:
// fm_review <= high_confidence <= auto_approve.
type ConfidenceThresholds struct {
	FMReviewThreshold       float64 `json:"fm_review_threshold"`
	HighConfidenceThreshold float64 `json:"high_confidence_threshold"`
	AutoApproveThreshold    float64 `json:"auto_approve_threshold"`
}

// Validate enforces the monotonic ordering and the [0,1] range.
func (t ConfidenceThresholds) Validate() error {
	for name, v := range map[string]float64{
		"fm_review_threshold":       t.FMReviewThreshold,
		"high_confidence_threshold": t.HighConfidenceThreshold,
		"auto_approve_threshold":    t.AutoApproveThreshold,
	} {
		if v < 0 || v > 1 {
			return Validationf("%s %v outside [0,1]", name, v)
		}
	}
	if t.FMReviewThreshold > t.HighConfidenceThreshold {
		return Validationf("fm_review_threshold %v exceeds high_confidence_threshold %v",
			t.FMReviewThreshold, t.HighConfidenceThreshold)
	}
	if t.HighConfidenceThreshold > t.AutoApproveThreshold {
		return Validationf("high_confidence_threshold %v exceeds auto_approve_threshold %v",
			t.HighConfidenceThreshold, t.AutoApproveThreshold)
	}
	return nil
}

type EscalationRules struct {
	CriticalItems   bool    `json:"critical_items"`
	SeasonalItems   bool    `json:"seasonal_items"`
	HighCostItems   bool    `json:"high_cost_items"`
	HighCostCeiling float64 `json:"high_cost_ceiling"`
}

type ApprovalWorkflow struct {
	AutoApproveEnabled     bool            `json:"auto_approve_enabled"`
	MaxAutoApproveAmount   float64         `json:"max_auto_approve_amount"`
	RequireDMApprovalAbove float64         `json:"require_dm_approval_above"`
	EscalationRules        EscalationRules `json:"escalation_rules"`
}

// ScheduleScope restricts which suggestions a schedule run considers.
// Empty lists mean unrestricted.
type ScheduleScope struct {
	StoreIDs           []string   `json:"store_ids,omitempty"`
	Categories         []string   `json:"categories,omitempty"`
	Priorities         []Priority `json:"priorities,omitempty"`
	ExcludedProductIDs []string   `json:"excluded_product_ids,omitempty"`
}

// MLConfig holds forecasting knobs passed through to the oracle. The engine
// treats these as opaque.
type MLConfig struct {
	ModelVersion       string `json:"model_version,omitempty"`
	LookbackDays       int    `json:"lookback_days,omitempty"`
	IncludeSeasonality bool   `json:"include_seasonality,omitempty"`
	MinDataPoints      int    `json:"min_data_points,omitempty"`
}

type VendorPreferences struct {
	PreferPrimaryVendors    bool `json:"prefer_primary_vendors"`
	AllowVendorSubstitution bool `json:"allow_vendor_substitution"`
}

// ScheduleConfig drives one recurring replenishment analysis. NextRunAt is
// nil for ON_DEMAND schedules and for schedules that have never been
// scheduled; otherwise it is strictly after LastRunAt.
type ScheduleConfig struct {
	gorm.Model  `json:"-"`
	ScheduleID  string               `gorm:"uniqueIndex" json:"schedule_id"`
	Name        string               `json:"name"`
	Enabled     bool                 `json:"enabled"`
	Frequency   Frequency            `json:"frequency"`
	TimeOfDay   string               `json:"time_of_day"` // "HH:MM", 24h
	DaysOfWeek  []int                `gorm:"serializer:json" json:"days_of_week,omitempty"` // 0=Sunday..6
	DayOfMonth  int                  `json:"day_of_month,omitempty"`                        // 1-31
	Thresholds  ConfidenceThresholds `gorm:"embedded;embeddedPrefix:threshold_" json:"confidence_thresholds"`
	Approval    ApprovalWorkflow     `gorm:"serializer:json" json:"approval_workflow"`
	Scope       ScheduleScope        `gorm:"serializer:json" json:"scope"`
	ML          MLConfig             `gorm:"serializer:json" json:"ml_config"`
	VendorPrefs VendorPreferences    `gorm:"serializer:json" json:"vendor_preferences"`
	LastRunAt   *time.Time           `json:"last_run_at,omitempty"`
	NextRunAt   *time.Time           `json:"next_run_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ParseTimeOfDay validates and splits an "HH:MM" 24h clock value.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	if _, perr := time.Parse("15:04", s); perr != nil {
		return 0, 0, Validationf("time_of_day %q is not HH:MM", s)
	}
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, Validationf("time_of_day %q is not HH:MM", s)
	}
	return hour, minute, nil
}

// Validate checks the recurrence fields and thresholds of a schedule.
func (s *ScheduleConfig) Validate() error {
	if s.ScheduleID == "" {
		return Validationf("schedule_id is required")
	}
	if s.Name == "" {
		return Validationf("name is required")
	}
	switch s.Frequency {
	case FrequencyDaily:
	case FrequencyWeekly:
		if len(s.DaysOfWeek) == 0 {
			return Validationf("weekly schedule requires days_of_week")
		}
		for _, d := range s.DaysOfWeek {
			if d < 0 || d > 6 {
				return Validationf("day_of_week %d outside 0-6", d)
			}
		}
	case FrequencyMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return Validationf("day_of_month %d outside 1-31", s.DayOfMonth)
		}
	case FrequencyOnDemand:
	default:
		return Validationf("unknown frequency %q", s.Frequency)
	}
	if s.Frequency != FrequencyOnDemand {
		if _, _, err := ParseTimeOfDay(s.TimeOfDay); err != nil {
			return err
		}
	}
	return s.Thresholds.Validate()
}

// ExecutionStatus is the outcome of a single schedule run.
type ExecutionStatus string

const (
	ExecutionSuccess        ExecutionStatus = "SUCCESS"
	ExecutionPartialSuccess ExecutionStatus = "PARTIAL_SUCCESS"
	ExecutionFailed         ExecutionStatus = "FAILED"
)

type ExecutionMetrics struct {
	DurationMS        int64 `json:"duration_ms"`
	ProductsEvaluated int   `json:"products_evaluated"`
}

// ScheduleExecutionLog is an immutable record of one schedule run. The
// registry retains the most recent 100 per schedule.
type ScheduleExecutionLog struct {
	gorm.Model           `json:"-"`
	ExecutionID          string           `gorm:"uniqueIndex" json:"execution_id"`
	ScheduleID           string           `gorm:"index" json:"schedule_id"`
	ExecutedAt           time.Time        `json:"executed_at"`
	Status               ExecutionStatus  `json:"status"`
	SuggestionsGenerated int              `json:"suggestions_generated"`
	AutoApproved         int              `json:"auto_approved"`
	PendingReview        int              `json:"pending_review"`
	Errors               []string         `gorm:"serializer:json" json:"errors,omitempty"`
	Metrics              ExecutionMetrics `gorm:"serializer:json" json:"performance_metrics"`
}
