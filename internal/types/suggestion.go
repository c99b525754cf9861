package types

import (
	"time"

	"gorm.io/gorm"
)

// SuggestionReason explains why the forecasting oracle proposed a reorder.
type SuggestionReason string

const (
	ReasonLowStock    SuggestionReason = "LOW_STOCK"
	ReasonSeasonal    SuggestionReason = "SEASONAL"
	ReasonPromotional SuggestionReason = "PROMOTIONAL"
	ReasonPredictive  SuggestionReason = "PREDICTIVE"
)

// SuggestionOutcome records how a suggestion left the pending set. Empty
// while the suggestion is still pending.
type SuggestionOutcome string

const (
	OutcomeApproved     SuggestionOutcome = "APPROVED"
	OutcomeAutoApproved SuggestionOutcome = "AUTO_APPROVED"
	OutcomeRejected     SuggestionOutcome = "REJECTED"
	OutcomeExpired      SuggestionOutcome = "EXPIRED"
)

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// ReplenishmentSuggestion is a reorder candidate emitted by the forecasting
// oracle. Confidence is supplied by the oracle and never computed here.
// A suggestion lives in the pending set until approved or rejected; approval
// consumes it and creates an order in the same transaction.
type ReplenishmentSuggestion struct {
	gorm.Model        `json:"-"`
	SuggestionID      string            `gorm:"uniqueIndex" json:"suggestion_id"`
	ScheduleID        string            `gorm:"index" json:"schedule_id,omitempty"` // run that produced it, empty for ad-hoc
	ProductID         string            `json:"product_id"`
	StoreID           string            `gorm:"index" json:"store_id"`
	VendorID          string            `json:"vendor_id"` // chosen by the vendor selector at generation time
	SuggestedQuantity int               `json:"suggested_quantity"`
	UnitCost          float64           `json:"unit_cost"`
	Reason            SuggestionReason  `json:"reason"`
	Priority          Priority          `json:"priority"`
	Confidence        float64           `json:"confidence"`  // [0,1] from the oracle
	CostImpact        float64           `json:"cost_impact"` // total dollar impact if approved
	AutoApproved      bool              `json:"auto_approved"`
	Outcome           SuggestionOutcome `json:"outcome,omitempty"` // terminal disposition, set on consumption
	CreatedAt         time.Time         `json:"created_at"`
	ExpiresAt         time.Time         `json:"expires_at"`
}

// Expired reports whether the suggestion is past its expiry at the given time.
func (s *ReplenishmentSuggestion) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
