package approval

import (
	"time"

	"github.com/ksred/restock-api/internal/types"
)

// Route is where a suggestion goes after classification.
type Route string

const (
	RouteAutoApprove Route = "AUTO_APPROVE"
	RouteFMReview    Route = "FM_REVIEW"
	RouteDMApproval  Route = "DM_APPROVAL"
	RouteExpired     Route = "EXPIRED"
)

// Decision is the outcome of classifying one suggestion against its owning
// schedule's rules.
type Decision struct {
	Route          Route    `json:"route"`
	HighConfidence bool     `json:"high_confidence"`
	Reasons        []string `json:"reasons,omitempty"`
}

// ShouldAutoApprove reports whether a suggestion clears every auto-approval
// gate: the toggle, the confidence threshold, the dollar cap, and expiry.
func ShouldAutoApprove(s *types.ReplenishmentSuggestion, cfg *types.ScheduleConfig, now time.Time) bool {
	if !cfg.Approval.AutoApproveEnabled {
		return false
	}
	if s.Confidence < cfg.Thresholds.AutoApproveThreshold {
		return false
	}
	if s.CostImpact > cfg.Approval.MaxAutoApproveAmount {
		return false
	}
	return !s.Expired(now)
}

// RequiresFMReview reports whether a suggestion needs facility-manager
// review, either from low confidence or from an escalation override.
func RequiresFMReview(s *types.ReplenishmentSuggestion, cfg *types.ScheduleConfig) bool {
	if s.Confidence < cfg.Thresholds.FMReviewThreshold {
		return true
	}
	esc := cfg.Approval.EscalationRules
	if esc.CriticalItems && s.Priority == types.PriorityCritical {
		return true
	}
	if esc.SeasonalItems && s.Reason == types.ReasonSeasonal {
		return true
	}
	if esc.HighCostItems && s.CostImpact > esc.HighCostCeiling {
		return true
	}
	return false
}

// RequiresDMApproval reports whether the cost impact exceeds the
// district-manager approval floor.
func RequiresDMApproval(s *types.ReplenishmentSuggestion, cfg *types.ScheduleConfig) bool {
	return s.CostImpact > cfg.Approval.RequireDMApprovalAbove
}

func IsHighConfidence(s *types.ReplenishmentSuggestion, cfg *types.ScheduleConfig) bool {
	return s.Confidence >= cfg.Thresholds.HighConfidenceThreshold
}

// Classify routes a suggestion to the strictest applicable path:
// DM approval > FM review > auto-approve. Expiry is an absolute gate checked
// before anything else; an expired suggestion is never auto-approved and
// never escalated.
func Classify(s *types.ReplenishmentSuggestion, cfg *types.ScheduleConfig, now time.Time) Decision {
	d := Decision{HighConfidence: IsHighConfidence(s, cfg)}

	if s.Expired(now) {
		d.Route = RouteExpired
		d.Reasons = append(d.Reasons, "suggestion past expires_at")
		return d
	}

	if RequiresDMApproval(s, cfg) {
		d.Route = RouteDMApproval
		d.Reasons = append(d.Reasons, "cost impact above DM approval floor")
		return d
	}

	if RequiresFMReview(s, cfg) {
		d.Route = RouteFMReview
		if s.Confidence < cfg.Thresholds.FMReviewThreshold {
			d.Reasons = append(d.Reasons, "confidence below FM review threshold")
		} else {
			d.Reasons = append(d.Reasons, "escalation rule triggered")
		}
		return d
	}

	if ShouldAutoApprove(s, cfg, now) {
		d.Route = RouteAutoApprove
		return d
	}

	// Not auto-approvable but nothing forced a stricter path: park it for
	// FM review as the default human checkpoint.
	d.Route = RouteFMReview
	d.Reasons = append(d.Reasons, "did not meet auto-approval gates")
	return d
}
