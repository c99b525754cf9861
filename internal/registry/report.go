package registry

import (
	"time"

	"github.com/ksred/restock-api/internal/types"
)

// reportSampleSize caps how many recent suggestion outcomes feed a report.
const reportSampleSize = 500

// ConfidenceReport aggregates recent suggestion outcomes for one schedule
// into a distribution against its three thresholds plus rolling accuracy
// metrics.
type ConfidenceReport struct {
	ScheduleID       string                     `json:"schedule_id"`
	GeneratedAt      time.Time                  `json:"generated_at"`
	Thresholds       types.ConfidenceThresholds `json:"thresholds"`
	TotalSuggestions int                        `json:"total_suggestions"`

	// Distribution of confidences against the thresholds.
	AboveAutoApprove int `json:"above_auto_approve"`
	WithinReviewBand int `json:"within_review_band"` // >= fm_review, < auto_approve
	BelowFMReview    int `json:"below_fm_review"`
	HighConfidence   int `json:"high_confidence"` // >= high_confidence_threshold

	// Terminal outcomes; suggestions still pending count in none of these.
	ApprovedCount     int `json:"approved_count"`
	AutoApprovedCount int `json:"auto_approved_count"`
	RejectedCount     int `json:"rejected_count"`
	ExpiredCount      int `json:"expired_count"`

	AutoApprovalRate    float64 `json:"auto_approval_rate"`
	ReviewApprovalRate  float64 `json:"review_approval_rate"` // approved / (approved + rejected)
	HighConfidenceShare float64 `json:"high_confidence_share"`
	AverageConfidence   float64 `json:"average_confidence"`
}

// GenerateConfidenceReport builds the rolling report for a schedule from its
// most recent suggestion outcomes, including already-consumed ones.
func (s *Service) GenerateConfidenceReport(scheduleID string) (*ConfidenceReport, error) {
	cfg, err := s.Get(scheduleID)
	if err != nil {
		return nil, err
	}

	suggestions, err := s.db.RecentSuggestions(scheduleID, reportSampleSize)
	if err != nil {
		return nil, err
	}

	report := &ConfidenceReport{
		ScheduleID:       scheduleID,
		GeneratedAt:      time.Now(),
		Thresholds:       cfg.Thresholds,
		TotalSuggestions: len(suggestions),
	}

	if len(suggestions) == 0 {
		return report, nil
	}

	var confidenceSum float64
	for _, sg := range suggestions {
		confidenceSum += sg.Confidence
		switch {
		case sg.Confidence >= cfg.Thresholds.AutoApproveThreshold:
			report.AboveAutoApprove++
		case sg.Confidence >= cfg.Thresholds.FMReviewThreshold:
			report.WithinReviewBand++
		default:
			report.BelowFMReview++
		}
		if sg.Confidence >= cfg.Thresholds.HighConfidenceThreshold {
			report.HighConfidence++
		}
		switch sg.Outcome {
		case types.OutcomeApproved:
			report.ApprovedCount++
		case types.OutcomeAutoApproved:
			report.AutoApprovedCount++
		case types.OutcomeRejected:
			report.RejectedCount++
		case types.OutcomeExpired:
			report.ExpiredCount++
		}
	}

	total := float64(len(suggestions))
	report.AutoApprovalRate = float64(report.AutoApprovedCount) / total
	if reviewed := report.ApprovedCount + report.RejectedCount; reviewed > 0 {
		report.ReviewApprovalRate = float64(report.ApprovedCount) / float64(reviewed)
	}
	report.HighConfidenceShare = float64(report.HighConfidence) / total
	report.AverageConfidence = confidenceSum / total
	return report, nil
}
