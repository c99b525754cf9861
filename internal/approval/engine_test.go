package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ksred/restock-api/internal/types"
)

var now = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func testConfig() *types.ScheduleConfig {
	return &types.ScheduleConfig{
		ScheduleID: "SCH_test",
		Thresholds: types.ConfidenceThresholds{
			FMReviewThreshold:       0.60,
			HighConfidenceThreshold: 0.80,
			AutoApproveThreshold:    0.90,
		},
		Approval: types.ApprovalWorkflow{
			AutoApproveEnabled:     true,
			MaxAutoApproveAmount:   500,
			RequireDMApprovalAbove: 2000,
		},
	}
}

func testSuggestion() *types.ReplenishmentSuggestion {
	return &types.ReplenishmentSuggestion{
		SuggestionID: "SUG_test",
		Confidence:   0.95,
		CostImpact:   50,
		Reason:       types.ReasonLowStock,
		Priority:     types.PriorityMedium,
		CreatedAt:    now.Add(-time.Hour),
		ExpiresAt:    now.Add(24 * time.Hour),
	}
}

func TestShouldAutoApprove(t *testing.T) {
	cfg := testConfig()
	s := testSuggestion()

	assert.True(t, ShouldAutoApprove(s, cfg, now))
}

func TestShouldAutoApproveGates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.ReplenishmentSuggestion, *types.ScheduleConfig)
	}{
		{"toggle off", func(s *types.ReplenishmentSuggestion, c *types.ScheduleConfig) {
			c.Approval.AutoApproveEnabled = false
		}},
		{"confidence below threshold", func(s *types.ReplenishmentSuggestion, c *types.ScheduleConfig) {
			s.Confidence = 0.89
		}},
		{"cost above cap", func(s *types.ReplenishmentSuggestion, c *types.ScheduleConfig) {
			s.CostImpact = 501
		}},
		{"expired", func(s *types.ReplenishmentSuggestion, c *types.ScheduleConfig) {
			s.ExpiresAt = now.Add(-time.Minute)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			s := testSuggestion()
			tc.mutate(s, cfg)
			assert.False(t, ShouldAutoApprove(s, cfg, now))
		})
	}
}

func TestRequiresDMApprovalOverridesAutoApproval(t *testing.T) {
	cfg := testConfig()
	s := testSuggestion()
	s.CostImpact = 5000

	assert.True(t, RequiresDMApproval(s, cfg))

	d := Classify(s, cfg, now)
	assert.Equal(t, RouteDMApproval, d.Route)
}

func TestRequiresFMReviewLowConfidence(t *testing.T) {
	cfg := testConfig()
	s := testSuggestion()
	s.Confidence = 0.40

	assert.True(t, RequiresFMReview(s, cfg))
	assert.Equal(t, RouteFMReview, Classify(s, cfg, now).Route)
}

func TestEscalationOverrides(t *testing.T) {
	tests := []struct {
		name   string
		rules  types.EscalationRules
		mutate func(*types.ReplenishmentSuggestion)
	}{
		{
			"critical items",
			types.EscalationRules{CriticalItems: true},
			func(s *types.ReplenishmentSuggestion) { s.Priority = types.PriorityCritical },
		},
		{
			"seasonal items",
			types.EscalationRules{SeasonalItems: true},
			func(s *types.ReplenishmentSuggestion) { s.Reason = types.ReasonSeasonal },
		},
		{
			"high cost items",
			types.EscalationRules{HighCostItems: true, HighCostCeiling: 40},
			func(s *types.ReplenishmentSuggestion) { s.CostImpact = 45 },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Approval.EscalationRules = tc.rules
			s := testSuggestion()
			tc.mutate(s)

			// High confidence alone would auto-approve; the escalation
			// must force review instead.
			assert.True(t, RequiresFMReview(s, cfg))
			assert.Equal(t, RouteFMReview, Classify(s, cfg, now).Route)
		})
	}
}

func TestClassifyExpiredIsAbsoluteGate(t *testing.T) {
	cfg := testConfig()
	cfg.Approval.EscalationRules.CriticalItems = true
	s := testSuggestion()
	s.Priority = types.PriorityCritical
	s.ExpiresAt = now.Add(-time.Second)

	d := Classify(s, cfg, now)
	assert.Equal(t, RouteExpired, d.Route, "expiry must win over escalation routing")
}

func TestClassifyDefaultsToFMReview(t *testing.T) {
	cfg := testConfig()
	s := testSuggestion()
	s.Confidence = 0.75 // above FM review floor, below auto-approve

	d := Classify(s, cfg, now)
	assert.Equal(t, RouteFMReview, d.Route)
	assert.False(t, d.HighConfidence)
}

func TestIsHighConfidence(t *testing.T) {
	cfg := testConfig()
	s := testSuggestion()

	s.Confidence = 0.80
	assert.True(t, IsHighConfidence(s, cfg))
	s.Confidence = 0.79
	assert.False(t, IsHighConfidence(s, cfg))
}

func TestClassifyIsPure(t *testing.T) {
	cfg := testConfig()
	s := testSuggestion()

	first := Classify(s, cfg, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(s, cfg, now))
	}
}
