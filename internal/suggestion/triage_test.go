package suggestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksred/restock-api/internal/database"
	"github.com/ksred/restock-api/internal/registry"
	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/internal/workflow"
)

var fm = workflow.Actor{UserID: "user-fm", Role: types.RoleFM}

func newTestTriage(t *testing.T) (*Service, *registry.Service, *gorm.DB) {
	t.Helper()
	db, err := database.NewTestDatabase()
	require.NoError(t, err)
	schedules := registry.NewService(db)
	return NewService(db, schedules), schedules, db
}

func testSchedule() *types.ScheduleConfig {
	return &types.ScheduleConfig{
		ScheduleID: "SCH_test",
		Name:       "Test schedule",
		Enabled:    true,
		Frequency:  types.FrequencyOnDemand,
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

func pendingSuggestion() *types.ReplenishmentSuggestion {
	return &types.ReplenishmentSuggestion{
		ProductID:         "PRD_milk",
		StoreID:           "STORE_001",
		VendorID:          "VND_dairy",
		SuggestedQuantity: 20,
		UnitCost:          3.50,
		Reason:            types.ReasonLowStock,
		Priority:          types.PriorityMedium,
		Confidence:        0.75,
		CostImpact:        70.00,
		ExpiresAt:         time.Now().Add(48 * time.Hour),
	}
}

// consumedRecord reads a suggestion row regardless of consumption state.
func consumedRecord(t *testing.T, db *gorm.DB, suggestionID string) *types.ReplenishmentSuggestion {
	t.Helper()
	var sg types.ReplenishmentSuggestion
	require.NoError(t, db.Unscoped().Where("suggestion_id = ?", suggestionID).First(&sg).Error)
	return &sg
}

func TestIngestAssignsIDAndPends(t *testing.T) {
	svc, _, _ := newTestTriage(t)

	sg := pendingSuggestion()
	require.NoError(t, svc.Ingest(sg))
	assert.NotEmpty(t, sg.SuggestionID)

	pending, err := svc.ListPending("")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, sg.SuggestionID, pending[0].SuggestionID)
}

func TestIngestValidation(t *testing.T) {
	svc, _, _ := newTestTriage(t)

	tests := []struct {
		name   string
		mutate func(*types.ReplenishmentSuggestion)
	}{
		{"missing product", func(sg *types.ReplenishmentSuggestion) { sg.ProductID = "" }},
		{"missing store", func(sg *types.ReplenishmentSuggestion) { sg.StoreID = "" }},
		{"zero quantity", func(sg *types.ReplenishmentSuggestion) { sg.SuggestedQuantity = 0 }},
		{"confidence above one", func(sg *types.ReplenishmentSuggestion) { sg.Confidence = 1.2 }},
		{"negative cost impact", func(sg *types.ReplenishmentSuggestion) { sg.CostImpact = -5 }},
		{"expiry before creation", func(sg *types.ReplenishmentSuggestion) { sg.ExpiresAt = time.Now().Add(-time.Hour) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sg := pendingSuggestion()
			tc.mutate(sg)
			assert.ErrorIs(t, svc.Ingest(sg), types.ErrValidation)
		})
	}
}

func TestListPendingFiltersByStore(t *testing.T) {
	svc, _, _ := newTestTriage(t)

	a := pendingSuggestion()
	require.NoError(t, svc.Ingest(a))
	b := pendingSuggestion()
	b.StoreID = "STORE_002"
	require.NoError(t, svc.Ingest(b))

	pending, err := svc.ListPending("STORE_002")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "STORE_002", pending[0].StoreID)
}

func TestApproveCreatesOrderAndConsumes(t *testing.T) {
	svc, _, db := newTestTriage(t)
	workflowSvc := workflow.NewService(db)

	sg := pendingSuggestion()
	require.NoError(t, svc.Ingest(sg))

	order, err := svc.Approve(sg.SuggestionID, fm)
	require.NoError(t, err)
	assert.Equal(t, types.OrderTypeReplenishment, order.OrderType)
	assert.Equal(t, types.StatusPendingFMApproval, order.Status)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, sg.ProductID, order.LineItems[0].ProductID)
	assert.Equal(t, sg.SuggestedQuantity, order.LineItems[0].Quantity)
	assert.InDelta(t, float64(sg.SuggestedQuantity)*sg.UnitCost, order.TotalCost, 1e-9)

	// The order is live in the workflow
	got, err := workflowSvc.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, got.OrderID)

	// The suggestion is gone from the pending set, with its outcome recorded
	_, err = svc.GetPending(sg.SuggestionID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, types.OutcomeApproved, consumedRecord(t, db, sg.SuggestionID).Outcome)
}

func TestApproveTwiceCreatesOneOrder(t *testing.T) {
	svc, _, db := newTestTriage(t)
	workflowSvc := workflow.NewService(db)

	sg := pendingSuggestion()
	require.NoError(t, svc.Ingest(sg))

	_, err := svc.Approve(sg.SuggestionID, fm)
	require.NoError(t, err)
	_, err = svc.Approve(sg.SuggestionID, fm)
	require.ErrorIs(t, err, types.ErrNotFound)

	orders, err := workflowSvc.ListOrders("")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestApproveExpiredFailsAndStaysPending(t *testing.T) {
	svc, _, _ := newTestTriage(t)

	sg := pendingSuggestion()
	sg.SuggestionID = NewSuggestionID()
	sg.CreatedAt = time.Now().Add(-72 * time.Hour)
	sg.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, svc.db.CreateSuggestion(sg))

	_, err := svc.Approve(sg.SuggestionID, fm)
	require.ErrorIs(t, err, types.ErrExpired)

	// Refusal does not consume; the purge is what removes it
	got, err := svc.GetPending(sg.SuggestionID)
	require.NoError(t, err)
	assert.Equal(t, sg.SuggestionID, got.SuggestionID)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _, _ := newTestTriage(t)

	sg := pendingSuggestion()
	require.NoError(t, svc.Ingest(sg))

	err := svc.Reject(sg.SuggestionID, fm, "")
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.GetPending(sg.SuggestionID)
	assert.NoError(t, err)
}

func TestRejectConsumesWithoutOrder(t *testing.T) {
	svc, _, db := newTestTriage(t)
	workflowSvc := workflow.NewService(db)

	sg := pendingSuggestion()
	require.NoError(t, svc.Ingest(sg))

	require.NoError(t, svc.Reject(sg.SuggestionID, fm, "forecast looks wrong"))

	_, err := svc.GetPending(sg.SuggestionID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, types.OutcomeRejected, consumedRecord(t, db, sg.SuggestionID).Outcome)

	orders, err := workflowSvc.ListOrders("")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestRejectUnknownSuggestionFails(t *testing.T) {
	svc, _, _ := newTestTriage(t)

	err := svc.Reject("SUG_missing", fm, "reason")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAutoApproveCreatesApprovedOrder(t *testing.T) {
	svc, schedules, db := newTestTriage(t)
	workflowSvc := workflow.NewService(db)

	cfg := testSchedule()
	require.NoError(t, schedules.Create(cfg))

	sg := pendingSuggestion()
	sg.ScheduleID = cfg.ScheduleID
	sg.Confidence = 0.95
	sg.CreatedAt = time.Now()

	order, err := svc.AutoApprove(sg, cfg)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApprovedForFulfillment, order.Status)
	require.Len(t, order.AuditHistory, 1)
	assert.Equal(t, types.ActionAutoApproved, order.AuditHistory[0].Action)
	assert.Equal(t, "schedule:"+cfg.ScheduleID, order.CreatedByUserID)

	// The suggestion never enters the pending queue but keeps its outcome
	_, err = svc.GetPending(sg.SuggestionID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, types.OutcomeAutoApproved, consumedRecord(t, db, sg.SuggestionID).Outcome)

	got, err := workflowSvc.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApprovedForFulfillment, got.Status)
}

func TestAutoApproveRefusesBelowThreshold(t *testing.T) {
	svc, schedules, _ := newTestTriage(t)

	cfg := testSchedule()
	require.NoError(t, schedules.Create(cfg))

	sg := pendingSuggestion()
	sg.ScheduleID = cfg.ScheduleID
	sg.Confidence = 0.85 // below the 0.90 gate
	sg.CreatedAt = time.Now()

	_, err := svc.AutoApprove(sg, cfg)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestApproveDerivesDMFlagFromSchedule(t *testing.T) {
	svc, schedules, _ := newTestTriage(t)

	cfg := testSchedule()
	require.NoError(t, schedules.Create(cfg))

	sg := pendingSuggestion()
	sg.ScheduleID = cfg.ScheduleID
	sg.SuggestedQuantity = 1000
	sg.UnitCost = 2.50
	sg.CostImpact = 2500 // above the 2000 DM floor
	require.NoError(t, svc.Ingest(sg))

	order, err := svc.Approve(sg.SuggestionID, fm)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingDMApproval, order.Status)
	require.Len(t, order.LineItems, 1)
	assert.True(t, order.LineItems[0].RequiresDMApproval)
}

func TestPurgeExpiredDropsOnlyExpired(t *testing.T) {
	svc, _, db := newTestTriage(t)

	fresh := pendingSuggestion()
	require.NoError(t, svc.Ingest(fresh))

	stale := pendingSuggestion()
	stale.SuggestionID = NewSuggestionID()
	stale.CreatedAt = time.Now().Add(-96 * time.Hour)
	stale.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, svc.db.CreateSuggestion(stale))

	purged, err := svc.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	pending, err := svc.ListPending("")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.SuggestionID, pending[0].SuggestionID)

	// The purged row records why it left the pending set
	assert.Equal(t, types.OutcomeExpired, consumedRecord(t, db, stale.SuggestionID).Outcome)
}
