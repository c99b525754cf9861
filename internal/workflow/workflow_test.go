package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/restock-api/internal/database"
	"github.com/ksred/restock-api/internal/types"
)

var (
	dm     = Actor{UserID: "user-dm", Role: types.RoleDM}
	fm     = Actor{UserID: "user-fm", Role: types.RoleFM}
	system = Actor{UserID: "runner", Role: types.RoleSystem}
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.NewTestDatabase()
	require.NoError(t, err)
	return NewService(db)
}

func orderInput(requiresDM bool) CreateOrderInput {
	return CreateOrderInput{
		StoreID:         "STORE_001",
		CreatedByUserID: "user-fm",
		LineItems: []types.LineItem{
			{ProductID: "PRD_a", VendorID: "VND_1", Quantity: 10, UnitCost: 2.50, RequiresDMApproval: requiresDM},
			{ProductID: "PRD_b", VendorID: "VND_2", Quantity: 4, UnitCost: 12.00},
		},
	}
}

func TestCreateOrderInitialStateWithDMFlag(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(true))
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingDMApproval, order.Status)
	assert.Equal(t, types.OrderTypeManual, order.OrderType)
	require.Len(t, order.AuditHistory, 1)
	assert.Equal(t, types.ActionOrderCreated, order.AuditHistory[0].Action)
}

func TestCreateOrderInitialStateWithoutDMFlag(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingFMApproval, order.Status)
}

func TestCreateOrderComputesTotalCost(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)
	assert.InDelta(t, 10*2.50+4*12.00, order.TotalCost, 1e-9)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"no line items", func(in *CreateOrderInput) { in.LineItems = nil }},
		{"zero quantity", func(in *CreateOrderInput) { in.LineItems[0].Quantity = 0 }},
		{"negative unit cost", func(in *CreateOrderInput) { in.LineItems[0].UnitCost = -1 }},
		{"missing store", func(in *CreateOrderInput) { in.StoreID = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := orderInput(false)
			tc.mutate(&in)
			_, err := svc.CreateOrder(in)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestApprovalChain(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(true))
	require.NoError(t, err)

	// DM approves: moves to FM review
	order, err = svc.Approve(order.OrderID, dm)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingFMApproval, order.Status)
	assert.Len(t, order.AuditHistory, 2)

	// FM approves: released for fulfillment
	order, err = svc.Approve(order.OrderID, fm)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApprovedForFulfillment, order.Status)
	assert.Len(t, order.AuditHistory, 3)
	assert.Equal(t, types.ActionFMApproved, order.AuditHistory[2].Action)
}

func TestApproveWrongRoleFails(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(true))
	require.NoError(t, err)

	_, err = svc.Approve(order.OrderID, fm)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	// Order untouched
	got, err := svc.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingDMApproval, got.Status)
	assert.Len(t, got.AuditHistory, 1)
}

func TestRejectWithoutReasonFails(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)

	_, err = svc.Reject(order.OrderID, fm, "", "")
	require.ErrorIs(t, err, types.ErrValidation)

	got, err := svc.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingFMApproval, got.Status)
	assert.Len(t, got.AuditHistory, 1)
}

func TestRejectUnknownReasonFails(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)

	_, err = svc.Reject(order.OrderID, fm, "NOT_A_REASON", "")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRejectOtherRequiresComments(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)

	_, err = svc.Reject(order.OrderID, fm, types.ReasonOther, "")
	require.ErrorIs(t, err, types.ErrValidation)

	order, err = svc.Reject(order.OrderID, fm, types.ReasonOther, "wrong season")
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, order.Status)
}

func TestRejectRecordsReasonCode(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)

	order, err = svc.Reject(order.OrderID, fm, types.ReasonBudgetExceeded, "over monthly budget")
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, order.Status)

	last := order.AuditHistory[len(order.AuditHistory)-1]
	assert.Equal(t, types.ActionOrderRejected, last.Action)
	assert.Equal(t, string(types.ReasonBudgetExceeded), last.ReasonCode)
}

func TestRejectedIsTerminal(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)
	_, err = svc.Reject(order.OrderID, fm, types.ReasonDuplicateOrder, "")
	require.NoError(t, err)

	_, err = svc.Approve(order.OrderID, fm)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
	_, err = svc.Dispatch(order.OrderID, fm, "GROUND")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestFulfillmentFlow(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)
	order, err = svc.Approve(order.OrderID, fm)
	require.NoError(t, err)

	order, err = svc.Dispatch(order.OrderID, fm, "GROUND")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInTransit, order.Status)
	assert.Equal(t, "GROUND", order.Shipping.Method)
	require.NotNil(t, order.Shipping.DispatchedAt)

	order, err = svc.Receive(order.OrderID, fm, true)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPartiallyDelivered, order.Status)

	order, err = svc.Receive(order.OrderID, fm, false)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDelivered, order.Status)
	require.NotNil(t, order.Shipping.DeliveredAt)
}

func TestPartialReceiptOnPartiallyDeliveredFails(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)
	_, err = svc.Approve(order.OrderID, fm)
	require.NoError(t, err)
	_, err = svc.Dispatch(order.OrderID, system, "FREIGHT")
	require.NoError(t, err)
	_, err = svc.Receive(order.OrderID, fm, true)
	require.NoError(t, err)

	_, err = svc.Receive(order.OrderID, fm, true)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestDispatchBeforeApprovalFails(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)

	_, err = svc.Dispatch(order.OrderID, fm, "GROUND")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestAuditGrowsByOnePerTransition(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)

	steps := []func() error{
		func() error { _, err := svc.Approve(order.OrderID, fm); return err },
		func() error { _, err := svc.Dispatch(order.OrderID, fm, "GROUND"); return err },
		func() error { _, err := svc.Receive(order.OrderID, fm, false); return err },
	}

	expected := 1
	for _, step := range steps {
		require.NoError(t, step())
		entries, err := svc.GetAuditHistory(order.OrderID)
		require.NoError(t, err)
		expected++
		assert.Len(t, entries, expected)
	}
}

func TestTransitionsIncrementVersion(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.Version)

	order, err = svc.Approve(order.OrderID, fm)
	require.NoError(t, err)
	assert.Equal(t, int64(2), order.Version)
}

func TestUpdateLineItemsRecomputesTotal(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)

	items := []types.LineItem{
		{ProductID: "PRD_c", VendorID: "VND_3", Quantity: 3, UnitCost: 7.00},
	}
	order, err = svc.UpdateLineItems(order.OrderID, fm, items)
	require.NoError(t, err)
	assert.InDelta(t, 21.00, order.TotalCost, 1e-9)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, "PRD_c", order.LineItems[0].ProductID)
}

func TestUpdateLineItemsAfterApprovalFails(t *testing.T) {
	svc := newTestService(t)

	order, err := svc.CreateOrder(orderInput(false))
	require.NoError(t, err)
	_, err = svc.Approve(order.OrderID, fm)
	require.NoError(t, err)

	_, err = svc.UpdateLineItems(order.OrderID, fm, []types.LineItem{
		{ProductID: "PRD_c", Quantity: 1, UnitCost: 1},
	})
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestGetUnknownOrderFails(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetOrder("ORD_missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAutoApprovedOrderSkipsApprovalChain(t *testing.T) {
	svc := newTestService(t)

	in := orderInput(false)
	in.OrderType = types.OrderTypeReplenishment
	in.AutoApproved = true
	order, err := svc.CreateOrder(in)
	require.NoError(t, err)

	assert.Equal(t, types.StatusApprovedForFulfillment, order.Status)
	require.Len(t, order.AuditHistory, 1)
	assert.Equal(t, types.ActionAutoApproved, order.AuditHistory[0].Action)

	// Continues through fulfillment normally
	order, err = svc.Dispatch(order.OrderID, system, "GROUND")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInTransit, order.Status)
}
