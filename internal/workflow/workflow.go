package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/restock-api/internal/types"
)

// Service is the order workflow state machine. Transitions on the same order
// are serialized by a per-order mutex, with the database version check as a
// backstop against writers outside this process.
type Service struct {
	db *Database

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) orderLock(orderID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[orderID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[orderID] = l
	}
	return l
}

// CreateOrderInput carries everything needed to open a new order.
type CreateOrderInput struct {
	StoreID         string           `json:"store_id"`
	CreatedByUserID string           `json:"created_by_user_id"`
	OrderType       string           `json:"order_type"`
	LineItems       []types.LineItem `json:"line_items"`
	Shipping        types.Shipping   `json:"shipping"`

	// AutoApproved skips the human approval chain entirely; only the
	// suggestion triage path sets it, and only for suggestions that
	// cleared every auto-approval gate.
	AutoApproved bool `json:"-"`
}

func validateLineItems(items []types.LineItem) error {
	if len(items) == 0 {
		return types.Validationf("order requires at least one line item")
	}
	for i, item := range items {
		if item.ProductID == "" {
			return types.Validationf("line item %d missing product_id", i)
		}
		if item.Quantity <= 0 {
			return types.Validationf("line item %d quantity must be positive", i)
		}
		if item.UnitCost < 0 {
			return types.Validationf("line item %d unit_cost must not be negative", i)
		}
	}
	return nil
}

// NewOrder builds and validates an order in its initial workflow state
// without persisting it. The initial state is decided exactly once, here:
// PENDING_DM_APPROVAL when any line item is flagged for DM approval,
// PENDING_FM_APPROVAL otherwise. Auto-approved replenishment orders start at
// APPROVED_FOR_FULFILLMENT.
func NewOrder(in CreateOrderInput) (*types.Order, error) {
	if err := validateLineItems(in.LineItems); err != nil {
		return nil, err
	}
	if in.StoreID == "" {
		return nil, types.Validationf("store_id is required")
	}

	orderType := in.OrderType
	if orderType == "" {
		orderType = types.OrderTypeManual
	}

	status := types.StatusPendingFMApproval
	auditAction := types.ActionOrderCreated
	for _, item := range in.LineItems {
		if item.RequiresDMApproval {
			status = types.StatusPendingDMApproval
			break
		}
	}
	if in.AutoApproved {
		status = types.StatusApprovedForFulfillment
		auditAction = types.ActionAutoApproved
	}

	now := time.Now()
	order := &types.Order{
		OrderID:         "ORD_" + uuid.New().String(),
		StoreID:         in.StoreID,
		CreatedByUserID: in.CreatedByUserID,
		Status:          status,
		OrderType:       orderType,
		LineItems:       in.LineItems,
		Shipping:        in.Shipping,
		TotalCost:       types.ComputeTotalCost(in.LineItems),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
		AuditHistory: []types.AuditEntry{{
			Timestamp: now,
			UserID:    in.CreatedByUserID,
			Action:    auditAction,
			Details:   fmt.Sprintf("order opened in %s", status),
		}},
	}
	return order, nil
}

// CreateOrder builds and persists a new order.
func (s *Service) CreateOrder(in CreateOrderInput) (*types.Order, error) {
	order, err := NewOrder(in)
	if err != nil {
		return nil, err
	}

	if err := s.db.CreateOrder(order); err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("store_id", order.StoreID).
		Str("status", string(order.Status)).
		Float64("total_cost", order.TotalCost).
		Int("line_items", len(order.LineItems)).
		Msg("order created")
	return order, nil
}

func (s *Service) GetOrder(orderID string) (*types.Order, error) {
	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, types.NotFoundf("order %s", orderID)
	}
	return order, nil
}

func (s *Service) ListOrders(storeID string) ([]types.Order, error) {
	return s.db.ListOrders(storeID)
}

func (s *Service) GetAuditHistory(orderID string) ([]types.AuditEntry, error) {
	if _, err := s.GetOrder(orderID); err != nil {
		return nil, err
	}
	return s.db.GetAuditHistory(orderID)
}

// Approve advances a pending order one approval step: DM approval moves it
// to FM review, FM approval releases it for fulfillment.
func (s *Service) Approve(orderID string, actor Actor) (*types.Order, error) {
	return s.transition(orderID, actor, actionApprove, func(order *types.Order, r rule) *types.AuditEntry {
		return s.auditEntry(order, actor, r.audit, fmt.Sprintf("approved by %s", actor.Role), "")
	})
}

// Reject terminates a pending order. The reason code is mandatory and must
// come from the fixed enumeration; OTHER additionally requires comments.
func (s *Service) Reject(orderID string, actor Actor, reason types.RejectionReason, comments string) (*types.Order, error) {
	if reason == "" {
		return nil, types.Validationf("rejection requires a reason_code")
	}
	if !reason.Valid() {
		return nil, types.Validationf("unknown reason_code %q", reason)
	}
	if reason == types.ReasonOther && comments == "" {
		return nil, types.Validationf("reason_code OTHER requires comments")
	}

	return s.transition(orderID, actor, actionReject, func(order *types.Order, r rule) *types.AuditEntry {
		return s.auditEntry(order, actor, r.audit, comments, string(reason))
	})
}

// Dispatch marks an approved order as handed to the carrier.
func (s *Service) Dispatch(orderID string, actor Actor, method string) (*types.Order, error) {
	if method == "" {
		return nil, types.Validationf("dispatch requires a shipping method")
	}

	return s.transition(orderID, actor, actionDispatch, func(order *types.Order, r rule) *types.AuditEntry {
		now := time.Now()
		order.Shipping.Method = method
		order.Shipping.DispatchedAt = &now
		return s.auditEntry(order, actor, r.audit, fmt.Sprintf("dispatched via %s", method), "")
	})
}

// Receive records a delivery. Partial receipts park the order in
// PARTIALLY_DELIVERED; a full receipt completes it.
func (s *Service) Receive(orderID string, actor Actor, partial bool) (*types.Order, error) {
	act := actionReceiveFull
	details := "full receipt recorded"
	if partial {
		act = actionReceivePartial
		details = "partial receipt recorded"
	}

	return s.transition(orderID, actor, act, func(order *types.Order, r rule) *types.AuditEntry {
		if !partial {
			now := time.Now()
			order.Shipping.DeliveredAt = &now
		}
		return s.auditEntry(order, actor, r.audit, details, "")
	})
}

// UpdateLineItems replaces the line items of an order still awaiting
// approval and recomputes the total cost. The approval-path decision made at
// creation is not re-evaluated.
func (s *Service) UpdateLineItems(orderID string, actor Actor, items []types.LineItem) (*types.Order, error) {
	if err := validateLineItems(items); err != nil {
		return nil, err
	}

	lock := s.orderLock(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != types.StatusPendingDMApproval && order.Status != types.StatusPendingFMApproval {
		return nil, types.InvalidTransitionf("cannot edit line items of an order in status %s", order.Status)
	}

	expectedVersion := order.Version
	order.TotalCost = types.ComputeTotalCost(items)
	entry := s.auditEntry(order, actor, types.ActionItemsUpdated,
		fmt.Sprintf("%d line items, total %.2f", len(items), order.TotalCost), "")

	if err := s.db.ReplaceLineItems(order, items, entry, expectedVersion); err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// transition is the single path every state change takes: resolve the edge
// in the capability table, mutate, then persist state + audit atomically.
func (s *Service) transition(orderID string, actor Actor, act action, build func(*types.Order, rule) *types.AuditEntry) (*types.Order, error) {
	lock := s.orderLock(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	r, err := lookup(order.Status, act, actor)
	if err != nil {
		return nil, err
	}

	expectedVersion := order.Version
	previous := order.Status
	order.Status = r.next
	entry := build(order, r)

	if err := s.db.ApplyTransition(order, entry, expectedVersion); err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("from", string(previous)).
		Str("to", string(order.Status)).
		Str("actor", actor.UserID).
		Str("role", string(actor.Role)).
		Msg("order transitioned")
	return s.GetOrder(orderID)
}

func (s *Service) auditEntry(order *types.Order, actor Actor, action, details, reasonCode string) *types.AuditEntry {
	return &types.AuditEntry{
		OrderID:    order.OrderID,
		Timestamp:  time.Now(),
		UserID:     actor.UserID,
		Action:     action,
		Details:    details,
		ReasonCode: reasonCode,
	}
}
