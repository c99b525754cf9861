package types

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the order workflow state. Transitions happen only through
// the workflow service; see internal/workflow.
type OrderStatus string

const (
	StatusPendingDMApproval      OrderStatus = "PENDING_DM_APPROVAL"
	StatusPendingFMApproval      OrderStatus = "PENDING_FM_APPROVAL"
	StatusApprovedForFulfillment OrderStatus = "APPROVED_FOR_FULFILLMENT"
	StatusInTransit              OrderStatus = "IN_TRANSIT"
	StatusPartiallyDelivered     OrderStatus = "PARTIALLY_DELIVERED"
	StatusDelivered              OrderStatus = "DELIVERED"
	StatusRejected               OrderStatus = "REJECTED"
)

// OrderType distinguishes manually created orders from replenishment orders
// generated by schedule runs.
const (
	OrderTypeManual        = "MANUAL"
	OrderTypeReplenishment = "REPLENISHMENT"
)

type Order struct {
	gorm.Model      `json:"-"`
	OrderID         string       `gorm:"uniqueIndex" json:"order_id"`
	StoreID         string       `gorm:"index" json:"store_id"`
	CreatedByUserID string       `json:"created_by_user_id"`
	Status          OrderStatus  `json:"status"`
	OrderType       string       `json:"order_type"` // MANUAL or REPLENISHMENT
	LineItems       []LineItem   `gorm:"foreignKey:OrderID;references:OrderID" json:"line_items"`
	Shipping        Shipping     `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	TotalCost       float64      `json:"total_cost"` // always recomputed from line items
	AuditHistory    []AuditEntry `gorm:"foreignKey:OrderID;references:OrderID" json:"audit_history,omitempty"`
	Version         int64        `json:"version"` // optimistic concurrency check
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type LineItem struct {
	gorm.Model         `json:"-"`
	OrderID            string  `gorm:"index" json:"order_id"`
	ProductID          string  `json:"product_id"`
	VendorID           string  `json:"vendor_id"`
	Quantity           int     `json:"quantity"`
	UnitCost           float64 `json:"unit_cost"`
	RequiresDMApproval bool    `json:"requires_dm_approval"`
}

type Shipping struct {
	Method       string     `json:"method,omitempty"`
	Address      string     `json:"address,omitempty"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

// AuditEntry records a single workflow action against an order. Entries are
// append-only: nothing in the engine updates or deletes them.
type AuditEntry struct {
	gorm.Model `json:"-"`
	OrderID    string    `gorm:"index" json:"order_id"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Details    string    `json:"details,omitempty"`
	ReasonCode string    `json:"reason_code,omitempty"`
}

// Audit actions
const (
	ActionOrderCreated   = "ORDER_CREATED"
	ActionDMApproved     = "DM_APPROVED"
	ActionFMApproved     = "FM_APPROVED"
	ActionOrderRejected  = "ORDER_REJECTED"
	ActionDispatched     = "DISPATCHED"
	ActionPartialReceipt = "PARTIAL_RECEIPT"
	ActionFullReceipt    = "FULL_RECEIPT"
	ActionAutoApproved   = "AUTO_APPROVED"
	ActionItemsUpdated   = "LINE_ITEMS_UPDATED"
)

// RejectionReason is the closed set of reason codes accepted on rejection.
type RejectionReason string

const (
	ReasonBudgetExceeded RejectionReason = "BUDGET_EXCEEDED"
	ReasonIncorrectItems RejectionReason = "INCORRECT_ITEMS"
	ReasonDuplicateOrder RejectionReason = "DUPLICATE_ORDER"
	ReasonVendorIssue    RejectionReason = "VENDOR_ISSUE"
	ReasonNoLongerNeeded RejectionReason = "NO_LONGER_NEEDED"
	ReasonOther          RejectionReason = "OTHER"
)

func (r RejectionReason) Valid() bool {
	switch r {
	case ReasonBudgetExceeded, ReasonIncorrectItems, ReasonDuplicateOrder,
		ReasonVendorIssue, ReasonNoLongerNeeded, ReasonOther:
		return true
	}
	return false
}

// ComputeTotalCost returns the sum of quantity x unit cost across line items.
func ComputeTotalCost(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.UnitCost
	}
	return total
}
