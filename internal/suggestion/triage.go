package suggestion

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/restock-api/internal/approval"
	"github.com/ksred/restock-api/internal/registry"
	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/internal/workflow"
)

// Service owns the pending suggestion set and converts suggestions into
// orders. Approval consumes the suggestion and creates the order in one
// transaction, so a retried approval can never generate a second order.
type Service struct {
	db        *Database
	schedules *registry.Service
}

func NewService(gormDB *gorm.DB, schedules *registry.Service) *Service {
	return &Service{
		db:        NewDatabase(gormDB),
		schedules: schedules,
	}
}

func validateSuggestion(sg *types.ReplenishmentSuggestion) error {
	if sg.ProductID == "" {
		return types.Validationf("suggestion missing product_id")
	}
	if sg.StoreID == "" {
		return types.Validationf("suggestion missing store_id")
	}
	if sg.SuggestedQuantity <= 0 {
		return types.Validationf("suggested_quantity must be positive")
	}
	if sg.Confidence < 0 || sg.Confidence > 1 {
		return types.Validationf("confidence %v outside [0,1]", sg.Confidence)
	}
	if sg.CostImpact < 0 {
		return types.Validationf("cost_impact must not be negative")
	}
	if !sg.ExpiresAt.After(sg.CreatedAt) {
		return types.Validationf("expires_at must be after created_at")
	}
	return nil
}

// Ingest adds an oracle-produced suggestion to the pending set.
func (s *Service) Ingest(sg *types.ReplenishmentSuggestion) error {
	if sg.SuggestionID == "" {
		sg.SuggestionID = "SUG_" + uuid.New().String()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now()
	}
	if err := validateSuggestion(sg); err != nil {
		return err
	}
	return s.db.CreateSuggestion(sg)
}

func (s *Service) ListPending(storeID string) ([]types.ReplenishmentSuggestion, error) {
	return s.db.ListPending(storeID)
}

func (s *Service) GetPending(suggestionID string) (*types.ReplenishmentSuggestion, error) {
	sg, err := s.db.GetPending(suggestionID)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, types.NotFoundf("suggestion %s", suggestionID)
	}
	return sg, nil
}

// Approve converts a pending suggestion into an order. Expired suggestions
// are refused at decision time and stay pending until purged. The created
// order enters the workflow at the state the suggestion's routing demands.
func (s *Service) Approve(suggestionID string, actor workflow.Actor) (*types.Order, error) {
	sg, err := s.GetPending(suggestionID)
	if err != nil {
		return nil, err
	}
	if sg.Expired(time.Now()) {
		return nil, types.Expiredf("suggestion %s expired at %s", suggestionID, sg.ExpiresAt.Format(time.RFC3339))
	}

	order, err := workflow.NewOrder(workflow.CreateOrderInput{
		StoreID:         sg.StoreID,
		CreatedByUserID: actor.UserID,
		OrderType:       types.OrderTypeReplenishment,
		LineItems:       []types.LineItem{s.lineItemFor(sg)},
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.ConsumeAndCreateOrder(suggestionID, order); err != nil {
		return nil, err
	}

	log.Info().
		Str("suggestion_id", suggestionID).
		Str("order_id", order.OrderID).
		Str("approved_by", actor.UserID).
		Msg("suggestion approved")
	return order, nil
}

// Reject consumes a pending suggestion without creating anything.
func (s *Service) Reject(suggestionID string, actor workflow.Actor, reason string) error {
	if reason == "" {
		return types.Validationf("rejection requires a reason")
	}
	if _, err := s.GetPending(suggestionID); err != nil {
		return err
	}
	if err := s.db.Consume(suggestionID, types.OutcomeRejected); err != nil {
		return err
	}

	log.Info().
		Str("suggestion_id", suggestionID).
		Str("rejected_by", actor.UserID).
		Str("reason", reason).
		Msg("suggestion rejected")
	return nil
}

// AutoApprove converts a suggestion that cleared every auto-approval gate
// straight into an approved order. The suggestion record is stored already
// consumed so confidence reports still see its outcome.
func (s *Service) AutoApprove(sg *types.ReplenishmentSuggestion, cfg *types.ScheduleConfig) (*types.Order, error) {
	if !approval.ShouldAutoApprove(sg, cfg, time.Now()) {
		return nil, types.Validationf("suggestion %s does not meet auto-approval gates", sg.SuggestionID)
	}

	if sg.SuggestionID == "" {
		sg.SuggestionID = "SUG_" + uuid.New().String()
	}
	if err := validateSuggestion(sg); err != nil {
		return nil, err
	}
	sg.AutoApproved = true

	order, err := workflow.NewOrder(workflow.CreateOrderInput{
		StoreID:         sg.StoreID,
		CreatedByUserID: "schedule:" + sg.ScheduleID,
		OrderType:       types.OrderTypeReplenishment,
		LineItems:       []types.LineItem{s.lineItemFor(sg)},
		AutoApproved:    true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.CreateConsumedWithOrder(sg, order); err != nil {
		return nil, err
	}

	log.Info().
		Str("suggestion_id", sg.SuggestionID).
		Str("order_id", order.OrderID).
		Str("schedule_id", sg.ScheduleID).
		Float64("confidence", sg.Confidence).
		Float64("cost_impact", sg.CostImpact).
		Msg("suggestion auto-approved")
	return order, nil
}

// PurgeExpired drops pending suggestions past their expiry.
func (s *Service) PurgeExpired() (int64, error) {
	return s.db.PurgeExpired(time.Now())
}

// lineItemFor maps a suggestion onto an order line. The DM flag is derived
// from the owning schedule's approval floor when the schedule still exists.
func (s *Service) lineItemFor(sg *types.ReplenishmentSuggestion) types.LineItem {
	item := types.LineItem{
		ProductID: sg.ProductID,
		VendorID:  sg.VendorID,
		Quantity:  sg.SuggestedQuantity,
		UnitCost:  sg.UnitCost,
	}
	if sg.ScheduleID == "" || s.schedules == nil {
		return item
	}
	cfg, err := s.schedules.Get(sg.ScheduleID)
	if err != nil {
		return item
	}
	item.RequiresDMApproval = approval.RequiresDMApproval(sg, cfg)
	return item
}

// Ingested suggestions carry an id like SUG_<uuid>; keep the format in one
// place for callers that need to pre-assign ids.
func NewSuggestionID() string {
	return fmt.Sprintf("SUG_%s", uuid.New().String())
}
