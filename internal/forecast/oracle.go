package forecast

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ksred/restock-api/internal/types"
)

// Candidate is one reorder proposal from the forecasting oracle: the raw
// material a schedule run turns into a ReplenishmentSuggestion. Confidence
// comes from the oracle; the engine never computes it.
type Candidate struct {
	ProductID  string
	Category   string
	StoreID    string
	Quantity   int
	Reason     types.SuggestionReason
	Priority   types.Priority
	Confidence float64
	Vendors    []types.Vendor
	TTL        time.Duration
}

// Oracle is the forecasting system boundary. The real model lives outside
// this service; a schedule run asks it for candidates within scope.
type Oracle interface {
	Forecast(ctx context.Context, cfg *types.ScheduleConfig, now time.Time) ([]Candidate, error)
}

// catalogEntry is a product the mock oracle can propose reorders for.
type catalogEntry struct {
	ProductID string
	Category  string
	StoreID   string
	UnitCost  float64
	Vendors   []types.Vendor
}

var mockCatalog = []catalogEntry{
	{
		ProductID: "PRD_paper_towels",
		Category:  "janitorial",
		StoreID:   "STORE_001",
		Vendors: []types.Vendor{
			{VendorID: "VND_acme", Name: "Acme Supply", CostPerItem: 18.50, LeadTimeDays: 3, IsPreferred: true, SLAScore: 0.97, IsPrimary: true},
			{VendorID: "VND_bulkco", Name: "BulkCo", CostPerItem: 17.25, LeadTimeDays: 9, SLAScore: 0.88},
		},
	},
	{
		ProductID: "PRD_nitrile_gloves",
		Category:  "safety",
		StoreID:   "STORE_001",
		Vendors: []types.Vendor{
			{VendorID: "VND_medline", Name: "MedLine", CostPerItem: 42.00, LeadTimeDays: 5, IsPreferred: true, SLAScore: 0.95, IsPrimary: true},
			{VendorID: "VND_safetyfirst", Name: "SafetyFirst", CostPerItem: 39.90, LeadTimeDays: 6, SLAScore: 0.91},
		},
	},
	{
		ProductID: "PRD_floor_cleaner",
		Category:  "janitorial",
		StoreID:   "STORE_002",
		Vendors: []types.Vendor{
			{VendorID: "VND_acme", Name: "Acme Supply", CostPerItem: 27.00, LeadTimeDays: 3, SLAScore: 0.97, IsPrimary: true},
			{VendorID: "VND_chemco", Name: "ChemCo", CostPerItem: 27.00, LeadTimeDays: 2, SLAScore: 0.9},
		},
	},
	{
		ProductID: "PRD_register_tape",
		Category:  "front_end",
		StoreID:   "STORE_002",
		Vendors: []types.Vendor{
			{VendorID: "VND_officemax", Name: "OfficeMax Direct", CostPerItem: 6.10, LeadTimeDays: 4, SLAScore: 0.93, IsPrimary: true},
		},
	},
	{
		ProductID: "PRD_seasonal_displays",
		Category:  "merchandising",
		StoreID:   "STORE_003",
		Vendors: []types.Vendor{
			{VendorID: "VND_displayco", Name: "DisplayCo", CostPerItem: 112.00, LeadTimeDays: 14, SLAScore: 0.85, IsPrimary: true},
			{VendorID: "VND_promofast", Name: "PromoFast", CostPerItem: 104.00, LeadTimeDays: 21, SLAScore: 0.8},
		},
	},
}

var reasons = []types.SuggestionReason{
	types.ReasonLowStock,
	types.ReasonSeasonal,
	types.ReasonPromotional,
	types.ReasonPredictive,
}

var priorities = []types.Priority{
	types.PriorityLow,
	types.PriorityMedium,
	types.PriorityHigh,
	types.PriorityCritical,
}

// MockOracle simulates the forecasting model over a fixed catalog. It is
// the stand-in used by the server and the simulation; production wires a
// real model behind the same interface.
type MockOracle struct {
	catalog []catalogEntry
	rng     *rand.Rand
}

func NewMockOracle() *MockOracle {
	return &MockOracle{
		catalog: mockCatalog,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Forecast proposes reorders for catalog entries within the schedule's
// scope. Confidence and quantity are randomized per run.
func (o *MockOracle) Forecast(ctx context.Context, cfg *types.ScheduleConfig, now time.Time) ([]Candidate, error) {
	logger := log.With().Str("schedule_id", cfg.ScheduleID).Str("component", "mock_oracle").Logger()

	var candidates []Candidate
	for _, entry := range o.catalog {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !InScope(cfg.Scope, entry.StoreID, entry.Category, entry.ProductID) {
			continue
		}

		// Not every product needs restocking on every run.
		if o.rng.Float64() < 0.25 {
			continue
		}

		reason := reasons[o.rng.Intn(len(reasons))]
		priority := priorities[o.rng.Intn(len(priorities))]
		if len(cfg.Scope.Priorities) > 0 && !priorityAllowed(cfg.Scope.Priorities, priority) {
			continue
		}

		candidates = append(candidates, Candidate{
			ProductID:  entry.ProductID,
			Category:   entry.Category,
			StoreID:    entry.StoreID,
			Quantity:   5 + o.rng.Intn(45),
			Reason:     reason,
			Priority:   priority,
			Confidence: 0.4 + o.rng.Float64()*0.6,
			Vendors:    entry.Vendors,
			TTL:        72 * time.Hour,
		})
	}

	logger.Debug().
		Int("candidates", len(candidates)).
		Str("model_version", cfg.ML.ModelVersion).
		Msg("forecast produced")
	return candidates, nil
}

// InScope applies a schedule's allow-lists; empty lists are unrestricted.
func InScope(scope types.ScheduleScope, storeID, category, productID string) bool {
	if len(scope.StoreIDs) > 0 && !contains(scope.StoreIDs, storeID) {
		return false
	}
	if len(scope.Categories) > 0 && !contains(scope.Categories, category) {
		return false
	}
	if contains(scope.ExcludedProductIDs, productID) {
		return false
	}
	return true
}

func priorityAllowed(allowed []types.Priority, p types.Priority) bool {
	for _, a := range allowed {
		if a == p {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
