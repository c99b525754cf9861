package types

// Role is the closed set of actors the engine recognizes. The workflow's
// capability table is keyed on (Role, OrderStatus).
type Role string

const (
	RoleDM     Role = "DM"     // District Manager
	RoleFM     Role = "FM"     // Facility Manager
	RoleSystem Role = "SYSTEM" // automation (schedule runner, simulation)
)

func (r Role) Valid() bool {
	switch r {
	case RoleDM, RoleFM, RoleSystem:
		return true
	}
	return false
}

// Vendor is one entry in a product's vendor list, the input to vendor
// selection. Vendor lists come from the catalog, which is outside this
// engine; they are passed in per call and not persisted here.
type Vendor struct {
	VendorID     string  `json:"vendor_id"`
	Name         string  `json:"name"`
	CostPerItem  float64 `json:"cost_per_item"`
	LeadTimeDays int     `json:"lead_time_days"`
	IsPreferred  bool    `json:"is_preferred"`
	SLAScore     float64 `json:"sla_score"`
	IsPrimary    bool    `json:"is_primary"`
}
