package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitCost is a per-unit inventory cost computed upstream (FIFO layers are
// resolved before the value lands here). The most recent row per product wins.
type UnitCost struct {
	Base
	OrganizationID string          `gorm:"type:uuid;not null;index:idx_unit_costs_org_product" json:"organization_id"`
	ProductID      string          `gorm:"not null;index:idx_unit_costs_org_product" json:"product_id"`
	UnitCost       decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"unit_cost"`
	ComputedAt     time.Time       `gorm:"not null" json:"computed_at"`
}
