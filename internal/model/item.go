package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostingMethod selects how ValuateItem builds an item's valuation.
type CostingMethod string

const (
	CostingFIFO     CostingMethod = "FIFO"
	CostingLIFO     CostingMethod = "LIFO"
	CostingWAC      CostingMethod = "WAC"
	CostingStandard CostingMethod = "STANDARD"
)

// Valid reports whether m is one of the four supported methods.
func (m CostingMethod) Valid() bool {
	switch m {
	case CostingFIFO, CostingLIFO, CostingWAC, CostingStandard:
		return true
	}
	return false
}

// Item is the catalog record the engine values and allocates against.
// Ownership of the catalog (naming, pricing, tenancy) is external; the engine
// only reads StandardCost/LastCost/AvgCost and never writes them.
type Item struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU           string    `gorm:"uniqueIndex;not null"`
	Name          string    `gorm:"index;not null"`
	UnitOfMeasure string    `gorm:"not null;default:'EA'"`
	StandardCost  decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	LastCost      decimal.Decimal `gorm:"type:decimal(12,4)"`
	AvgCost       decimal.Decimal `gorm:"type:decimal(12,4)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Item) TableName() string { return "items" }
