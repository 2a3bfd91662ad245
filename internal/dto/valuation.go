package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostLayer is one receipt-backed quantity+cost slice. Derived during replay,
// never persisted: Remaining ≤ Quantity, and the sum of Remaining across a
// method's open layers equals that method's on-hand quantity.
type CostLayer struct {
	SourceEventID uuid.UUID       `json:"source_event_id"`
	Quantity      int             `json:"quantity"`
	Remaining     int             `json:"remaining"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Date          time.Time       `json:"date"`
}

// Value returns remaining × unitCost.
func (l CostLayer) Value() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(int64(l.Remaining)))
}

// ValuationResult is the point-in-time valuation of one item under one
// costing method. Layers is populated for FIFO/LIFO only.
type ValuationResult struct {
	ItemID      uuid.UUID       `json:"item_id"`
	Method      string          `json:"method"`
	AsOf        time.Time       `json:"as_of"`
	Quantity    int             `json:"quantity"`
	TotalValue  decimal.Decimal `json:"total_value"`
	AverageCost decimal.Decimal `json:"average_cost"`
	Layers      []CostLayer     `json:"layers,omitempty"`
}

// COGSCalculation is the period cost-of-goods-sold derivation:
// COGS = beginning + purchases − ending.
type COGSCalculation struct {
	ItemID             uuid.UUID       `json:"item_id"`
	Method             string          `json:"method"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	BeginningInventory decimal.Decimal `json:"beginning_inventory"`
	Purchases          decimal.Decimal `json:"purchases"`
	EndingInventory    decimal.Decimal `json:"ending_inventory"`
	CostOfGoodsSold    decimal.Decimal `json:"cost_of_goods_sold"`
}
