package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TurnoverClass buckets annualized inventory turns.
type TurnoverClass string

const (
	TurnoverFast   TurnoverClass = "FAST"
	TurnoverMedium TurnoverClass = "MEDIUM"
	TurnoverSlow   TurnoverClass = "SLOW"
	TurnoverDead   TurnoverClass = "DEAD"
)

// AgingBucket is one age band of on-hand inventory. Bucket assignment always
// assumes FIFO consumption ordering, whatever the item's costing method —
// a reporting approximation, not a valuation statement.
type AgingBucket struct {
	Label    string          `json:"label"` // e.g. "0-30"
	MinDays  int             `json:"min_days"`
	MaxDays  int             `json:"max_days"` // -1 = open-ended
	Quantity int             `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// ItemAging is the aging profile of a single item.
type ItemAging struct {
	ItemID        uuid.UUID       `json:"item_id"`
	SKU           string          `json:"sku"`
	OnHand        int             `json:"on_hand"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Buckets       []AgingBucket   `json:"buckets"`
	TurnsPerYear  decimal.Decimal `json:"turns_per_year"`
	Turnover      TurnoverClass   `json:"turnover"`
}

// InventoryAgingReport aggregates aging across items for the report builder.
type InventoryAgingReport struct {
	Items      []ItemAging     `json:"items"`
	TotalValue decimal.Decimal `json:"total_value"`
}
