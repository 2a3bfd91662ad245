package dto

import (
	"github.com/shopspring/decimal"
)

// Request bodies for the host HTTP surface. Quantities are validated here;
// business rules (state machines, conservation) stay in the services.

type CreateItemRequest struct {
	SKU           string          `json:"sku" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	StandardCost  decimal.Decimal `json:"standard_cost" validate:"min=0"`
}

type AppendEventRequest struct {
	Type       string           `json:"type" validate:"required,oneof=RECEIVE ISSUE SCRAP ADJUST"`
	Quantity   int              `json:"quantity" validate:"required"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	OccurredAt string           `json:"occurred_at" validate:"required"` // RFC3339
	Reference  string           `json:"reference"`
}

type CreateLotRequest struct {
	ItemID         string `json:"item_id" validate:"required,uuid"`
	LotNumber      string `json:"lot_number"` // empty = generate
	QtyProduced    int    `json:"qty_produced" validate:"required,gt=0"`
	ProductionDate string `json:"production_date" validate:"required"`
	ExpirationDate string `json:"expiration_date"`
	SupplierID     string `json:"supplier_id"`
	Actor          string `json:"actor" validate:"required"`
}

type ConsumeLotRequest struct {
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Actor    string `json:"actor" validate:"required"`
	Note     string `json:"note"`
}

type HoldLotRequest struct {
	Quarantine   bool   `json:"quarantine"`
	HoldReasonID string `json:"hold_reason_id"`
	Actor        string `json:"actor" validate:"required"`
	Note         string `json:"note"`
}

type ReleaseLotRequest struct {
	Actor string `json:"actor" validate:"required"`
	Note  string `json:"note"`
}

type SelectAllocationRequest struct {
	ItemID             string   `json:"item_id" validate:"required,uuid"`
	QtyNeeded          int      `json:"qty_needed" validate:"required,gt=0"`
	Strategy           string   `json:"strategy" validate:"required,oneof=FIFO LIFO FEFO MANUAL"`
	ExcludeExpiredDays int      `json:"exclude_expired_days" validate:"min=0"`
	SpecificLotIDs     []string `json:"specific_lot_ids"`
}

type CommitAllocationRequest struct {
	Proposal AllocationProposal `json:"proposal" validate:"required"`
	Actor    string             `json:"actor" validate:"required"`
}

type SelectSerialsRequest struct {
	ItemID          string   `json:"item_id" validate:"required,uuid"`
	QtyNeeded       int      `json:"qty_needed" validate:"required,gt=0"`
	SpecificSerials []string `json:"specific_serials"`
	PreferLotID     string   `json:"prefer_lot_id"`
}

type InitiateRecallRequest struct {
	LotNumbers []string `json:"lot_numbers" validate:"required,min=1"`
	Actor      string   `json:"actor" validate:"required"`
}
