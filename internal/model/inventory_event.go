package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType is the closed set of inventory event kinds.
type EventType string

const (
	EventReceive EventType = "RECEIVE"
	EventIssue   EventType = "ISSUE"
	EventScrap   EventType = "SCRAP"
	EventAdjust  EventType = "ADJUST"
)

func (t EventType) Valid() bool {
	switch t {
	case EventReceive, EventIssue, EventScrap, EventAdjust:
		return true
	}
	return false
}

// Deduction reports whether the event removes stock. ADJUST is signed and
// classified by its quantity, not its type.
func (t EventType) Deduction() bool { return t == EventIssue || t == EventScrap }

// InventoryEvent is one immutable fact in an item's event log. Rows are
// append-only: there is no update or delete path anywhere in the engine.
// Quantity is negative for issues/scraps and signed for adjustments;
// UnitCost is set on receipts (and optionally on positive adjustments).
type InventoryEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemID     uuid.UUID `gorm:"type:uuid;not null;index:idx_events_item_occurred,priority:1"`
	Type       EventType `gorm:"not null"`
	Quantity   int       `gorm:"not null"`
	UnitCost   *decimal.Decimal `gorm:"type:decimal(12,4)"`
	OccurredAt time.Time `gorm:"not null;index:idx_events_item_occurred,priority:2"`
	Reference  string
	CreatedAt  time.Time

	Item *Item `gorm:"foreignKey:ItemID"`
}

func (InventoryEvent) TableName() string { return "inventory_events" }

// SignedQuantity normalizes the event to a signed stock delta: receipts are
// positive, issues/scraps negative regardless of how the row was stored,
// adjustments pass through as recorded.
func (e *InventoryEvent) SignedQuantity() int {
	q := e.Quantity
	if e.Type.Deduction() && q > 0 {
		q = -q
	}
	if e.Type == EventReceive && q < 0 {
		q = -q
	}
	return q
}
