package model

import (
	"time"

	"github.com/google/uuid"
)

// LotHistory event types. CREATED is appended once; the rest mirror the
// registry operations that produced them.
const (
	LotEventCreated    = "CREATED"
	LotEventConsumed   = "CONSUMED"
	LotEventHeld       = "HELD"
	LotEventReleased   = "RELEASED"
	LotEventExpired    = "EXPIRED"
	LotEventRecalled   = "RECALLED"
	LotEventInspected  = "INSPECTED"
)

// LotHistory is the append-only audit trail of a lot. Entries are never
// edited or deleted; the traceability graph replays them in insertion order.
type LotHistory struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LotID        uuid.UUID `gorm:"type:uuid;not null;index"`
	EventType    string    `gorm:"not null"`
	QtyBefore    int       `gorm:"not null"`
	QtyAfter     int       `gorm:"not null"`
	Delta        int       `gorm:"not null"`
	StatusBefore LotStatus
	StatusAfter  LotStatus
	Actor        string `gorm:"not null"`
	Note         string
	CreatedAt    time.Time

	Lot *Lot `gorm:"foreignKey:LotID"`
}

func (LotHistory) TableName() string { return "lot_history" }
