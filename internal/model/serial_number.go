package model

import (
	"time"

	"github.com/google/uuid"
)

// SerialStatus is the serialized-unit lifecycle state. A serial has exactly
// one status at a time.
type SerialStatus string

const (
	SerialAvailable      SerialStatus = "AVAILABLE"
	SerialAllocated      SerialStatus = "ALLOCATED"
	SerialShipped        SerialStatus = "SHIPPED"
	SerialConsumed       SerialStatus = "CONSUMED"
	SerialScrapped       SerialStatus = "SCRAPPED"
	SerialWarrantyReturn SerialStatus = "WARRANTY_RETURN"
)

func (s SerialStatus) Terminal() bool {
	return s == SerialConsumed || s == SerialScrapped
}

// serialTransitions: AVAILABLE → ALLOCATED → SHIPPED → CONSUMED, SCRAPPED
// reachable from any non-terminal state. The WARRANTY_RETURN → AVAILABLE
// re-entry edge is policy-gated and checked in the registry, not here.
var serialTransitions = map[SerialStatus][]SerialStatus{
	SerialAvailable:      {SerialAllocated, SerialScrapped},
	SerialAllocated:      {SerialShipped, SerialAvailable, SerialScrapped},
	SerialShipped:        {SerialConsumed, SerialWarrantyReturn, SerialScrapped},
	SerialWarrantyReturn: {SerialScrapped},
}

func (s SerialStatus) CanTransition(to SerialStatus) bool {
	for _, t := range serialTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// SerialNumber is a discrete tracked unit. LotID is an optional back-reference
// for lookup only — the lot does not own its serials' lifecycles.
type SerialNumber struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemID            uuid.UUID    `gorm:"type:uuid;not null;index"`
	Serial            string       `gorm:"uniqueIndex;not null;column:serial_number"`
	LotID             *uuid.UUID   `gorm:"type:uuid;index"`
	Status            SerialStatus `gorm:"not null;default:'AVAILABLE';index"`
	CurrentLocationID *uuid.UUID   `gorm:"type:uuid"`
	ShipmentID        *uuid.UUID   `gorm:"type:uuid;index"`
	Seq               int64        `gorm:"autoIncrement;uniqueIndex"`
	Version           int          `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Item     *Item     `gorm:"foreignKey:ItemID"`
	Lot      *Lot      `gorm:"foreignKey:LotID"`
	Shipment *Shipment `gorm:"foreignKey:ShipmentID"`
}

func (SerialNumber) TableName() string { return "serial_numbers" }
