package model

import (
	"time"

	"github.com/google/uuid"
)

// Shipment is the outbound linkage record written by the external order
// pipeline. The engine only reads it to resolve recall scope and lot
// traceability; it never creates or mutates shipments.
type Shipment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShipmentNumber string    `gorm:"uniqueIndex;not null"`
	CustomerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerName   string    `gorm:"not null"`
	ShippedAt      time.Time `gorm:"not null"`
	CreatedAt      time.Time
}

func (Shipment) TableName() string { return "shipments" }
