package dto

import (
	"time"

	"github.com/google/uuid"
)

// LotHistoryEntry is one audit-trail row, oldest first in TraceabilityRecord.
type LotHistoryEntry struct {
	EventType    string    `json:"event_type"`
	QtyBefore    int       `json:"qty_before"`
	QtyAfter     int       `json:"qty_after"`
	Delta        int       `json:"delta"`
	StatusBefore string    `json:"status_before,omitempty"`
	StatusAfter  string    `json:"status_after,omitempty"`
	Actor        string    `json:"actor"`
	Note         string    `json:"note,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// TracedSerial is a serial under a lot together with its outbound linkage.
type TracedSerial struct {
	SerialID       uuid.UUID  `json:"serial_id"`
	Serial         string     `json:"serial_number"`
	Status         string     `json:"status"`
	ShipmentNumber string     `json:"shipment_number,omitempty"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	CustomerName   string     `json:"customer_name,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
}

// InboundLinkage is where the lot came from.
type InboundLinkage struct {
	SupplierID        *uuid.UUID        `json:"supplier_id,omitempty"`
	ProductionOrderID *uuid.UUID        `json:"production_order_id,omitempty"`
	Inspections       []LotHistoryEntry `json:"inspections,omitempty"`
}

// TraceabilityRecord is the full genealogy view of one lot: the record
// itself, its ordered history, inbound origin, and every serial with its
// shipment/customer.
type TraceabilityRecord struct {
	LotID          uuid.UUID         `json:"lot_id"`
	LotNumber      string            `json:"lot_number"`
	ItemID         uuid.UUID         `json:"item_id"`
	Status         string            `json:"status"`
	QtyProduced    int               `json:"qty_produced"`
	QtyAvailable   int               `json:"qty_available"`
	QtyConsumed    int               `json:"qty_consumed"`
	ProductionDate time.Time         `json:"production_date"`
	ExpirationDate *time.Time        `json:"expiration_date,omitempty"`
	History        []LotHistoryEntry `json:"history"`
	Inbound        InboundLinkage    `json:"inbound"`
	Serials        []TracedSerial    `json:"serials"`
}

// AffectedCustomer is one deduplicated customer in a recall scope, with its
// deduplicated shipment numbers.
type AffectedCustomer struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Shipments    []string  `json:"shipments"`
}

// RecallScope is the computed, ephemeral blast radius of a recall.
// TotalQtyAffected counts qtyProduced — shipped units are in scope too.
type RecallScope struct {
	RecallID          uuid.UUID          `json:"recall_id"`
	LotNumbers        []string           `json:"lot_numbers"`
	AffectedLots      []uuid.UUID        `json:"affected_lots"`
	AffectedSerials   []string           `json:"affected_serials"`
	AffectedCustomers []AffectedCustomer `json:"affected_customers"`
	TotalQtyAffected  int                `json:"total_qty_affected"`
	InitiatedAt       time.Time          `json:"initiated_at"`
}
