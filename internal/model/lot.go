package model

import (
	"time"

	"github.com/google/uuid"
)

// LotStatus is the lot lifecycle state.
type LotStatus string

const (
	LotAvailable  LotStatus = "AVAILABLE"
	LotHold       LotStatus = "HOLD"
	LotQuarantine LotStatus = "QUARANTINE"
	LotConsumed   LotStatus = "CONSUMED"
	LotExpired    LotStatus = "EXPIRED"
	LotScrapped   LotStatus = "SCRAPPED"
)

// Terminal lot states are never reopened.
func (s LotStatus) Terminal() bool {
	return s == LotConsumed || s == LotExpired || s == LotScrapped
}

// lotTransitions is the full edge table of the lot state machine.
// Anything not listed fails with InvalidStateTransition.
var lotTransitions = map[LotStatus][]LotStatus{
	LotAvailable:  {LotHold, LotQuarantine, LotConsumed, LotExpired, LotScrapped},
	LotHold:       {LotAvailable},
	LotQuarantine: {LotAvailable},
}

// CanTransition reports whether s → to is a legal lifecycle edge.
func (s LotStatus) CanTransition(to LotStatus) bool {
	for _, t := range lotTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// QCStatus tracks quality-control disposition, set at creation and advanced
// by the (external) inspection pipeline.
type QCStatus string

const (
	QCPending  QCStatus = "PENDING"
	QCPassed   QCStatus = "PASSED"
	QCFailed   QCStatus = "FAILED"
)

// Lot is a tracked batch of one item. The quantity fields conserve:
// QtyAvailable + QtyAllocated + QtyConsumed == QtyProduced at all times;
// every mutation re-checks this before committing.
//
// Version backs optimistic concurrency: updates carry WHERE version = ? and
// bump it, so two actors racing on the same lot produce a retryable conflict
// instead of a lost update.
type Lot struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ItemID         uuid.UUID `gorm:"type:uuid;not null;index"`
	LotNumber      string    `gorm:"uniqueIndex;not null"`
	QtyProduced    int       `gorm:"not null"`
	QtyAvailable   int       `gorm:"not null"`
	QtyAllocated   int       `gorm:"not null;default:0"`
	QtyConsumed    int       `gorm:"not null;default:0"`
	Status         LotStatus `gorm:"not null;default:'AVAILABLE';index"`
	QCStatus       QCStatus  `gorm:"not null;default:'PENDING'"`
	ProductionDate time.Time `gorm:"not null"`
	ExpirationDate *time.Time `gorm:"index"`
	HoldReasonID   *uuid.UUID `gorm:"type:uuid"`
	SupplierID     *uuid.UUID `gorm:"type:uuid"`
	ProductionOrderID *uuid.UUID `gorm:"type:uuid"`
	Seq            int64     `gorm:"autoIncrement;uniqueIndex"` // creation order, allocation tie-break
	Version        int       `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Item *Item `gorm:"foreignKey:ItemID"`
}

func (Lot) TableName() string { return "lots" }

// Conserved reports whether the quantity conservation invariant holds.
func (l *Lot) Conserved() bool {
	return l.QtyAvailable+l.QtyAllocated+l.QtyConsumed == l.QtyProduced
}

// ExpiredAsOf reports whether the lot carries an expiration date in the past.
func (l *Lot) ExpiredAsOf(now time.Time) bool {
	return l.ExpirationDate != nil && l.ExpirationDate.Before(now)
}
