package dto

import (
	"time"

	"github.com/google/uuid"
)

// AllocationStrategy selects candidate ordering for lot allocation.
type AllocationStrategy string

const (
	StrategyFIFO   AllocationStrategy = "FIFO"
	StrategyLIFO   AllocationStrategy = "LIFO"
	StrategyFEFO   AllocationStrategy = "FEFO"
	StrategyManual AllocationStrategy = "MANUAL"
)

func (s AllocationStrategy) Valid() bool {
	switch s {
	case StrategyFIFO, StrategyLIFO, StrategyFEFO, StrategyManual:
		return true
	}
	return false
}

// AllocationLine is one lot's contribution to a proposal.
type AllocationLine struct {
	LotID          uuid.UUID  `json:"lot_id"`
	LotNumber      string     `json:"lot_number"`
	QtyAllocated   int        `json:"qty_allocated"`
	ProductionDate time.Time  `json:"production_date"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// AllocationProposal is the pure output of the select phase. Nothing is
// reserved until the caller commits it; the commit re-validates availability
// per line and fails with a retryable conflict if another actor got there
// first.
type AllocationProposal struct {
	ItemID    uuid.UUID          `json:"item_id"`
	Strategy  AllocationStrategy `json:"strategy"`
	QtyNeeded int                `json:"qty_needed"`
	Lines     []AllocationLine   `json:"lines"`
}

// TotalAllocated sums the proposal lines. Always equals QtyNeeded for a
// proposal produced by the engine (all-or-nothing contract).
func (p *AllocationProposal) TotalAllocated() int {
	total := 0
	for _, l := range p.Lines {
		total += l.QtyAllocated
	}
	return total
}

// SerialAllocation is the discrete analogue of an allocation line.
type SerialAllocation struct {
	SerialID uuid.UUID  `json:"serial_id"`
	Serial   string     `json:"serial_number"`
	LotID    *uuid.UUID `json:"lot_id,omitempty"`
}

// SerialProposal lists the exact serial units selected to satisfy a demand.
type SerialProposal struct {
	ItemID  uuid.UUID          `json:"item_id"`
	Needed  int                `json:"needed"`
	Serials []SerialAllocation `json:"serials"`
}
