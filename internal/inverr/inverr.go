// Package inverr defines the typed failure taxonomy of the costing and
// allocation engine. Services return these; the HTTP layer maps them to
// status codes, and callers branch on them with errors.Is / errors.As.
// They are never used for normal control flow.
package inverr

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors. ErrConflict is the only retryable one: the caller is
// expected to re-issue the same request after a concurrent commit race.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("concurrent modification conflict")

	ErrItemNotFound   = fmt.Errorf("item: %w", ErrNotFound)
	ErrLotNotFound    = fmt.Errorf("lot: %w", ErrNotFound)
	ErrSerialNotFound = fmt.Errorf("serial number: %w", ErrNotFound)
)

// InvalidStateTransitionError reports an attempted lifecycle edge that is not
// in the state machine table (e.g. releasing a lot that is not on hold).
type InvalidStateTransitionError struct {
	Entity string // "lot" | "serial"
	ID     uuid.UUID
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition %s → %s (%s)", e.Entity, e.From, e.To, e.ID)
}

// InsufficientInventoryError is the all-or-nothing allocation shortfall:
// total allocatable quantity across candidate lots is below the demand.
// No partial allocation accompanies it.
type InsufficientInventoryError struct {
	ItemID    uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for item %s: requested %d, available %d (shortfall %d)",
		e.ItemID, e.Requested, e.Available, e.Shortfall())
}

func (e *InsufficientInventoryError) Shortfall() int { return e.Requested - e.Available }

// InsufficientSerialsError is the discrete analogue for serialized units.
type InsufficientSerialsError struct {
	ItemID uuid.UUID
	Found  int
	Needed int
}

func (e *InsufficientSerialsError) Error() string {
	return fmt.Sprintf("insufficient serial numbers for item %s: found %d, needed %d",
		e.ItemID, e.Found, e.Needed)
}

// InsufficientQuantityError reports a single-lot overconsumption attempt.
type InsufficientQuantityError struct {
	LotID     uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity in lot %s: requested %d, available %d",
		e.LotID, e.Requested, e.Available)
}

// AccountingInconsistencyError means a ledger replay found cumulative
// consumption exceeding cumulative receipts — upstream data corruption.
// It must be escalated (alert queue), never silently absorbed.
type AccountingInconsistencyError struct {
	ItemID   uuid.UUID
	Consumed int
	Received int
	At       time.Time
}

func (e *AccountingInconsistencyError) Error() string {
	return fmt.Sprintf("accounting inconsistency for item %s at %s: consumed %d exceeds received %d",
		e.ItemID, e.At.Format("2006-01-02"), e.Consumed, e.Received)
}

// Retryable reports whether the caller should retry the same request.
func Retryable(err error) bool { return errors.Is(err, ErrConflict) }
