package service

import (
	"context"
	"sort"
	"time"

	"lotledger/internal/dto"
	"lotledger/internal/inverr"
	"lotledger/internal/model"
	"lotledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AllocationEngine proposes lots/serials to satisfy demand. Two phases:
// select is pure and returns a proposal without reserving anything; commit
// walks the proposal through the registry inside one transaction,
// re-validating availability. Reserve-then-commit, not reserve-with-guarantee:
// a concurrent consumer between the phases surfaces as a retryable conflict.
type AllocationEngine interface {
	SelectLots(ctx context.Context, itemID uuid.UUID, qtyNeeded int, strategy dto.AllocationStrategy, excludeExpiredDays int, specificLotIDs []uuid.UUID) (*dto.AllocationProposal, error)
	SelectSerials(ctx context.Context, itemID uuid.UUID, qtyNeeded int, specificSerials []string, preferLotID *uuid.UUID) (*dto.SerialProposal, error)
	CommitProposal(ctx context.Context, proposal *dto.AllocationProposal, actor string) error
	CommitSerialProposal(ctx context.Context, proposal *dto.SerialProposal) error
}

type allocationEngine struct {
	lots     repository.LotRepository
	serials  repository.SerialRepository
	registry LotRegistryService
}

func NewAllocationEngine(lots repository.LotRepository, serials repository.SerialRepository, registry LotRegistryService) AllocationEngine {
	return &allocationEngine{lots: lots, serials: serials, registry: registry}
}

func (e *allocationEngine) SelectLots(ctx context.Context, itemID uuid.UUID, qtyNeeded int, strategy dto.AllocationStrategy, excludeExpiredDays int, specificLotIDs []uuid.UUID) (*dto.AllocationProposal, error) {
	candidates, err := e.candidateLots(ctx, itemID, strategy, excludeExpiredDays, specificLotIDs)
	if err != nil {
		return nil, err
	}

	orderCandidates(candidates, strategy)

	proposal := &dto.AllocationProposal{
		ItemID:    itemID,
		Strategy:  strategy,
		QtyNeeded: qtyNeeded,
	}

	// Greedy fill over the ordered candidates.
	remaining := qtyNeeded
	for i := range candidates {
		if remaining == 0 {
			break
		}
		lot := &candidates[i]
		take := min(remaining, lot.QtyAvailable)
		if take == 0 {
			continue
		}
		remaining -= take
		proposal.Lines = append(proposal.Lines, dto.AllocationLine{
			LotID:          lot.ID,
			LotNumber:      lot.LotNumber,
			QtyAllocated:   take,
			ProductionDate: lot.ProductionDate,
			ExpirationDate: lot.ExpirationDate,
		})
	}

	// All-or-nothing: a shortfall yields an error and no partial proposal.
	if remaining > 0 {
		return nil, &inverr.InsufficientInventoryError{
			ItemID:    itemID,
			Requested: qtyNeeded,
			Available: qtyNeeded - remaining,
		}
	}
	return proposal, nil
}

func (e *allocationEngine) candidateLots(ctx context.Context, itemID uuid.UUID, strategy dto.AllocationStrategy, excludeExpiredDays int, specificLotIDs []uuid.UUID) ([]model.Lot, error) {
	// MANUAL uses exactly the caller's lots; every other strategy starts
	// from all AVAILABLE lots with stock and applies the expiry horizon.
	if strategy == dto.StrategyManual {
		return e.lots.ListByIDs(ctx, specificLotIDs)
	}

	lots, err := e.lots.ListAvailableByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	horizon := time.Now().AddDate(0, 0, excludeExpiredDays)
	eligible := lots[:0]
	for _, lot := range lots {
		if lot.ExpirationDate != nil && lot.ExpirationDate.Before(horizon) {
			continue
		}
		eligible = append(eligible, lot)
	}
	return eligible, nil
}

// orderCandidates sorts in place per strategy. Ties always break on lot
// creation sequence so repeated runs over the same state are deterministic.
func orderCandidates(lots []model.Lot, strategy dto.AllocationStrategy) {
	switch strategy {
	case dto.StrategyFIFO:
		sort.SliceStable(lots, func(i, j int) bool {
			if !lots[i].ProductionDate.Equal(lots[j].ProductionDate) {
				return lots[i].ProductionDate.Before(lots[j].ProductionDate)
			}
			return lots[i].Seq < lots[j].Seq
		})
	case dto.StrategyLIFO:
		sort.SliceStable(lots, func(i, j int) bool {
			if !lots[i].ProductionDate.Equal(lots[j].ProductionDate) {
				return lots[i].ProductionDate.After(lots[j].ProductionDate)
			}
			return lots[i].Seq < lots[j].Seq
		})
	case dto.StrategyFEFO:
		// Earliest expiration first; lots without an expiration date are
		// used only after every dated lot is exhausted.
		sort.SliceStable(lots, func(i, j int) bool {
			ei, ej := lots[i].ExpirationDate, lots[j].ExpirationDate
			switch {
			case ei == nil && ej == nil:
				return lots[i].Seq < lots[j].Seq
			case ei == nil:
				return false
			case ej == nil:
				return true
			case !ei.Equal(*ej):
				return ei.Before(*ej)
			}
			return lots[i].Seq < lots[j].Seq
		})
	case dto.StrategyManual:
		// Caller's lots in creation-sequence order (repository default).
	}
}

func (e *allocationEngine) SelectSerials(ctx context.Context, itemID uuid.UUID, qtyNeeded int, specificSerials []string, preferLotID *uuid.UUID) (*dto.SerialProposal, error) {
	var candidates []model.SerialNumber
	var err error
	if len(specificSerials) > 0 {
		candidates, err = e.serials.FindBySerials(ctx, specificSerials)
		if err != nil {
			return nil, err
		}
		// Requested serials must actually be allocatable.
		eligible := candidates[:0]
		for _, sn := range candidates {
			if sn.ItemID == itemID && sn.Status == model.SerialAvailable {
				eligible = append(eligible, sn)
			}
		}
		candidates = eligible
	} else {
		candidates, err = e.serials.ListAvailableByItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if preferLotID != nil {
			// Stable partition: preferred lot's serials first, original
			// order otherwise.
			sort.SliceStable(candidates, func(i, j int) bool {
				pi := candidates[i].LotID != nil && *candidates[i].LotID == *preferLotID
				pj := candidates[j].LotID != nil && *candidates[j].LotID == *preferLotID
				return pi && !pj
			})
		}
	}

	if len(candidates) < qtyNeeded {
		return nil, &inverr.InsufficientSerialsError{ItemID: itemID, Found: len(candidates), Needed: qtyNeeded}
	}

	proposal := &dto.SerialProposal{ItemID: itemID, Needed: qtyNeeded}
	for _, sn := range candidates[:qtyNeeded] {
		proposal.Serials = append(proposal.Serials, dto.SerialAllocation{
			SerialID: sn.ID,
			Serial:   sn.Serial,
			LotID:    sn.LotID,
		})
	}
	return proposal, nil
}

// CommitProposal consumes every proposal line in one transaction. Any line
// failing — including a version conflict from a concurrent consumer — rolls
// back the whole commit; inverr.ErrConflict tells the caller to re-select
// and retry.
func (e *allocationEngine) CommitProposal(ctx context.Context, proposal *dto.AllocationProposal, actor string) error {
	err := runTx(ctx, e.lots.DB(), func(tx *gorm.DB) error {
		for _, line := range proposal.Lines {
			if _, err := e.registry.ConsumeLotTx(tx, line.LotID, line.QtyAllocated, actor, "allocation "+string(proposal.Strategy)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().
		Str("item_id", proposal.ItemID.String()).
		Int("qty", proposal.QtyNeeded).
		Int("lots", len(proposal.Lines)).
		Msg("allocation committed")
	return nil
}

func (e *allocationEngine) CommitSerialProposal(ctx context.Context, proposal *dto.SerialProposal) error {
	return runTx(ctx, e.serials.DB(), func(tx *gorm.DB) error {
		for _, line := range proposal.Serials {
			if _, err := e.registry.AllocateSerialTx(tx, line.SerialID); err != nil {
				return err
			}
		}
		return nil
	})
}
