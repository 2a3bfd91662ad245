package service

import (
	"context"
	"time"

	"lotledger/internal/dto"
	"lotledger/internal/model"
	"lotledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Turnover thresholds, annualized turns.
var (
	turnsFast   = decimal.NewFromInt(12)
	turnsMedium = decimal.NewFromInt(6)
	turnsSlow   = decimal.NewFromInt(1)
)

// defaultBuckets are the standard aging bands.
var defaultBuckets = []dto.AgingBucket{
	{Label: "0-30", MinDays: 0, MaxDays: 30},
	{Label: "31-60", MinDays: 31, MaxDays: 60},
	{Label: "61-90", MinDays: 61, MaxDays: 90},
	{Label: "91+", MinDays: 91, MaxDays: -1},
}

// AgingService derives aging buckets and turnover classification. It is a
// read-only view over the cost ledger and never mutates anything.
//
// Bucket assignment always assumes FIFO consumption ordering, even when the
// item is valued under LIFO/WAC/STANDARD. That is a deliberate reporting
// approximation: "age of what's left" is only well defined against some
// consumption order, and FIFO is the conventional one.
type AgingService interface {
	AgeItem(ctx context.Context, itemID uuid.UUID) (*dto.ItemAging, error)
	Report(ctx context.Context) (*dto.InventoryAgingReport, error)
}

type agingService struct {
	items  repository.ItemRepository
	events repository.EventRepository
	ledger CostLedgerService
}

func NewAgingService(items repository.ItemRepository, events repository.EventRepository, ledger CostLedgerService) AgingService {
	return &agingService{items: items, events: events, ledger: ledger}
}

func (s *agingService) AgeItem(ctx context.Context, itemID uuid.UUID) (*dto.ItemAging, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	// FIFO layers regardless of the item's costing method.
	valuation, err := s.ledger.ValuateItem(ctx, itemID, model.CostingFIFO, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	buckets := make([]dto.AgingBucket, len(defaultBuckets))
	copy(buckets, defaultBuckets)

	for _, layer := range valuation.Layers {
		age := int(now.Sub(layer.Date).Hours() / 24)
		for i := range buckets {
			if age < buckets[i].MinDays {
				continue
			}
			if buckets[i].MaxDays >= 0 && age > buckets[i].MaxDays {
				continue
			}
			buckets[i].Quantity += layer.Remaining
			buckets[i].Value = buckets[i].Value.Add(layer.Value())
			break
		}
	}

	turns, err := s.annualTurns(ctx, itemID, valuation.Quantity)
	if err != nil {
		return nil, err
	}

	return &dto.ItemAging{
		ItemID:       itemID,
		SKU:          item.SKU,
		OnHand:       valuation.Quantity,
		TotalValue:   valuation.TotalValue,
		Buckets:      buckets,
		TurnsPerYear: turns,
		Turnover:     classifyTurnover(turns),
	}, nil
}

// annualTurns estimates annualized turns from the past year's issue volume
// against current on-hand quantity.
func (s *agingService) annualTurns(ctx context.Context, itemID uuid.UUID, onHand int) (decimal.Decimal, error) {
	events, err := s.events.ListByItem(ctx, itemID, nil)
	if err != nil {
		return decimal.Zero, err
	}

	cutoff := time.Now().AddDate(-1, 0, 0)
	issued := 0
	for i := range events {
		e := &events[i]
		if e.Type != model.EventIssue || e.OccurredAt.Before(cutoff) {
			continue
		}
		issued += -e.SignedQuantity()
	}
	if onHand == 0 {
		if issued > 0 {
			return turnsFast, nil // everything moved — nothing is sitting
		}
		return decimal.Zero, nil
	}
	return decimal.NewFromInt(int64(issued)).Div(decimal.NewFromInt(int64(onHand))), nil
}

func classifyTurnover(turns decimal.Decimal) dto.TurnoverClass {
	switch {
	case turns.GreaterThanOrEqual(turnsFast):
		return dto.TurnoverFast
	case turns.GreaterThanOrEqual(turnsMedium):
		return dto.TurnoverMedium
	case turns.GreaterThanOrEqual(turnsSlow):
		return dto.TurnoverSlow
	default:
		return dto.TurnoverDead
	}
}

func (s *agingService) Report(ctx context.Context) (*dto.InventoryAgingReport, error) {
	ids, err := s.items.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	report := &dto.InventoryAgingReport{}
	for _, id := range ids {
		aging, err := s.AgeItem(ctx, id)
		if err != nil {
			return nil, err
		}
		report.Items = append(report.Items, *aging)
		report.TotalValue = report.TotalValue.Add(aging.TotalValue)
	}
	return report, nil
}
