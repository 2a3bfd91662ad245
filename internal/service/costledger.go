package service

import (
	"context"
	"fmt"
	"time"

	"lotledger/internal/dto"
	"lotledger/internal/inverr"
	"lotledger/internal/model"
	"lotledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostLedgerService produces point-in-time valuations and period COGS by
// replaying an item's event stream. It is strictly read-only: it never
// mutates events or item cost fields.
type CostLedgerService interface {
	ValuateItem(ctx context.Context, itemID uuid.UUID, method model.CostingMethod, asOf *time.Time) (*dto.ValuationResult, error)
	CalculateCOGS(ctx context.Context, itemID uuid.UUID, method model.CostingMethod, periodStart, periodEnd time.Time) (*dto.COGSCalculation, error)
}

type costLedgerService struct {
	items  repository.ItemRepository
	events repository.EventRepository
}

func NewCostLedgerService(items repository.ItemRepository, events repository.EventRepository) CostLedgerService {
	return &costLedgerService{items: items, events: events}
}

func (s *costLedgerService) ValuateItem(ctx context.Context, itemID uuid.UUID, method model.CostingMethod, asOf *time.Time) (*dto.ValuationResult, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	events, err := s.events.ListByItem(ctx, itemID, asOf)
	if err != nil {
		return nil, err
	}

	at := time.Now()
	if asOf != nil {
		at = *asOf
	}

	result := &dto.ValuationResult{
		ItemID: itemID,
		Method: string(method),
		AsOf:   at,
	}

	switch method {
	case model.CostingFIFO, model.CostingLIFO:
		layers, err := replayLayers(item, events, method)
		if err != nil {
			return nil, err
		}
		for _, l := range layers {
			result.Quantity += l.Remaining
			result.TotalValue = result.TotalValue.Add(l.Value())
		}
		result.Layers = layers
	case model.CostingWAC:
		qty, avg, err := replayWAC(item, events)
		if err != nil {
			return nil, err
		}
		result.Quantity = qty
		result.AverageCost = avg
		result.TotalValue = avg.Mul(decimal.NewFromInt(int64(qty)))
		return result, nil
	case model.CostingStandard:
		qty, err := onHand(itemID, events)
		if err != nil {
			return nil, err
		}
		result.Quantity = qty
		result.AverageCost = item.StandardCost
		result.TotalValue = item.StandardCost.Mul(decimal.NewFromInt(int64(qty)))
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported costing method %q", method)
	}

	if result.Quantity > 0 {
		result.AverageCost = result.TotalValue.Div(decimal.NewFromInt(int64(result.Quantity)))
	}
	return result, nil
}

// replayLayers builds cost layers from receipts — ascending by date for FIFO,
// descending for LIFO, ties broken by insertion order — and applies every
// deduction in chronological order. Consumption always walks the layers in
// the order they were built for the method, spilling into the next open layer
// until the demanded quantity is exhausted.
func replayLayers(item *model.Item, events []model.InventoryEvent, method model.CostingMethod) ([]dto.CostLayer, error) {
	// Events arrive chronologically. Layers are kept in receipt order; the
	// walk direction below realizes the method's construction order
	// (FIFO: oldest built first, LIFO: newest built first).
	var layers []dto.CostLayer
	received, consumed := 0, 0

	for i := range events {
		e := &events[i]
		qty := e.SignedQuantity()
		if qty == 0 {
			continue
		}
		if qty > 0 {
			received += qty
			layers = append(layers, dto.CostLayer{
				SourceEventID: e.ID,
				Quantity:      qty,
				Remaining:     qty,
				UnitCost:      layerCost(item, e),
				Date:          e.OccurredAt,
			})
			continue
		}

		demand := -qty
		consumed += demand
		if consumed > received {
			return nil, &inverr.AccountingInconsistencyError{
				ItemID:   e.ItemID,
				Consumed: consumed,
				Received: received,
				At:       e.OccurredAt,
			}
		}
		indices := walkOrder(len(layers), method)
		for _, idx := range indices {
			if demand == 0 {
				break
			}
			l := &layers[idx]
			if l.Remaining == 0 {
				continue
			}
			take := min(demand, l.Remaining)
			l.Remaining -= take
			demand -= take
		}
	}

	// Present only open layers, in the method's construction order.
	open := make([]dto.CostLayer, 0, len(layers))
	for _, idx := range walkOrder(len(layers), method) {
		if layers[idx].Remaining > 0 {
			open = append(open, layers[idx])
		}
	}
	return open, nil
}

// walkOrder returns layer indices in the method's construction order over a
// chronologically stored slice.
func walkOrder(n int, method model.CostingMethod) []int {
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		if method == model.CostingLIFO {
			idx[i] = n - 1 - i
		} else {
			idx[i] = i
		}
	}
	return idx
}

// replayWAC maintains the running average: receipts blend into it, deductions
// reduce quantity but leave the average untouched until the next receipt.
func replayWAC(item *model.Item, events []model.InventoryEvent) (int, decimal.Decimal, error) {
	qty := 0
	avg := decimal.Zero
	received, consumed := 0, 0

	for i := range events {
		e := &events[i]
		delta := e.SignedQuantity()
		if delta == 0 {
			continue
		}
		if delta > 0 {
			cost := layerCost(item, e)
			total := avg.Mul(decimal.NewFromInt(int64(qty))).
				Add(cost.Mul(decimal.NewFromInt(int64(delta))))
			qty += delta
			received += delta
			avg = total.Div(decimal.NewFromInt(int64(qty)))
			continue
		}
		consumed += -delta
		if consumed > received {
			return 0, decimal.Zero, &inverr.AccountingInconsistencyError{
				ItemID:   e.ItemID,
				Consumed: consumed,
				Received: received,
				At:       e.OccurredAt,
			}
		}
		qty += delta
	}
	return qty, avg, nil
}

// onHand sums signed event quantities, flagging the same inconsistency the
// layered replays do.
func onHand(itemID uuid.UUID, events []model.InventoryEvent) (int, error) {
	received, consumed := 0, 0
	for i := range events {
		delta := events[i].SignedQuantity()
		if delta > 0 {
			received += delta
		} else {
			consumed += -delta
		}
		if consumed > received {
			return 0, &inverr.AccountingInconsistencyError{
				ItemID:   itemID,
				Consumed: consumed,
				Received: received,
				At:       events[i].OccurredAt,
			}
		}
	}
	return received - consumed, nil
}

// layerCost resolves the unit cost of a stock-increasing event. Receipts
// carry their cost; positive adjustments without one fall back to the item's
// last cost.
func layerCost(item *model.Item, e *model.InventoryEvent) decimal.Decimal {
	if e.UnitCost != nil {
		return *e.UnitCost
	}
	return item.LastCost
}

// CalculateCOGS derives period cost of goods sold from two valuation
// snapshots — the day before the period starts, and the period end — plus
// the value of receipts inside the period.
func (s *costLedgerService) CalculateCOGS(ctx context.Context, itemID uuid.UUID, method model.CostingMethod, periodStart, periodEnd time.Time) (*dto.COGSCalculation, error) {
	dayBefore := periodStart.AddDate(0, 0, -1)

	beginning, err := s.ValuateItem(ctx, itemID, method, &dayBefore)
	if err != nil {
		return nil, err
	}
	ending, err := s.ValuateItem(ctx, itemID, method, &periodEnd)
	if err != nil {
		return nil, err
	}

	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByItem(ctx, itemID, &periodEnd)
	if err != nil {
		return nil, err
	}

	purchases := decimal.Zero
	for i := range events {
		e := &events[i]
		if e.Type != model.EventReceive || e.OccurredAt.Before(periodStart) {
			continue
		}
		purchases = purchases.Add(layerCost(item, e).Mul(decimal.NewFromInt(int64(e.SignedQuantity()))))
	}

	return &dto.COGSCalculation{
		ItemID:             itemID,
		Method:             string(method),
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		BeginningInventory: beginning.TotalValue,
		Purchases:          purchases,
		EndingInventory:    ending.TotalValue,
		CostOfGoodsSold:    beginning.TotalValue.Add(purchases).Sub(ending.TotalValue),
	}, nil
}
