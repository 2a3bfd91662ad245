package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lotledger/internal/inverr"
	"lotledger/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseDay = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return baseDay.AddDate(0, 0, n) }

func TestValuateItemFIFOSpillsAcrossLayers(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 0, 0)

	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0))
	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(7), day(1))
	seedEvent(events, item.ID, model.EventIssue, 15, nil, day(2))

	svc := NewCostLedgerService(items, events)
	result, err := svc.ValuateItem(context.Background(), item.ID, model.CostingFIFO, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Quantity)
	assertDec(t, 35, result.TotalValue)
	assertDec(t, 7, result.AverageCost)

	// The first layer is fully consumed and spills 5 into the second.
	require.Len(t, result.Layers, 1)
	assert.Equal(t, 5, result.Layers[0].Remaining)
	assertDec(t, 7, result.Layers[0].UnitCost)
}

func TestValuateItemLIFOConsumesNewestFirst(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 0, 0)

	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0))
	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(7), day(1))
	seedEvent(events, item.ID, model.EventIssue, 15, nil, day(2))

	svc := NewCostLedgerService(items, events)
	result, err := svc.ValuateItem(context.Background(), item.ID, model.CostingLIFO, nil)
	require.NoError(t, err)

	// Newest layer (10 @ 7) goes first; 5 spill into the oldest (@ 5).
	assert.Equal(t, 5, result.Quantity)
	assertDec(t, 25, result.TotalValue)
	require.Len(t, result.Layers, 1)
	assertDec(t, 5, result.Layers[0].UnitCost)
}

func TestValuateItemAsOfIgnoresLaterEvents(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 0, 0)

	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0))
	seedEvent(events, item.ID, model.EventIssue, 8, nil, day(5))

	svc := NewCostLedgerService(items, events)
	asOf := day(1)
	result, err := svc.ValuateItem(context.Background(), item.ID, model.CostingFIFO, &asOf)
	require.NoError(t, err)

	assert.Equal(t, 10, result.Quantity)
	assertDec(t, 50, result.TotalValue)
	assert.Equal(t, asOf, result.AsOf)
}

func TestValuateItemWACRunningAverage(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 0, 0)

	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0))
	seedEvent(events, item.ID, model.EventIssue, 4, nil, day(1))
	seedEvent(events, item.ID, model.EventReceive, 6, decPtr(10), day(2))

	svc := NewCostLedgerService(items, events)
	result, err := svc.ValuateItem(context.Background(), item.ID, model.CostingWAC, nil)
	require.NoError(t, err)

	// 10 @ 5, issue 4 (avg untouched), then blend 6 @ 10:
	// (6*5 + 6*10) / 12 = 7.5
	assert.Equal(t, 12, result.Quantity)
	assertDec(t, 7.5, result.AverageCost)
	assertDec(t, 90, result.TotalValue)
}

func TestValuateItemWACSameDayOrderInvariant(t *testing.T) {
	run := func(swap bool) (int, string) {
		items := newStubItemRepo()
		events := &stubEventRepo{}
		item := seedItem(items, "SKU-1", 0, 0)

		a := func() { seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0)) }
		b := func() { seedEvent(events, item.ID, model.EventReceive, 20, decPtr(8), day(0)) }
		if swap {
			b()
			a()
		} else {
			a()
			b()
		}

		svc := NewCostLedgerService(items, events)
		result, err := svc.ValuateItem(context.Background(), item.ID, model.CostingWAC, nil)
		require.NoError(t, err)
		return result.Quantity, result.AverageCost.String()
	}

	qty1, avg1 := run(false)
	qty2, avg2 := run(true)
	assert.Equal(t, qty1, qty2)
	assert.Equal(t, avg1, avg2)
	assert.Equal(t, "7", avg1) // (10*5 + 20*8) / 30
}

func TestValuateItemStandardUsesCatalogCost(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 9, 0)

	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0))
	seedEvent(events, item.ID, model.EventIssue, 3, nil, day(1))

	svc := NewCostLedgerService(items, events)
	result, err := svc.ValuateItem(context.Background(), item.ID, model.CostingStandard, nil)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Quantity)
	assertDec(t, 63, result.TotalValue)
	assertDec(t, 9, result.AverageCost)
}

func TestValuateItemPositiveAdjustmentFallsBackToLastCost(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 0, 6)

	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0))
	seedEvent(events, item.ID, model.EventAdjust, 5, nil, day(1))

	svc := NewCostLedgerService(items, events)
	result, err := svc.ValuateItem(context.Background(), item.ID, model.CostingFIFO, nil)
	require.NoError(t, err)

	assert.Equal(t, 15, result.Quantity)
	assertDec(t, 80, result.TotalValue) // 10*5 + 5*6
}

func TestValuateItemAccountingInconsistency(t *testing.T) {
	for _, method := range []model.CostingMethod{model.CostingFIFO, model.CostingLIFO, model.CostingWAC, model.CostingStandard} {
		t.Run(string(method), func(t *testing.T) {
			items := newStubItemRepo()
			events := &stubEventRepo{}
			item := seedItem(items, "SKU-1", 1, 1)

			seedEvent(events, item.ID, model.EventReceive, 5, decPtr(5), day(0))
			seedEvent(events, item.ID, model.EventIssue, 10, nil, day(1))

			svc := NewCostLedgerService(items, events)
			_, err := svc.ValuateItem(context.Background(), item.ID, method, nil)

			var inconsistency *inverr.AccountingInconsistencyError
			require.ErrorAs(t, err, &inconsistency)
			assert.Equal(t, 10, inconsistency.Consumed)
			assert.Equal(t, 5, inconsistency.Received)
			assert.Equal(t, item.ID, inconsistency.ItemID)
		})
	}
}

func TestValuateItemUnknownItem(t *testing.T) {
	svc := NewCostLedgerService(newStubItemRepo(), &stubEventRepo{})
	_, err := svc.ValuateItem(context.Background(), uuid.New(), model.CostingFIFO, nil)
	assert.True(t, errors.Is(err, inverr.ErrItemNotFound))
}

func TestValuateItemUnsupportedMethod(t *testing.T) {
	items := newStubItemRepo()
	item := seedItem(items, "SKU-1", 0, 0)
	svc := NewCostLedgerService(items, &stubEventRepo{})
	_, err := svc.ValuateItem(context.Background(), item.ID, model.CostingMethod("AVCO"), nil)
	assert.Error(t, err)
}

// Open-layer remainders must always sum to the signed event total, whichever
// direction the layers are walked.
func TestLayerRemaindersMatchSignedSum(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 0, 4)

	seedEvent(events, item.ID, model.EventReceive, 12, decPtr(3), day(0))
	seedEvent(events, item.ID, model.EventIssue, 5, nil, day(1))
	seedEvent(events, item.ID, model.EventReceive, 8, decPtr(4), day(2))
	seedEvent(events, item.ID, model.EventScrap, 2, nil, day(3))
	seedEvent(events, item.ID, model.EventAdjust, -3, nil, day(4))
	seedEvent(events, item.ID, model.EventReceive, 6, decPtr(5), day(5))

	want := 12 - 5 + 8 - 2 - 3 + 6

	svc := NewCostLedgerService(items, events)
	for _, method := range []model.CostingMethod{model.CostingFIFO, model.CostingLIFO} {
		result, err := svc.ValuateItem(context.Background(), item.ID, method, nil)
		require.NoError(t, err)
		assert.Equal(t, want, result.Quantity, method)

		sum := 0
		for _, l := range result.Layers {
			sum += l.Remaining
		}
		assert.Equal(t, want, sum, method)
	}
}

func TestCalculateCOGS(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 0, 0)

	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0))
	seedEvent(events, item.ID, model.EventIssue, 5, nil, day(1))
	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(7), day(12))
	seedEvent(events, item.ID, model.EventIssue, 5, nil, day(15))

	svc := NewCostLedgerService(items, events)
	cogs, err := svc.CalculateCOGS(context.Background(), item.ID, model.CostingFIFO, day(10), day(20))
	require.NoError(t, err)

	// Beginning (day 9): 5 left @ 5 = 25. Period receipt: 10 @ 7 = 70.
	// Ending (day 20): FIFO consumed the old 5, leaving 10 @ 7 = 70.
	assertDec(t, 25, cogs.BeginningInventory)
	assertDec(t, 70, cogs.Purchases)
	assertDec(t, 70, cogs.EndingInventory)
	assertDec(t, 25, cogs.CostOfGoodsSold)
}

func TestCalculateCOGSEmptyPeriod(t *testing.T) {
	items := newStubItemRepo()
	events := &stubEventRepo{}
	item := seedItem(items, "SKU-1", 0, 0)

	seedEvent(events, item.ID, model.EventReceive, 10, decPtr(5), day(0))

	svc := NewCostLedgerService(items, events)
	cogs, err := svc.CalculateCOGS(context.Background(), item.ID, model.CostingFIFO, day(30), day(60))
	require.NoError(t, err)

	// Nothing moved in the period: beginning == ending, zero COGS.
	assertDec(t, 50, cogs.BeginningInventory)
	assertDec(t, 0, cogs.Purchases)
	assertDec(t, 50, cogs.EndingInventory)
	assertDec(t, 0, cogs.CostOfGoodsSold)
}
