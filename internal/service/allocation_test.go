package service

import (
	"context"
	"testing"
	"time"

	"lotledger/internal/dto"
	"lotledger/internal/inverr"
	"lotledger/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(lots *stubLotRepo, serials *stubSerialRepo) AllocationEngine {
	return NewAllocationEngine(lots, serials, newTestRegistry(lots, serials, nil))
}

func inDays(n int) *time.Time {
	t := time.Now().AddDate(0, 0, n)
	return &t
}

func TestSelectLotsFEFOPicksEarliestExpirationFirst(t *testing.T) {
	lots := newStubLotRepo()
	serials := newStubSerialRepo()
	item := uuid.New()

	// L1 created first but expires later; FEFO must drain L2 before it.
	l1 := seedLot(lots, item, "L-1", 100, time.Now().AddDate(0, 0, -30), inDays(120))
	l2 := seedLot(lots, item, "L-2", 50, time.Now().AddDate(0, 0, -15), inDays(60))

	engine := newTestEngine(lots, serials)
	proposal, err := engine.SelectLots(context.Background(), item, 120, dto.StrategyFEFO, 0, nil)
	require.NoError(t, err)

	require.Len(t, proposal.Lines, 2)
	assert.Equal(t, l2.ID, proposal.Lines[0].LotID)
	assert.Equal(t, 50, proposal.Lines[0].QtyAllocated)
	assert.Equal(t, l1.ID, proposal.Lines[1].LotID)
	assert.Equal(t, 70, proposal.Lines[1].QtyAllocated)
	assert.Equal(t, 120, proposal.TotalAllocated())
}

func TestSelectLotsFEFOUndatedLotsLast(t *testing.T) {
	lots := newStubLotRepo()
	item := uuid.New()

	undated := seedLot(lots, item, "L-1", 100, time.Now(), nil)
	dated := seedLot(lots, item, "L-2", 10, time.Now(), inDays(90))

	engine := newTestEngine(lots, newStubSerialRepo())
	proposal, err := engine.SelectLots(context.Background(), item, 20, dto.StrategyFEFO, 0, nil)
	require.NoError(t, err)

	require.Len(t, proposal.Lines, 2)
	assert.Equal(t, dated.ID, proposal.Lines[0].LotID)
	assert.Equal(t, undated.ID, proposal.Lines[1].LotID)
}

func TestSelectLotsFIFOAndLIFO(t *testing.T) {
	lots := newStubLotRepo()
	item := uuid.New()

	older := seedLot(lots, item, "L-1", 30, time.Now().AddDate(0, 0, -20), nil)
	newer := seedLot(lots, item, "L-2", 30, time.Now().AddDate(0, 0, -5), nil)

	engine := newTestEngine(lots, newStubSerialRepo())

	fifo, err := engine.SelectLots(context.Background(), item, 10, dto.StrategyFIFO, 0, nil)
	require.NoError(t, err)
	require.Len(t, fifo.Lines, 1)
	assert.Equal(t, older.ID, fifo.Lines[0].LotID)

	lifo, err := engine.SelectLots(context.Background(), item, 10, dto.StrategyLIFO, 0, nil)
	require.NoError(t, err)
	require.Len(t, lifo.Lines, 1)
	assert.Equal(t, newer.ID, lifo.Lines[0].LotID)
}

func TestSelectLotsTieBreaksOnCreationOrder(t *testing.T) {
	lots := newStubLotRepo()
	item := uuid.New()
	prod := time.Now().AddDate(0, 0, -10)

	first := seedLot(lots, item, "L-1", 10, prod, nil)
	seedLot(lots, item, "L-2", 10, prod, nil)

	engine := newTestEngine(lots, newStubSerialRepo())
	proposal, err := engine.SelectLots(context.Background(), item, 5, dto.StrategyFIFO, 0, nil)
	require.NoError(t, err)
	require.Len(t, proposal.Lines, 1)
	assert.Equal(t, first.ID, proposal.Lines[0].LotID)
}

func TestSelectLotsAllOrNothing(t *testing.T) {
	lots := newStubLotRepo()
	item := uuid.New()
	seedLot(lots, item, "L-1", 30, time.Now(), nil)

	engine := newTestEngine(lots, newStubSerialRepo())
	_, err := engine.SelectLots(context.Background(), item, 50, dto.StrategyFIFO, 0, nil)

	var insufficient *inverr.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 50, insufficient.Requested)
	assert.Equal(t, 30, insufficient.Available)
	assert.Equal(t, 20, insufficient.Shortfall())
}

func TestSelectLotsExpiryHorizonExcludesNearExpired(t *testing.T) {
	lots := newStubLotRepo()
	item := uuid.New()

	seedLot(lots, item, "L-1", 100, time.Now(), inDays(3)) // expires inside horizon
	safe := seedLot(lots, item, "L-2", 100, time.Now(), inDays(30))

	engine := newTestEngine(lots, newStubSerialRepo())
	proposal, err := engine.SelectLots(context.Background(), item, 50, dto.StrategyFEFO, 7, nil)
	require.NoError(t, err)

	require.Len(t, proposal.Lines, 1)
	assert.Equal(t, safe.ID, proposal.Lines[0].LotID)
}

func TestSelectLotsManualUsesExactLots(t *testing.T) {
	lots := newStubLotRepo()
	item := uuid.New()

	seedLot(lots, item, "L-1", 100, time.Now(), nil)
	chosen := seedLot(lots, item, "L-2", 100, time.Now(), nil)

	engine := newTestEngine(lots, newStubSerialRepo())
	proposal, err := engine.SelectLots(context.Background(), item, 40, dto.StrategyManual, 0, []uuid.UUID{chosen.ID})
	require.NoError(t, err)

	require.Len(t, proposal.Lines, 1)
	assert.Equal(t, chosen.ID, proposal.Lines[0].LotID)
}

func TestCommitProposalConsumesAllLines(t *testing.T) {
	lots := newStubLotRepo()
	item := uuid.New()

	l1 := seedLot(lots, item, "L-1", 50, time.Now().AddDate(0, 0, -20), nil)
	l2 := seedLot(lots, item, "L-2", 50, time.Now().AddDate(0, 0, -5), nil)

	engine := newTestEngine(lots, newStubSerialRepo())
	proposal, err := engine.SelectLots(context.Background(), item, 80, dto.StrategyFIFO, 0, nil)
	require.NoError(t, err)

	require.NoError(t, engine.CommitProposal(context.Background(), proposal, "tester"))

	first, _ := lots.FindByID(context.Background(), l1.ID)
	assert.Equal(t, model.LotConsumed, first.Status)
	assert.Equal(t, 0, first.QtyAvailable)

	second, _ := lots.FindByID(context.Background(), l2.ID)
	assert.Equal(t, 20, second.QtyAvailable)
	assert.Equal(t, 30, second.QtyConsumed)
	assert.True(t, second.Conserved())
}

func TestCommitProposalFailsOnStaleAvailability(t *testing.T) {
	lots := newStubLotRepo()
	item := uuid.New()
	lot := seedLot(lots, item, "L-1", 50, time.Now(), nil)

	engine := newTestEngine(lots, newStubSerialRepo())
	proposal, err := engine.SelectLots(context.Background(), item, 50, dto.StrategyFIFO, 0, nil)
	require.NoError(t, err)

	// A concurrent consumer drains the lot between select and commit.
	registry := newTestRegistry(lots, newStubSerialRepo(), nil)
	_, err = registry.ConsumeLot(context.Background(), lot.ID, 40, "rival", "")
	require.NoError(t, err)

	err = engine.CommitProposal(context.Background(), proposal, "tester")
	var insufficient *inverr.InsufficientQuantityError
	assert.ErrorAs(t, err, &insufficient)
}

// ── Serials ──────────────────────────────────────────────────────────────────

func TestSelectSerialsShortfall(t *testing.T) {
	serials := newStubSerialRepo()
	item := uuid.New()
	seedSerial(serials, item, "S-1", nil, model.SerialAvailable, nil)
	seedSerial(serials, item, "S-2", nil, model.SerialShipped, nil)

	engine := newTestEngine(newStubLotRepo(), serials)
	_, err := engine.SelectSerials(context.Background(), item, 2, nil, nil)

	var insufficient *inverr.InsufficientSerialsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Found)
	assert.Equal(t, 2, insufficient.Needed)
}

func TestSelectSerialsPrefersLot(t *testing.T) {
	serials := newStubSerialRepo()
	item := uuid.New()
	lotA, lotB := uuid.New(), uuid.New()

	seedSerial(serials, item, "S-1", &lotA, model.SerialAvailable, nil)
	seedSerial(serials, item, "S-2", &lotB, model.SerialAvailable, nil)
	seedSerial(serials, item, "S-3", &lotB, model.SerialAvailable, nil)

	engine := newTestEngine(newStubLotRepo(), serials)
	proposal, err := engine.SelectSerials(context.Background(), item, 2, nil, &lotB)
	require.NoError(t, err)

	require.Len(t, proposal.Serials, 2)
	assert.Equal(t, "S-2", proposal.Serials[0].Serial)
	assert.Equal(t, "S-3", proposal.Serials[1].Serial)
}

func TestSelectSerialsSpecificFiltersIneligible(t *testing.T) {
	serials := newStubSerialRepo()
	item := uuid.New()
	seedSerial(serials, item, "S-1", nil, model.SerialAvailable, nil)
	seedSerial(serials, item, "S-2", nil, model.SerialAllocated, nil)
	seedSerial(serials, uuid.New(), "S-3", nil, model.SerialAvailable, nil) // other item

	engine := newTestEngine(newStubLotRepo(), serials)

	proposal, err := engine.SelectSerials(context.Background(), item, 1, []string{"S-1", "S-2", "S-3"}, nil)
	require.NoError(t, err)
	require.Len(t, proposal.Serials, 1)
	assert.Equal(t, "S-1", proposal.Serials[0].Serial)

	_, err = engine.SelectSerials(context.Background(), item, 2, []string{"S-1", "S-2", "S-3"}, nil)
	var insufficient *inverr.InsufficientSerialsError
	assert.ErrorAs(t, err, &insufficient)
}

func TestCommitSerialProposalAllocates(t *testing.T) {
	serials := newStubSerialRepo()
	item := uuid.New()
	seedSerial(serials, item, "S-1", nil, model.SerialAvailable, nil)
	seedSerial(serials, item, "S-2", nil, model.SerialAvailable, nil)

	engine := newTestEngine(newStubLotRepo(), serials)
	proposal, err := engine.SelectSerials(context.Background(), item, 2, nil, nil)
	require.NoError(t, err)

	require.NoError(t, engine.CommitSerialProposal(context.Background(), proposal))

	for _, line := range proposal.Serials {
		sn, err := serials.FindByID(context.Background(), line.SerialID)
		require.NoError(t, err)
		assert.Equal(t, model.SerialAllocated, sn.Status)
	}
}
