package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"lotledger/internal/config"
	"lotledger/internal/infra"
	"lotledger/internal/inverr"
	"lotledger/internal/model"
	"lotledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var (
	_ repository.ItemRepository   = (*stubItemRepo)(nil)
	_ repository.EventRepository  = (*stubEventRepo)(nil)
	_ repository.LotRepository    = (*stubLotRepo)(nil)
	_ repository.SerialRepository = (*stubSerialRepo)(nil)
	_ infra.Sequencer             = (*stubSequencer)(nil)
)

// ── In-memory repository stubs ───────────────────────────────────────────────
// The services open transactions through repo.DB(); returning nil puts runTx
// in unit-test mode, so every Tx method below receives a nil *gorm.DB.

type stubItemRepo struct {
	items map[uuid.UUID]*model.Item
}

func newStubItemRepo() *stubItemRepo {
	return &stubItemRepo{items: make(map[uuid.UUID]*model.Item)}
}

func (r *stubItemRepo) Create(_ context.Context, item *model.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.items[item.ID] = item
	return nil
}

func (r *stubItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, inverr.ErrItemNotFound
	}
	return item, nil
}

func (r *stubItemRepo) FindBySKU(_ context.Context, sku string) (*model.Item, error) {
	for _, item := range r.items {
		if item.SKU == sku {
			return item, nil
		}
	}
	return nil, inverr.ErrItemNotFound
}

func (r *stubItemRepo) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	return ids, nil
}

type stubEventRepo struct {
	events []model.InventoryEvent
}

func (r *stubEventRepo) Append(_ context.Context, e *model.InventoryEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	r.events = append(r.events, *e)
	return nil
}

func (r *stubEventRepo) ListByItem(_ context.Context, itemID uuid.UUID, until *time.Time) ([]model.InventoryEvent, error) {
	var result []model.InventoryEvent
	for _, e := range r.events {
		if e.ItemID != itemID {
			continue
		}
		if until != nil && e.OccurredAt.After(*until) {
			continue
		}
		result = append(result, e)
	}
	// Stable sort preserves insertion order for same-timestamp events,
	// matching the (occurred_at, created_at, id) ordering of the real repo.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

type stubLotRepo struct {
	lots    map[uuid.UUID]*model.Lot
	history []model.LotHistory
	nextSeq int64
	histSeq int64
}

func newStubLotRepo() *stubLotRepo {
	return &stubLotRepo{lots: make(map[uuid.UUID]*model.Lot)}
}

func (r *stubLotRepo) CreateTx(_ *gorm.DB, lot *model.Lot) error {
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	r.nextSeq++
	lot.Seq = r.nextSeq
	cp := *lot
	r.lots[lot.ID] = &cp
	return nil
}

func (r *stubLotRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Lot, error) {
	return r.find(id)
}

func (r *stubLotRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Lot, error) {
	return r.find(id)
}

func (r *stubLotRepo) find(id uuid.UUID) (*model.Lot, error) {
	lot, ok := r.lots[id]
	if !ok {
		return nil, inverr.ErrLotNotFound
	}
	cp := *lot
	return &cp, nil
}

func (r *stubLotRepo) FindByNumbers(_ context.Context, lotNumbers []string) ([]model.Lot, error) {
	var result []model.Lot
	for _, n := range lotNumbers {
		for _, lot := range r.lots {
			if lot.LotNumber == n {
				result = append(result, *lot)
			}
		}
	}
	sortBySeq(result)
	return result, nil
}

func (r *stubLotRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Lot, error) {
	var result []model.Lot
	for _, id := range ids {
		if lot, ok := r.lots[id]; ok {
			result = append(result, *lot)
		}
	}
	sortBySeq(result)
	return result, nil
}

func (r *stubLotRepo) ListAvailableByItem(_ context.Context, itemID uuid.UUID) ([]model.Lot, error) {
	var result []model.Lot
	for _, lot := range r.lots {
		if lot.ItemID == itemID && lot.Status == model.LotAvailable && lot.QtyAvailable > 0 {
			result = append(result, *lot)
		}
	}
	sortBySeq(result)
	return result, nil
}

func (r *stubLotRepo) ListExpirable(_ context.Context, now time.Time, limit int) ([]model.Lot, error) {
	var result []model.Lot
	for _, lot := range r.lots {
		if lot.Status == model.LotAvailable && lot.ExpirationDate != nil && lot.ExpirationDate.Before(now) {
			result = append(result, *lot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpirationDate.Before(*result[j].ExpirationDate)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *stubLotRepo) UpdateLotTx(_ *gorm.DB, lot *model.Lot) error {
	stored, ok := r.lots[lot.ID]
	if !ok {
		return inverr.ErrLotNotFound
	}
	if stored.Version != lot.Version {
		return inverr.ErrConflict
	}
	cp := *lot
	cp.Version++
	r.lots[lot.ID] = &cp
	lot.Version++
	return nil
}

func (r *stubLotRepo) AppendHistoryTx(_ *gorm.DB, h *model.LotHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	// Monotonic timestamps so ListHistory order matches the real repo.
	r.histSeq++
	h.CreatedAt = time.Unix(r.histSeq, 0)
	r.history = append(r.history, *h)
	return nil
}

func (r *stubLotRepo) ListHistory(_ context.Context, lotID uuid.UUID) ([]model.LotHistory, error) {
	var result []model.LotHistory
	for _, h := range r.history {
		if h.LotID == lotID {
			result = append(result, h)
		}
	}
	return result, nil
}

func (r *stubLotRepo) DB() *gorm.DB { return nil }

func sortBySeq(lots []model.Lot) {
	sort.Slice(lots, func(i, j int) bool { return lots[i].Seq < lots[j].Seq })
}

type stubSerialRepo struct {
	serials map[uuid.UUID]*model.SerialNumber
	nextSeq int64
}

func newStubSerialRepo() *stubSerialRepo {
	return &stubSerialRepo{serials: make(map[uuid.UUID]*model.SerialNumber)}
}

func (r *stubSerialRepo) CreateTx(_ *gorm.DB, s *model.SerialNumber) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.nextSeq++
	s.Seq = r.nextSeq
	cp := *s
	r.serials[s.ID] = &cp
	return nil
}

func (r *stubSerialRepo) FindByID(_ context.Context, id uuid.UUID) (*model.SerialNumber, error) {
	s, ok := r.serials[id]
	if !ok {
		return nil, inverr.ErrSerialNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubSerialRepo) FindBySerial(_ context.Context, serial string) (*model.SerialNumber, error) {
	for _, s := range r.serials {
		if s.Serial == serial {
			cp := *s
			return &cp, nil
		}
	}
	return nil, inverr.ErrSerialNotFound
}

func (r *stubSerialRepo) FindBySerials(_ context.Context, serials []string) ([]model.SerialNumber, error) {
	var result []model.SerialNumber
	for _, want := range serials {
		for _, s := range r.serials {
			if s.Serial == want {
				result = append(result, *s)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result, nil
}

func (r *stubSerialRepo) ListAvailableByItem(_ context.Context, itemID uuid.UUID) ([]model.SerialNumber, error) {
	var result []model.SerialNumber
	for _, s := range r.serials {
		if s.ItemID == itemID && s.Status == model.SerialAvailable {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result, nil
}

func (r *stubSerialRepo) ListByLotIDs(_ context.Context, lotIDs []uuid.UUID) ([]model.SerialNumber, error) {
	var result []model.SerialNumber
	for _, s := range r.serials {
		for _, lotID := range lotIDs {
			if s.LotID != nil && *s.LotID == lotID {
				result = append(result, *s)
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result, nil
}

func (r *stubSerialRepo) UpdateSerialTx(_ *gorm.DB, s *model.SerialNumber) error {
	stored, ok := r.serials[s.ID]
	if !ok {
		return inverr.ErrSerialNotFound
	}
	if stored.Version != s.Version {
		return inverr.ErrConflict
	}
	cp := *s
	cp.Version++
	r.serials[s.ID] = &cp
	s.Version++
	return nil
}

func (r *stubSerialRepo) DB() *gorm.DB { return nil }

// stubSequencer is an in-process counter standing in for the Redis sequencer.
type stubSequencer struct {
	counters map[string]int64
}

func newStubSequencer() *stubSequencer {
	return &stubSequencer{counters: make(map[string]int64)}
}

func (s *stubSequencer) Next(_ context.Context, key string) (int64, error) {
	s.counters[key]++
	return s.counters[key], nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func assertDec(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %v, got %s", want, got)
}

func seedEvent(repo *stubEventRepo, itemID uuid.UUID, typ model.EventType, qty int, unitCost *decimal.Decimal, at time.Time) {
	repo.events = append(repo.events, model.InventoryEvent{
		ID:         uuid.New(),
		ItemID:     itemID,
		Type:       typ,
		Quantity:   qty,
		UnitCost:   unitCost,
		OccurredAt: at,
	})
}

func testConfig() *config.Config {
	return &config.Config{
		TenantID:             "tenant-a",
		LotNumberPrefix:      "LOT",
		SerialNumberPrefix:   "SN",
		ExpireSweepChunkSize: 50,
	}
}

func newTestRegistry(lots *stubLotRepo, serials *stubSerialRepo, cfg *config.Config) LotRegistryService {
	if cfg == nil {
		cfg = testConfig()
	}
	return NewLotRegistryService(lots, serials, newStubSequencer(), cfg)
}

func seedItem(repo *stubItemRepo, sku string, standardCost, lastCost float64) *model.Item {
	item := &model.Item{
		ID:            uuid.New(),
		SKU:           sku,
		Name:          sku,
		UnitOfMeasure: "EA",
		StandardCost:  dec(standardCost),
		LastCost:      dec(lastCost),
	}
	repo.items[item.ID] = item
	return item
}

func seedLot(repo *stubLotRepo, itemID uuid.UUID, lotNumber string, qty int, prod time.Time, exp *time.Time) *model.Lot {
	lot := &model.Lot{
		ItemID:         itemID,
		LotNumber:      lotNumber,
		QtyProduced:    qty,
		QtyAvailable:   qty,
		Status:         model.LotAvailable,
		QCStatus:       model.QCPending,
		ProductionDate: prod,
		ExpirationDate: exp,
	}
	_ = repo.CreateTx(nil, lot)
	return lot
}

func seedSerial(repo *stubSerialRepo, itemID uuid.UUID, serial string, lotID *uuid.UUID, status model.SerialStatus, shipment *model.Shipment) *model.SerialNumber {
	sn := &model.SerialNumber{
		ItemID: itemID,
		Serial: serial,
		LotID:  lotID,
		Status: status,
	}
	if shipment != nil {
		sn.ShipmentID = &shipment.ID
		sn.Shipment = shipment
	}
	_ = repo.CreateTx(nil, sn)
	return sn
}
