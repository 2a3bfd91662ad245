package service

import (
	"context"
	"fmt"
	"time"

	"lotledger/internal/config"
	"lotledger/internal/infra"
	"lotledger/internal/inverr"
	"lotledger/internal/model"
	"lotledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateLotParams carries everything needed to open a new lot.
type CreateLotParams struct {
	ItemID            uuid.UUID
	LotNumber         string // empty = generate
	QtyProduced       int
	ProductionDate    time.Time
	ExpirationDate    *time.Time
	SupplierID        *uuid.UUID
	ProductionOrderID *uuid.UUID
	Actor             string
}

// LotRegistryService owns lot and serial records and their lifecycle state
// machines. Every quantity or status mutation appends a history row inside
// the same transaction and re-checks quantity conservation before commit.
type LotRegistryService interface {
	CreateLot(ctx context.Context, p CreateLotParams) (*model.Lot, error)
	GetLot(ctx context.Context, id uuid.UUID) (*model.Lot, error)
	ConsumeLot(ctx context.Context, lotID uuid.UUID, qty int, actor, note string) (*model.Lot, error)
	// ConsumeLotTx is the in-transaction variant used by the allocation
	// commit phase so multiple lot consumptions share one atomic scope.
	ConsumeLotTx(tx *gorm.DB, lotID uuid.UUID, qty int, actor, note string) (*model.Lot, error)
	HoldLot(ctx context.Context, lotID uuid.UUID, quarantine bool, holdReasonID *uuid.UUID, actor, note string) (*model.Lot, error)
	ReleaseLot(ctx context.Context, lotID uuid.UUID, actor, note string) (*model.Lot, error)
	// ExpireLots sweeps every AVAILABLE lot whose expiration date has passed
	// into EXPIRED. The sweep is chunked; each chunk commits in its own
	// transaction, which is the atomicity boundary. Idempotent: expired lots
	// leave the candidate set, so re-running appends no duplicate history.
	ExpireLots(ctx context.Context, actor string) ([]uuid.UUID, error)

	GenerateLotNumber(ctx context.Context, at time.Time) (string, error)
	GenerateSerialNumber(ctx context.Context, at time.Time) (string, error)

	CreateSerial(ctx context.Context, itemID uuid.UUID, lotID *uuid.UUID, serial string) (*model.SerialNumber, error)
	AllocateSerialTx(tx *gorm.DB, serialID uuid.UUID) (*model.SerialNumber, error)
	ShipSerial(ctx context.Context, serial string, shipmentID uuid.UUID) (*model.SerialNumber, error)
	ConsumeSerial(ctx context.Context, serial string) (*model.SerialNumber, error)
	ScrapSerial(ctx context.Context, serial string) (*model.SerialNumber, error)
	// ReturnSerial records a warranty return. When the re-entry policy is
	// enabled the unit goes straight back to AVAILABLE (the sole backward
	// edge in the serial machine); otherwise it parks in WARRANTY_RETURN.
	ReturnSerial(ctx context.Context, serial string) (*model.SerialNumber, error)
}

type lotRegistryService struct {
	lots    repository.LotRepository
	serials repository.SerialRepository
	seq     infra.Sequencer
	cfg     *config.Config
}

func NewLotRegistryService(lots repository.LotRepository, serials repository.SerialRepository, seq infra.Sequencer, cfg *config.Config) LotRegistryService {
	return &lotRegistryService{lots: lots, serials: serials, seq: seq, cfg: cfg}
}

// ── Lots ─────────────────────────────────────────────────────────────────────

func (s *lotRegistryService) CreateLot(ctx context.Context, p CreateLotParams) (*model.Lot, error) {
	if p.QtyProduced <= 0 {
		return nil, fmt.Errorf("qty_produced must be positive, got %d", p.QtyProduced)
	}

	lotNumber := p.LotNumber
	if lotNumber == "" {
		var err error
		lotNumber, err = s.GenerateLotNumber(ctx, p.ProductionDate)
		if err != nil {
			return nil, err
		}
	}

	lot := &model.Lot{
		ItemID:            p.ItemID,
		LotNumber:         lotNumber,
		QtyProduced:       p.QtyProduced,
		QtyAvailable:      p.QtyProduced,
		Status:            model.LotAvailable,
		QCStatus:          model.QCPending,
		ProductionDate:    p.ProductionDate,
		ExpirationDate:    p.ExpirationDate,
		SupplierID:        p.SupplierID,
		ProductionOrderID: p.ProductionOrderID,
	}

	err := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
		if err := s.lots.CreateTx(tx, lot); err != nil {
			return err
		}
		return s.lots.AppendHistoryTx(tx, &model.LotHistory{
			LotID:       lot.ID,
			EventType:   model.LotEventCreated,
			QtyBefore:   0,
			QtyAfter:    lot.QtyAvailable,
			Delta:       lot.QtyAvailable,
			StatusAfter: model.LotAvailable,
			Actor:       p.Actor,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("lot_number", lot.LotNumber).Int("qty", lot.QtyProduced).Msg("lot created")
	return lot, nil
}

func (s *lotRegistryService) GetLot(ctx context.Context, id uuid.UUID) (*model.Lot, error) {
	return s.lots.FindByID(ctx, id)
}

func (s *lotRegistryService) ConsumeLot(ctx context.Context, lotID uuid.UUID, qty int, actor, note string) (*model.Lot, error) {
	var lot *model.Lot
	err := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
		var err error
		lot, err = s.ConsumeLotTx(tx, lotID, qty, actor, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (s *lotRegistryService) ConsumeLotTx(tx *gorm.DB, lotID uuid.UUID, qty int, actor, note string) (*model.Lot, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("consume quantity must be positive, got %d", qty)
	}

	// Re-read inside the transaction: the select phase may have seen stale
	// availability, and the version check on update is the final arbiter.
	lot, err := s.lots.FindByIDTx(tx, lotID)
	if err != nil {
		return nil, err
	}
	if lot.Status != model.LotAvailable {
		return nil, &inverr.InvalidStateTransitionError{
			Entity: "lot", ID: lot.ID, From: string(lot.Status), To: string(model.LotConsumed),
		}
	}
	if qty > lot.QtyAvailable {
		return nil, &inverr.InsufficientQuantityError{LotID: lot.ID, Requested: qty, Available: lot.QtyAvailable}
	}

	before := lot.QtyAvailable
	statusBefore := lot.Status
	lot.QtyAvailable -= qty
	lot.QtyConsumed += qty
	if lot.QtyAvailable == 0 {
		lot.Status = model.LotConsumed
	}
	if !lot.Conserved() {
		return nil, fmt.Errorf("lot %s quantity conservation violated", lot.LotNumber)
	}

	if err := s.lots.UpdateLotTx(tx, lot); err != nil {
		return nil, err
	}
	if err := s.lots.AppendHistoryTx(tx, &model.LotHistory{
		LotID:        lot.ID,
		EventType:    model.LotEventConsumed,
		QtyBefore:    before,
		QtyAfter:     lot.QtyAvailable,
		Delta:        -qty,
		StatusBefore: statusBefore,
		StatusAfter:  lot.Status,
		Actor:        actor,
		Note:         note,
	}); err != nil {
		return nil, err
	}
	return lot, nil
}

func (s *lotRegistryService) HoldLot(ctx context.Context, lotID uuid.UUID, quarantine bool, holdReasonID *uuid.UUID, actor, note string) (*model.Lot, error) {
	target := model.LotHold
	eventType := model.LotEventHeld
	if quarantine {
		target = model.LotQuarantine
	}
	return s.transitionLot(ctx, lotID, target, eventType, actor, note, func(lot *model.Lot) {
		lot.HoldReasonID = holdReasonID
	})
}

func (s *lotRegistryService) ReleaseLot(ctx context.Context, lotID uuid.UUID, actor, note string) (*model.Lot, error) {
	return s.transitionLot(ctx, lotID, model.LotAvailable, model.LotEventReleased, actor, note, func(lot *model.Lot) {
		lot.HoldReasonID = nil
	})
}

// transitionLot performs a pure status transition (no quantity change),
// validating the edge against the lot state machine.
func (s *lotRegistryService) transitionLot(ctx context.Context, lotID uuid.UUID, target model.LotStatus, eventType, actor, note string, mutate func(*model.Lot)) (*model.Lot, error) {
	var lot *model.Lot
	err := runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
		var err error
		lot, err = s.lots.FindByIDTx(tx, lotID)
		if err != nil {
			return err
		}
		if !lot.Status.CanTransition(target) {
			return &inverr.InvalidStateTransitionError{
				Entity: "lot", ID: lot.ID, From: string(lot.Status), To: string(target),
			}
		}
		statusBefore := lot.Status
		lot.Status = target
		if mutate != nil {
			mutate(lot)
		}
		if err := s.lots.UpdateLotTx(tx, lot); err != nil {
			return err
		}
		return s.lots.AppendHistoryTx(tx, &model.LotHistory{
			LotID:        lot.ID,
			EventType:    eventType,
			QtyBefore:    lot.QtyAvailable,
			QtyAfter:     lot.QtyAvailable,
			StatusBefore: statusBefore,
			StatusAfter:  target,
			Actor:        actor,
			Note:         note,
		})
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (s *lotRegistryService) ExpireLots(ctx context.Context, actor string) ([]uuid.UUID, error) {
	chunkSize := s.cfg.ExpireSweepChunkSize
	if chunkSize <= 0 {
		chunkSize = 200
	}
	now := time.Now()

	var expired []uuid.UUID
	for {
		chunk, err := s.lots.ListExpirable(ctx, now, chunkSize)
		if err != nil {
			return expired, err
		}
		if len(chunk) == 0 {
			return expired, nil
		}

		// One transaction per chunk: the whole chunk expires or none of it.
		err = runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
			for i := range chunk {
				lot, err := s.lots.FindByIDTx(tx, chunk[i].ID)
				if err != nil {
					return err
				}
				// A lot consumed or held between the candidate query and
				// this transaction is no longer expirable — skip, don't fail.
				if lot.Status != model.LotAvailable || !lot.ExpiredAsOf(now) {
					continue
				}
				statusBefore := lot.Status
				lot.Status = model.LotExpired
				if err := s.lots.UpdateLotTx(tx, lot); err != nil {
					return err
				}
				if err := s.lots.AppendHistoryTx(tx, &model.LotHistory{
					LotID:        lot.ID,
					EventType:    model.LotEventExpired,
					QtyBefore:    lot.QtyAvailable,
					QtyAfter:     lot.QtyAvailable,
					StatusBefore: statusBefore,
					StatusAfter:  model.LotExpired,
					Actor:        actor,
				}); err != nil {
					return err
				}
				expired = append(expired, lot.ID)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(chunk) < chunkSize {
			return expired, nil
		}
	}
}

// ── Numbering ────────────────────────────────────────────────────────────────

// GenerateLotNumber produces {prefix}-{YYYYMMDD}-{seq}. The sequence is an
// atomic counter per tenant+prefix+day, so concurrent creation cannot
// produce duplicates; the unique index on lot_number is the backstop.
func (s *lotRegistryService) GenerateLotNumber(ctx context.Context, at time.Time) (string, error) {
	return s.nextNumber(ctx, s.cfg.LotNumberPrefix, at)
}

func (s *lotRegistryService) GenerateSerialNumber(ctx context.Context, at time.Time) (string, error) {
	return s.nextNumber(ctx, s.cfg.SerialNumberPrefix, at)
}

func (s *lotRegistryService) nextNumber(ctx context.Context, prefix string, at time.Time) (string, error) {
	day := at.Format("20060102")
	n, err := s.seq.Next(ctx, fmt.Sprintf("%s:%s:%s", s.cfg.TenantID, prefix, day))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day, n), nil
}

// ── Serials ──────────────────────────────────────────────────────────────────

func (s *lotRegistryService) CreateSerial(ctx context.Context, itemID uuid.UUID, lotID *uuid.UUID, serial string) (*model.SerialNumber, error) {
	if serial == "" {
		var err error
		serial, err = s.GenerateSerialNumber(ctx, time.Now())
		if err != nil {
			return nil, err
		}
	}
	sn := &model.SerialNumber{
		ItemID: itemID,
		Serial: serial,
		LotID:  lotID,
		Status: model.SerialAvailable,
	}
	err := runTx(ctx, s.serials.DB(), func(tx *gorm.DB) error {
		return s.serials.CreateTx(tx, sn)
	})
	if err != nil {
		return nil, err
	}
	return sn, nil
}

func (s *lotRegistryService) AllocateSerialTx(tx *gorm.DB, serialID uuid.UUID) (*model.SerialNumber, error) {
	sn, err := s.serials.FindByID(context.Background(), serialID)
	if err != nil {
		return nil, err
	}
	if err := s.transitionSerialTx(tx, sn, model.SerialAllocated); err != nil {
		return nil, err
	}
	return sn, nil
}

func (s *lotRegistryService) ShipSerial(ctx context.Context, serial string, shipmentID uuid.UUID) (*model.SerialNumber, error) {
	return s.transitionSerial(ctx, serial, model.SerialShipped, func(sn *model.SerialNumber) {
		sn.ShipmentID = &shipmentID
	})
}

func (s *lotRegistryService) ConsumeSerial(ctx context.Context, serial string) (*model.SerialNumber, error) {
	return s.transitionSerial(ctx, serial, model.SerialConsumed, nil)
}

func (s *lotRegistryService) ScrapSerial(ctx context.Context, serial string) (*model.SerialNumber, error) {
	return s.transitionSerial(ctx, serial, model.SerialScrapped, nil)
}

func (s *lotRegistryService) ReturnSerial(ctx context.Context, serial string) (*model.SerialNumber, error) {
	sn, err := s.transitionSerial(ctx, serial, model.SerialWarrantyReturn, nil)
	if err != nil {
		return nil, err
	}
	if !s.cfg.WarrantyReturnReentry {
		return sn, nil
	}
	// Policy-gated re-entry: the returned unit rejoins the sellable pool.
	err = runTx(ctx, s.serials.DB(), func(tx *gorm.DB) error {
		sn.Status = model.SerialAvailable
		sn.ShipmentID = nil
		return s.serials.UpdateSerialTx(tx, sn)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("serial", sn.Serial).Msg("warranty return re-entered sellable pool")
	return sn, nil
}

func (s *lotRegistryService) transitionSerial(ctx context.Context, serial string, target model.SerialStatus, mutate func(*model.SerialNumber)) (*model.SerialNumber, error) {
	sn, err := s.serials.FindBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	err = runTx(ctx, s.serials.DB(), func(tx *gorm.DB) error {
		if mutate != nil {
			mutate(sn)
		}
		return s.transitionSerialTx(tx, sn, target)
	})
	if err != nil {
		return nil, err
	}
	return sn, nil
}

func (s *lotRegistryService) transitionSerialTx(tx *gorm.DB, sn *model.SerialNumber, target model.SerialStatus) error {
	if !sn.Status.CanTransition(target) {
		return &inverr.InvalidStateTransitionError{
			Entity: "serial", ID: sn.ID, From: string(sn.Status), To: string(target),
		}
	}
	sn.Status = target
	return s.serials.UpdateSerialTx(tx, sn)
}
