package service

import (
	"context"
	"time"

	"lotledger/internal/dto"
	"lotledger/internal/inverr"
	"lotledger/internal/model"
	"lotledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TraceabilityService reconstructs lot genealogy and computes recall scope.
// GetLotTraceability is a pure read view; InitiateRecall additionally
// quarantines every matched lot, and scope computation plus the quarantine
// transitions are one transaction — a partial failure rolls everything back.
type TraceabilityService interface {
	GetLotTraceability(ctx context.Context, lotID uuid.UUID) (*dto.TraceabilityRecord, error)
	InitiateRecall(ctx context.Context, lotNumbers []string, actor string) (*dto.RecallScope, error)
}

type traceabilityService struct {
	lots    repository.LotRepository
	serials repository.SerialRepository
}

func NewTraceabilityService(lots repository.LotRepository, serials repository.SerialRepository) TraceabilityService {
	return &traceabilityService{lots: lots, serials: serials}
}

func (s *traceabilityService) GetLotTraceability(ctx context.Context, lotID uuid.UUID) (*dto.TraceabilityRecord, error) {
	lot, err := s.lots.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	history, err := s.lots.ListHistory(ctx, lotID)
	if err != nil {
		return nil, err
	}
	serials, err := s.serials.ListByLotIDs(ctx, []uuid.UUID{lotID})
	if err != nil {
		return nil, err
	}

	record := &dto.TraceabilityRecord{
		LotID:          lot.ID,
		LotNumber:      lot.LotNumber,
		ItemID:         lot.ItemID,
		Status:         string(lot.Status),
		QtyProduced:    lot.QtyProduced,
		QtyAvailable:   lot.QtyAvailable,
		QtyConsumed:    lot.QtyConsumed,
		ProductionDate: lot.ProductionDate,
		ExpirationDate: lot.ExpirationDate,
		Inbound: dto.InboundLinkage{
			SupplierID:        lot.SupplierID,
			ProductionOrderID: lot.ProductionOrderID,
		},
	}

	for i := range history {
		entry := historyEntry(&history[i])
		record.History = append(record.History, entry)
		if history[i].EventType == model.LotEventInspected {
			record.Inbound.Inspections = append(record.Inbound.Inspections, entry)
		}
	}

	for i := range serials {
		sn := &serials[i]
		traced := dto.TracedSerial{
			SerialID: sn.ID,
			Serial:   sn.Serial,
			Status:   string(sn.Status),
		}
		if sn.Shipment != nil {
			traced.ShipmentNumber = sn.Shipment.ShipmentNumber
			traced.CustomerID = &sn.Shipment.CustomerID
			traced.CustomerName = sn.Shipment.CustomerName
			shippedAt := sn.Shipment.ShippedAt
			traced.ShippedAt = &shippedAt
		}
		record.Serials = append(record.Serials, traced)
	}
	return record, nil
}

func historyEntry(h *model.LotHistory) dto.LotHistoryEntry {
	return dto.LotHistoryEntry{
		EventType:    h.EventType,
		QtyBefore:    h.QtyBefore,
		QtyAfter:     h.QtyAfter,
		Delta:        h.Delta,
		StatusBefore: string(h.StatusBefore),
		StatusAfter:  string(h.StatusAfter),
		Actor:        h.Actor,
		Note:         h.Note,
		Timestamp:    h.CreatedAt,
	}
}

// InitiateRecall resolves the named lots, computes the blast radius using
// qtyProduced (shipped units count too), walks every serial under the lots to
// collect affected customers, and quarantines all matched lots. Customers are
// deduplicated by id and each carries a deduplicated shipment list.
func (s *traceabilityService) InitiateRecall(ctx context.Context, lotNumbers []string, actor string) (*dto.RecallScope, error) {
	lots, err := s.lots.FindByNumbers(ctx, lotNumbers)
	if err != nil {
		return nil, err
	}
	if len(lots) == 0 {
		return nil, inverr.ErrLotNotFound
	}

	scope := &dto.RecallScope{
		RecallID:    uuid.New(),
		LotNumbers:  lotNumbers,
		InitiatedAt: time.Now(),
	}

	lotIDs := make([]uuid.UUID, 0, len(lots))
	for i := range lots {
		lotIDs = append(lotIDs, lots[i].ID)
		scope.AffectedLots = append(scope.AffectedLots, lots[i].ID)
		scope.TotalQtyAffected += lots[i].QtyProduced
	}

	serials, err := s.serials.ListByLotIDs(ctx, lotIDs)
	if err != nil {
		return nil, err
	}

	customers := make(map[uuid.UUID]*dto.AffectedCustomer)
	var customerOrder []uuid.UUID
	for i := range serials {
		sn := &serials[i]
		scope.AffectedSerials = append(scope.AffectedSerials, sn.Serial)
		if sn.Shipment == nil {
			continue
		}
		c, ok := customers[sn.Shipment.CustomerID]
		if !ok {
			c = &dto.AffectedCustomer{
				CustomerID:   sn.Shipment.CustomerID,
				CustomerName: sn.Shipment.CustomerName,
			}
			customers[sn.Shipment.CustomerID] = c
			customerOrder = append(customerOrder, sn.Shipment.CustomerID)
		}
		if !contains(c.Shipments, sn.Shipment.ShipmentNumber) {
			c.Shipments = append(c.Shipments, sn.Shipment.ShipmentNumber)
		}
	}
	for _, id := range customerOrder {
		scope.AffectedCustomers = append(scope.AffectedCustomers, *customers[id])
	}

	// Quarantine every matched lot atomically with the scope computation:
	// either the full recall takes effect or none of it does.
	err = runTx(ctx, s.lots.DB(), func(tx *gorm.DB) error {
		for i := range lots {
			lot, err := s.lots.FindByIDTx(tx, lots[i].ID)
			if err != nil {
				return err
			}
			// Lots already out of circulation stay as they are; recalling
			// them again must not reopen terminal states.
			if lot.Status.Terminal() || lot.Status == model.LotQuarantine {
				continue
			}
			statusBefore := lot.Status
			lot.Status = model.LotQuarantine
			if err := s.lots.UpdateLotTx(tx, lot); err != nil {
				return err
			}
			if err := s.lots.AppendHistoryTx(tx, &model.LotHistory{
				LotID:        lot.ID,
				EventType:    model.LotEventRecalled,
				QtyBefore:    lot.QtyAvailable,
				QtyAfter:     lot.QtyAvailable,
				StatusBefore: statusBefore,
				StatusAfter:  model.LotQuarantine,
				Actor:        actor,
				Note:         "recall " + scope.RecallID.String(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Warn().
		Str("recall_id", scope.RecallID.String()).
		Int("lots", len(scope.AffectedLots)).
		Int("serials", len(scope.AffectedSerials)).
		Int("customers", len(scope.AffectedCustomers)).
		Int("qty_affected", scope.TotalQtyAffected).
		Msg("recall initiated")
	return scope, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
