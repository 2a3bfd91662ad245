package repository

import (
	"context"
	"errors"

	"lotledger/internal/inverr"
	"lotledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SerialRepository is the data access contract for serialized units.
// UpdateSerialTx mirrors the lot repository's optimistic version check.
type SerialRepository interface {
	CreateTx(tx *gorm.DB, s *model.SerialNumber) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SerialNumber, error)
	FindBySerial(ctx context.Context, serial string) (*model.SerialNumber, error)
	FindBySerials(ctx context.Context, serials []string) ([]model.SerialNumber, error)
	ListAvailableByItem(ctx context.Context, itemID uuid.UUID) ([]model.SerialNumber, error)
	// ListByLotIDs preloads each serial's shipment so traceability and recall
	// scope can resolve customers without N+1 lookups.
	ListByLotIDs(ctx context.Context, lotIDs []uuid.UUID) ([]model.SerialNumber, error)
	UpdateSerialTx(tx *gorm.DB, s *model.SerialNumber) error

	DB() *gorm.DB
}

type serialRepo struct{ db *gorm.DB }

func NewSerialRepository(db *gorm.DB) SerialRepository { return &serialRepo{db: db} }

func (r *serialRepo) CreateTx(tx *gorm.DB, s *model.SerialNumber) error {
	return tx.Create(s).Error
}

func (r *serialRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SerialNumber, error) {
	var s model.SerialNumber
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inverr.ErrSerialNotFound
	}
	return &s, err
}

func (r *serialRepo) FindBySerial(ctx context.Context, serial string) (*model.SerialNumber, error) {
	var s model.SerialNumber
	err := r.db.WithContext(ctx).Where("serial_number = ?", serial).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inverr.ErrSerialNotFound
	}
	return &s, err
}

func (r *serialRepo) FindBySerials(ctx context.Context, serials []string) ([]model.SerialNumber, error) {
	var result []model.SerialNumber
	err := r.db.WithContext(ctx).Where("serial_number IN ?", serials).Order("seq ASC").Find(&result).Error
	return result, err
}

func (r *serialRepo) ListAvailableByItem(ctx context.Context, itemID uuid.UUID) ([]model.SerialNumber, error) {
	var result []model.SerialNumber
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ?", itemID, model.SerialAvailable).
		Order("seq ASC").
		Find(&result).Error
	return result, err
}

func (r *serialRepo) ListByLotIDs(ctx context.Context, lotIDs []uuid.UUID) ([]model.SerialNumber, error) {
	var result []model.SerialNumber
	err := r.db.WithContext(ctx).
		Preload("Shipment").
		Where("lot_id IN ?", lotIDs).
		Order("seq ASC").
		Find(&result).Error
	return result, err
}

func (r *serialRepo) UpdateSerialTx(tx *gorm.DB, s *model.SerialNumber) error {
	res := tx.Model(&model.SerialNumber{}).
		Where("id = ? AND version = ?", s.ID, s.Version).
		Updates(map[string]interface{}{
			"status":              s.Status,
			"lot_id":              s.LotID,
			"current_location_id": s.CurrentLocationID,
			"shipment_id":         s.ShipmentID,
			"version":             gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return inverr.ErrConflict
	}
	s.Version++
	return nil
}

func (r *serialRepo) DB() *gorm.DB { return r.db }
