package repository

import (
	"context"
	"errors"
	"time"

	"lotledger/internal/inverr"
	"lotledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LotRepository is the data access contract for lots and their history.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
//
// Methods suffixed Tx run inside a caller-provided transaction. UpdateLotTx
// carries an optimistic version check: zero rows affected means another actor
// committed first and surfaces as inverr.ErrConflict (retryable).
type LotRepository interface {
	CreateTx(tx *gorm.DB, lot *model.Lot) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lot, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Lot, error)
	FindByNumbers(ctx context.Context, lotNumbers []string) ([]model.Lot, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Lot, error)
	ListAvailableByItem(ctx context.Context, itemID uuid.UUID) ([]model.Lot, error)
	// ListExpirable returns AVAILABLE lots whose expiration date is before
	// now, oldest expiration first, capped at limit (sweep chunk size).
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]model.Lot, error)
	UpdateLotTx(tx *gorm.DB, lot *model.Lot) error
	AppendHistoryTx(tx *gorm.DB, h *model.LotHistory) error
	ListHistory(ctx context.Context, lotID uuid.UUID) ([]model.LotHistory, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type lotRepo struct{ db *gorm.DB }

func NewLotRepository(db *gorm.DB) LotRepository { return &lotRepo{db: db} }

func (r *lotRepo) CreateTx(tx *gorm.DB, lot *model.Lot) error {
	return tx.Create(lot).Error
}

func (r *lotRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Lot, error) {
	var lot model.Lot
	err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inverr.ErrLotNotFound
	}
	return &lot, err
}

func (r *lotRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Lot, error) {
	var lot model.Lot
	err := tx.First(&lot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inverr.ErrLotNotFound
	}
	return &lot, err
}

func (r *lotRepo) FindByNumbers(ctx context.Context, lotNumbers []string) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).Where("lot_number IN ?", lotNumbers).Order("seq ASC").Find(&lots).Error
	return lots, err
}

func (r *lotRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("seq ASC").Find(&lots).Error
	return lots, err
}

func (r *lotRepo) ListAvailableByItem(ctx context.Context, itemID uuid.UUID) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ? AND qty_available > 0", itemID, model.LotAvailable).
		Order("seq ASC").
		Find(&lots).Error
	return lots, err
}

func (r *lotRepo) ListExpirable(ctx context.Context, now time.Time, limit int) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).
		Where("status = ? AND expiration_date IS NOT NULL AND expiration_date < ?", model.LotAvailable, now).
		Order("expiration_date ASC").
		Limit(limit).
		Find(&lots).Error
	return lots, err
}

func (r *lotRepo) UpdateLotTx(tx *gorm.DB, lot *model.Lot) error {
	res := tx.Model(&model.Lot{}).
		Where("id = ? AND version = ?", lot.ID, lot.Version).
		Updates(map[string]interface{}{
			"qty_available":  lot.QtyAvailable,
			"qty_allocated":  lot.QtyAllocated,
			"qty_consumed":   lot.QtyConsumed,
			"status":         lot.Status,
			"hold_reason_id": lot.HoldReasonID,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return inverr.ErrConflict
	}
	lot.Version++
	return nil
}

func (r *lotRepo) AppendHistoryTx(tx *gorm.DB, h *model.LotHistory) error {
	return tx.Create(h).Error
}

func (r *lotRepo) ListHistory(ctx context.Context, lotID uuid.UUID) ([]model.LotHistory, error) {
	var entries []model.LotHistory
	err := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *lotRepo) DB() *gorm.DB { return r.db }
