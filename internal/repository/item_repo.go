package repository

import (
	"context"
	"errors"

	"lotledger/internal/inverr"
	"lotledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemRepository is the minimal catalog seam the engine needs. The catalog
// itself (pricing, tenancy, naming) is owned by the host application.
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	FindBySKU(ctx context.Context, sku string) (*model.Item, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type itemRepo struct{ db *gorm.DB }

func NewItemRepository(db *gorm.DB) ItemRepository { return &itemRepo{db: db} }

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inverr.ErrItemNotFound
	}
	return &item, err
}

func (r *itemRepo) FindBySKU(ctx context.Context, sku string) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inverr.ErrItemNotFound
	}
	return &item, err
}

func (r *itemRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Item{}).Order("sku ASC").Pluck("id", &ids).Error
	return ids, err
}
