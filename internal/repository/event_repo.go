package repository

import (
	"context"
	"time"

	"lotledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRepository is the append-only inventory event log. There is no update
// or delete method on purpose: events are immutable facts, and the ledger is
// rebuilt by replaying them.
type EventRepository interface {
	Append(ctx context.Context, e *model.InventoryEvent) error
	// ListByItem returns the item's events ordered ascending by occurrence
	// time, ties broken by insertion (created_at, id) so replay is
	// deterministic. until is an inclusive upper bound when non-nil.
	ListByItem(ctx context.Context, itemID uuid.UUID, until *time.Time) ([]model.InventoryEvent, error)
}

type eventRepo struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) EventRepository { return &eventRepo{db: db} }

func (r *eventRepo) Append(ctx context.Context, e *model.InventoryEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *eventRepo) ListByItem(ctx context.Context, itemID uuid.UUID, until *time.Time) ([]model.InventoryEvent, error) {
	q := r.db.WithContext(ctx).Where("item_id = ?", itemID)
	if until != nil {
		q = q.Where("occurred_at <= ?", *until)
	}
	var events []model.InventoryEvent
	err := q.Order("occurred_at ASC, created_at ASC, id ASC").Find(&events).Error
	return events, err
}
