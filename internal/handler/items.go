package handler

import (
	"net/http"
	"time"

	"lotledger/internal/apierror"
	"lotledger/internal/dto"
	"lotledger/internal/model"
	"lotledger/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ItemsHandler exposes the minimal catalog seam plus the append-only event
// log. The full catalog (pricing, naming, tenancy) belongs to the host.
type ItemsHandler struct {
	items  repository.ItemRepository
	events repository.EventRepository
}

func NewItemsHandler(items repository.ItemRepository, events repository.EventRepository) *ItemsHandler {
	return &ItemsHandler{items: items, events: events}
}

func (h *ItemsHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	uom := req.UnitOfMeasure
	if uom == "" {
		uom = "EA"
	}
	item := &model.Item{
		SKU:           req.SKU,
		Name:          req.Name,
		UnitOfMeasure: uom,
		StandardCost:  req.StandardCost,
	}
	if err := h.items.Create(c.Request.Context(), item); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ItemsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	item, err := h.items.FindByID(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// AppendEvent records one immutable inventory fact. There is deliberately no
// corresponding update or delete endpoint.
func (h *ItemsHandler) AppendEvent(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	var req dto.AppendEventRequest
	if !bindAndValidate(c, &req) {
		return
	}
	occurredAt, err := time.Parse(time.RFC3339, req.OccurredAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("occurred_at must be RFC3339"))
		return
	}
	eventType := model.EventType(req.Type)
	if eventType == model.EventReceive && req.UnitCost == nil {
		c.JSON(http.StatusBadRequest, apierror.New("unit_cost is required on receipts"))
		return
	}
	// The item must exist before we append facts about it.
	if _, err := h.items.FindByID(c.Request.Context(), itemID); err != nil {
		respondEngineError(c, err)
		return
	}

	event := &model.InventoryEvent{
		ItemID:     itemID,
		Type:       eventType,
		Quantity:   req.Quantity,
		UnitCost:   req.UnitCost,
		OccurredAt: occurredAt,
		Reference:  req.Reference,
	}
	if err := h.events.Append(c.Request.Context(), event); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}
