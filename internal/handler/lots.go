package handler

import (
	"net/http"
	"time"

	"lotledger/internal/apierror"
	"lotledger/internal/dto"
	"lotledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LotsHandler struct {
	registry service.LotRegistryService
	trace    service.TraceabilityService
}

func NewLotsHandler(registry service.LotRegistryService, trace service.TraceabilityService) *LotsHandler {
	return &LotsHandler{registry: registry, trace: trace}
}

func (h *LotsHandler) Create(c *gin.Context) {
	var req dto.CreateLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item_id"))
		return
	}
	prodDate, err := time.Parse("2006-01-02", req.ProductionDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("production_date must be YYYY-MM-DD"))
		return
	}
	params := service.CreateLotParams{
		ItemID:         itemID,
		LotNumber:      req.LotNumber,
		QtyProduced:    req.QtyProduced,
		ProductionDate: prodDate,
		Actor:          req.Actor,
	}
	if req.ExpirationDate != "" {
		exp, err := time.Parse("2006-01-02", req.ExpirationDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("expiration_date must be YYYY-MM-DD"))
			return
		}
		params.ExpirationDate = &exp
	}
	if req.SupplierID != "" {
		supplierID, err := uuid.Parse(req.SupplierID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid supplier_id"))
			return
		}
		params.SupplierID = &supplierID
	}

	lot, err := h.registry.CreateLot(c.Request.Context(), params)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

func (h *LotsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid lot id"))
		return
	}
	lot, err := h.registry.GetLot(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *LotsHandler) Consume(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid lot id"))
		return
	}
	var req dto.ConsumeLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	lot, err := h.registry.ConsumeLot(c.Request.Context(), id, req.Quantity, req.Actor, req.Note)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *LotsHandler) Hold(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid lot id"))
		return
	}
	var req dto.HoldLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	var holdReasonID *uuid.UUID
	if req.HoldReasonID != "" {
		parsed, err := uuid.Parse(req.HoldReasonID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid hold_reason_id"))
			return
		}
		holdReasonID = &parsed
	}
	lot, err := h.registry.HoldLot(c.Request.Context(), id, req.Quarantine, holdReasonID, req.Actor, req.Note)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *LotsHandler) Release(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid lot id"))
		return
	}
	var req dto.ReleaseLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	lot, err := h.registry.ReleaseLot(c.Request.Context(), id, req.Actor, req.Note)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *LotsHandler) Traceability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid lot id"))
		return
	}
	record, err := h.trace.GetLotTraceability(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// RecallsHandler initiates quality recalls over sets of lots.
type RecallsHandler struct{ trace service.TraceabilityService }

func NewRecallsHandler(trace service.TraceabilityService) *RecallsHandler {
	return &RecallsHandler{trace: trace}
}

func (h *RecallsHandler) Initiate(c *gin.Context) {
	var req dto.InitiateRecallRequest
	if !bindAndValidate(c, &req) {
		return
	}
	scope, err := h.trace.InitiateRecall(c.Request.Context(), req.LotNumbers, req.Actor)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, scope)
}
