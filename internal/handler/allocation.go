package handler

import (
	"net/http"

	"lotledger/internal/apierror"
	"lotledger/internal/dto"
	"lotledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AllocationHandler struct{ engine service.AllocationEngine }

func NewAllocationHandler(engine service.AllocationEngine) *AllocationHandler {
	return &AllocationHandler{engine: engine}
}

func (h *AllocationHandler) Select(c *gin.Context) {
	var req dto.SelectAllocationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item_id"))
		return
	}
	strategy := dto.AllocationStrategy(req.Strategy)
	var lotIDs []uuid.UUID
	for _, raw := range req.SpecificLotIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid lot id in specific_lot_ids"))
			return
		}
		lotIDs = append(lotIDs, id)
	}
	if strategy == dto.StrategyManual && len(lotIDs) == 0 {
		c.JSON(http.StatusBadRequest, apierror.New("MANUAL strategy requires specific_lot_ids"))
		return
	}

	proposal, err := h.engine.SelectLots(c.Request.Context(), itemID, req.QtyNeeded, strategy, req.ExcludeExpiredDays, lotIDs)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (h *AllocationHandler) Commit(c *gin.Context) {
	var req dto.CommitAllocationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.engine.CommitProposal(c.Request.Context(), &req.Proposal, req.Actor); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"committed": true, "lines": len(req.Proposal.Lines)})
}

func (h *AllocationHandler) SelectSerials(c *gin.Context) {
	var req dto.SelectSerialsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item_id"))
		return
	}
	var preferLotID *uuid.UUID
	if req.PreferLotID != "" {
		id, err := uuid.Parse(req.PreferLotID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid prefer_lot_id"))
			return
		}
		preferLotID = &id
	}

	proposal, err := h.engine.SelectSerials(c.Request.Context(), itemID, req.QtyNeeded, req.SpecificSerials, preferLotID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}
