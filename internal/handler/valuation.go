package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"lotledger/internal/apierror"
	"lotledger/internal/inverr"
	"lotledger/internal/model"
	"lotledger/internal/service"
	"lotledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ValuationHandler serves point-in-time valuations, period COGS, and aging.
// Accounting inconsistencies detected during replay are escalated through the
// alert queue — they signal upstream data corruption, never swallowed.
type ValuationHandler struct {
	ledger     service.CostLedgerService
	aging      service.AgingService
	dispatcher *worker.Dispatcher
}

func NewValuationHandler(ledger service.CostLedgerService, aging service.AgingService, dispatcher *worker.Dispatcher) *ValuationHandler {
	return &ValuationHandler{ledger: ledger, aging: aging, dispatcher: dispatcher}
}

func (h *ValuationHandler) Valuate(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	method := model.CostingMethod(c.DefaultQuery("method", string(model.CostingFIFO)))
	if !method.Valid() {
		c.JSON(http.StatusBadRequest, apierror.New("method must be FIFO, LIFO, WAC, or STANDARD"))
		return
	}
	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("as_of must be RFC3339"))
			return
		}
		asOf = &t
	}

	result, err := h.ledger.ValuateItem(c.Request.Context(), itemID, method, asOf)
	if err != nil {
		h.escalateIfInconsistent(c, err)
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ValuationHandler) COGS(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	method := model.CostingMethod(c.DefaultQuery("method", string(model.CostingFIFO)))
	if !method.Valid() {
		c.JSON(http.StatusBadRequest, apierror.New("method must be FIFO, LIFO, WAC, or STANDARD"))
		return
	}
	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("start must be YYYY-MM-DD"))
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("end must be YYYY-MM-DD"))
		return
	}

	result, err := h.ledger.CalculateCOGS(c.Request.Context(), itemID, method, start, end)
	if err != nil {
		h.escalateIfInconsistent(c, err)
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ValuationHandler) Aging(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	result, err := h.aging.AgeItem(c.Request.Context(), itemID)
	if err != nil {
		h.escalateIfInconsistent(c, err)
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ValuationHandler) AgingReport(c *gin.Context) {
	report, err := h.aging.Report(c.Request.Context())
	if err != nil {
		h.escalateIfInconsistent(c, err)
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ValuationHandler) escalateIfInconsistent(c *gin.Context, err error) {
	var inconsistency *inverr.AccountingInconsistencyError
	if !errors.As(err, &inconsistency) {
		return
	}
	_ = h.dispatcher.EnqueueAlert(c.Request.Context(), worker.AlertPayload{
		Subject: fmt.Sprintf("accounting inconsistency: item %s", inconsistency.ItemID),
		Body:    inconsistency.Error(),
	})
}
