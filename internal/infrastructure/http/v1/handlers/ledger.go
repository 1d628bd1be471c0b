package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"mise/internal/core/id"
	"mise/internal/domain/ledger"
	"mise/internal/infrastructure/http/v1/dto"
	"mise/internal/infrastructure/storage/postgres"
)

// JournalReader reads the audit journal rows of a movement.
type JournalReader interface {
	History(ctx context.Context, movementID id.ID, limit int) ([]postgres.JournalEntry, error)
}

// LedgerHandler handles HTTP requests for stock movements.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
	journal JournalReader
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service, journal JournalReader) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service, journal: journal}
}

// OpeningBalance handles POST /ledger/opening-balance.
func (h *LedgerHandler) OpeningBalance(c *gin.Context) {
	var req dto.OpeningBalanceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput(h.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.RegisterOpeningBalance(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMovement(m))
}

// StockOut handles POST /ledger/stock-out.
func (h *LedgerHandler) StockOut(c *gin.Context) {
	var req dto.StockOutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput(h.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.RegisterStockOut(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMovement(m))
}

// Transfer handles POST /ledger/transfer.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput(h.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	exit, entry, err := h.service.RegisterTransfer(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.TransferResponse{
		Exit:  dto.FromMovement(exit),
		Entry: dto.FromMovement(entry),
	})
}

// Adjustment handles POST /ledger/adjustment.
func (h *LedgerHandler) Adjustment(c *gin.Context) {
	var req dto.AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput(h.UserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.RegisterAdjustment(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMovement(m))
}

// Get handles GET /ledger/movements/:id.
func (h *LedgerHandler) Get(c *gin.Context) {
	movementID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	m, err := h.service.GetMovement(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(m))
}

// List handles GET /ledger/movements with optional filters.
func (h *LedgerHandler) List(c *gin.Context) {
	filter := ledger.Filter{
		Limit:  uint64(h.ParseIntQuery(c, "limit", 50)),
		Offset: uint64(h.ParseIntQuery(c, "offset", 0)),
	}

	if locationID := c.Query("locationId"); locationID != "" {
		parsed, err := id.Parse(locationID)
		if err == nil {
			filter.LocationID = parsed
		}
	}
	if variantID := c.Query("variantId"); variantID != "" {
		parsed, err := id.Parse(variantID)
		if err == nil {
			filter.VariantID = parsed
		}
	}
	if reason := c.Query("reason"); reason != "" {
		filter.Reason = ledger.Reason(reason)
	}
	if from := c.Query("from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = parsed
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = parsed
		}
	}

	movements, err := h.service.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, len(movements))
	for i := range movements {
		items[i] = dto.FromMovement(&movements[i])
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      int(filter.Limit),
		Offset:     int(filter.Offset),
	})
}

// Journal handles GET /ledger/movements/:id/journal.
func (h *LedgerHandler) Journal(c *gin.Context) {
	movementID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 20)

	entries, err := h.journal.History(c.Request.Context(), movementID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.JournalEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = dto.FromJournalEntry(e)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      limit,
	})
}

// RegisterRoutes registers ledger routes.
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/opening-balance", h.OpeningBalance)
	rg.POST("/stock-out", h.StockOut)
	rg.POST("/transfer", h.Transfer)
	rg.POST("/adjustment", h.Adjustment)
	rg.GET("/movements", h.List)
	rg.GET("/movements/:id", h.Get)
	rg.GET("/movements/:id/journal", h.Journal)
}
