package handlers

import (
	"github.com/gin-gonic/gin"

	"mise/internal/core/apperror"
	"mise/internal/domain/stock"
	"mise/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for stock balance queries.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// GetBalance handles GET /stock/balances/:locationId/:variantId.
// A missing row reads as a zero balance, not 404.
func (h *StockHandler) GetBalance(c *gin.Context) {
	locationID, ok := h.ParseIDParam(c, "locationId")
	if !ok {
		return
	}
	variantID, ok := h.ParseIDParam(c, "variantId")
	if !ok {
		return
	}

	b, err := h.service.GetBalance(c.Request.Context(), locationID, variantID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBalance(b))
}

// ListByLocation handles GET /stock/balances?locationId=... or variantId=...
func (h *StockHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var balances []stock.Balance
	switch {
	case c.Query("locationId") != "":
		locationID, err := parseQueryID(c, "locationId")
		if err != nil {
			h.Error(c, err)
			return
		}
		balances, err = h.service.ListByLocation(ctx, locationID)
		if err != nil {
			h.Error(c, err)
			return
		}
	case c.Query("variantId") != "":
		variantID, err := parseQueryID(c, "variantId")
		if err != nil {
			h.Error(c, err)
			return
		}
		balances, err = h.service.ListByVariant(ctx, variantID)
		if err != nil {
			h.Error(c, err)
			return
		}
	default:
		h.Error(c, apperror.NewValidation("locationId or variantId query parameter is required"))
		return
	}

	items := make([]dto.BalanceResponse, len(balances))
	for i := range balances {
		items[i] = dto.FromBalance(&balances[i])
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// RegisterRoutes registers stock routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balances", h.List)
	rg.GET("/balances/:locationId/:variantId", h.GetBalance)
}
