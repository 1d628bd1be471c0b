// Package handlers provides HTTP request handlers for the v1 API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mise/internal/core/apperror"
	appctx "mise/internal/core/context"
	"mise/internal/core/id"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseIDParam parses a path parameter as an ID.
func (h *BaseHandler) ParseIDParam(c *gin.Context, key string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(key))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("param", key))
		return id.Nil(), false
	}
	return parsed, true
}

// parseQueryID parses a query parameter as an ID.
func parseQueryID(c *gin.Context, key string) (id.ID, error) {
	parsed, err := id.Parse(c.Query(key))
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id format").WithDetail("param", key)
	}
	return parsed, nil
}

// UserID extracts the caller identity as an ID when the header carried one.
func (h *BaseHandler) UserID(c *gin.Context) *id.ID {
	raw := appctx.GetUserID(c.Request.Context())
	if raw == "" {
		return nil
	}
	parsed, err := id.Parse(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
