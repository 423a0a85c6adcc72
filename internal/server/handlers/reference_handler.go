package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

// ReferenceHandler serves the fleet number and supplier lists.
type ReferenceHandler struct {
	inventory Inventory
	logger    *zap.Logger
}

// NewReferenceHandler constructs the reference list endpoints.
func NewReferenceHandler(inventory Inventory, logger *zap.Logger) *ReferenceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceHandler{inventory: inventory, logger: logger}
}

type referenceRequest struct {
	Name string `json:"name" binding:"required"`
}

// List returns the handler for listing one kind.
func (h *ReferenceHandler) List(kind models.ReferenceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		refs, err := h.inventory.ListReferences(c.Request.Context(), kind)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, refs)
	}
}

// Add returns the handler for appending to one kind.
func (h *ReferenceHandler) Add(kind models.ReferenceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req referenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, h.logger, err)
			return
		}

		ref, err := h.inventory.AddReference(c.Request.Context(), kind, req.Name)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, ref)
	}
}

// Delete returns the handler for removing from one kind.
func (h *ReferenceHandler) Delete(kind models.ReferenceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.inventory.DeleteReference(c.Request.Context(), kind, c.Param("id")); err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
