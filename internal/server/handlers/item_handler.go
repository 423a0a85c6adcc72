package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/auth"
	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/service/stock"
)

// Inventory is the item and reference catalogue.
type Inventory interface {
	CreateItem(ctx context.Context, item models.Item, checkDuplicate bool) (models.Item, error)
	GetItem(ctx context.Context, id string) (models.Item, error)
	ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	UpdateItem(ctx context.Context, id string, patch models.ItemPatch, user string) (models.Item, error)
	DeleteItem(ctx context.Context, id string) error
	AddReference(ctx context.Context, kind models.ReferenceKind, name string) (models.Reference, error)
	ListReferences(ctx context.Context, kind models.ReferenceKind) ([]models.Reference, error)
	DeleteReference(ctx context.Context, kind models.ReferenceKind, id string) error
}

// StockMutator applies stock movements.
type StockMutator interface {
	Apply(ctx context.Context, m stock.Mutation) (stock.Result, error)
	Issue(ctx context.Context, itemID, quantity, fleetNumber, user string) (stock.Result, error)
}

// StockReports are the per-item read views.
type StockReports interface {
	LowStock(ctx context.Context) ([]models.Item, error)
	Reconcile(ctx context.Context, itemID string) (models.Reconciliation, error)
}

// ItemHandler serves item CRUD and stock movements.
type ItemHandler struct {
	inventory Inventory
	stock     StockMutator
	reports   StockReports
	logger    *zap.Logger
}

// NewItemHandler constructs the item endpoints.
func NewItemHandler(inventory Inventory, stock StockMutator, reports StockReports, logger *zap.Logger) *ItemHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemHandler{inventory: inventory, stock: stock, reports: reports, logger: logger}
}

type itemView struct {
	models.Item
	LowStock bool `json:"lowStock"`
}

func viewOf(item models.Item) itemView {
	return itemView{Item: item, LowStock: item.LowStock()}
}

func viewsOf(items []models.Item) []itemView {
	out := make([]itemView, 0, len(items))
	for _, item := range items {
		out = append(out, viewOf(item))
	}
	return out
}

// List returns items filtered by category and part number.
func (h *ItemHandler) List(c *gin.Context) {
	filter := models.ItemFilter{
		Category:   c.Query("category"),
		PartNumber: c.Query("partNumber"),
	}
	items, err := h.inventory.ListItems(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, viewsOf(items))
}

// Create adds an item.
func (h *ItemHandler) Create(c *gin.Context) {
	var item models.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	checkDuplicate, _ := strconv.ParseBool(c.Query("checkDuplicate"))

	created, err := h.inventory.CreateItem(c.Request.Context(), item, checkDuplicate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(created))
}

// Get returns one item.
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.inventory.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(item))
}

// Update patches an item.
func (h *ItemHandler) Update(c *gin.Context) {
	var patch models.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	if patch.Empty() {
		writeError(c, h.logger, models.NewValidationError("no field to update"))
		return
	}

	ctx := c.Request.Context()
	item, err := h.inventory.UpdateItem(ctx, c.Param("id"), patch, auth.ActingUser(ctx))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(item))
}

// Delete removes an item.
func (h *ItemHandler) Delete(c *gin.Context) {
	if err := h.inventory.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type stockRequest struct {
	Direction   string          `json:"direction"`
	Quantity    json.RawMessage `json:"quantity"`
	FleetNumber string          `json:"fleetNumber"`
}

// quantityText accepts the quantity as a JSON number or string so that the
// service reports malformed input as an invalid quantity.
func quantityText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// AdjustStock applies a stock-in or stock-out.
func (h *ItemHandler) AdjustStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	direction, reason, err := models.ParseMovement(req.Direction)
	if err != nil {
		writeError(c, h.logger, models.NewValidationError(err.Error()))
		return
	}

	ctx := c.Request.Context()
	res, err := h.stock.Apply(ctx, stock.Mutation{
		ItemID:      c.Param("id"),
		Quantity:    quantityText(req.Quantity),
		Direction:   direction,
		Reason:      reason,
		FleetNumber: req.FleetNumber,
		User:        auth.ActingUser(ctx),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Issue dispenses stock to a fleet unit.
func (h *ItemHandler) Issue(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	res, err := h.stock.Issue(ctx, c.Param("id"), quantityText(req.Quantity), req.FleetNumber, auth.ActingUser(ctx))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LowStock lists items at or below the threshold.
func (h *ItemHandler) LowStock(c *gin.Context) {
	items, err := h.reports.LowStock(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, viewsOf(items))
}

// Reconcile compares stored quantity against the ledger.
func (h *ItemHandler) Reconcile(c *gin.Context) {
	rec, err := h.reports.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation": rec, "consistent": rec.Consistent()})
}
