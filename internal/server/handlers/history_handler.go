package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/service/export"
	"github.com/mamadbah2/fleetstock/internal/service/reporting"
)

// HistoryViews are the ledger read views.
type HistoryViews interface {
	Rows(ctx context.Context, q models.HistoryQuery) ([]models.HistoryRow, error)
	HistoryTable(ctx context.Context, q models.HistoryQuery) (models.HistoryPage, error)
	Costs(ctx context.Context, q models.HistoryQuery) (models.CostSummary, error)
	FilterOptions(ctx context.Context) (reporting.Options, error)
}

// HistoryHandler serves the history table, exports and cost analytics.
type HistoryHandler struct {
	views  HistoryViews
	logger *zap.Logger
	now    func() time.Time
}

// NewHistoryHandler constructs the history endpoints.
func NewHistoryHandler(views HistoryViews, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{views: views, logger: logger, now: time.Now}
}

func parseHistoryQuery(c *gin.Context) (models.HistoryQuery, error) {
	q := models.HistoryQuery{
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		Fleet:     c.Query("fleet"),
		Direction: models.ParseSortDirection(c.Query("order")),
	}

	var err error
	if raw := c.Query("page"); raw != "" {
		if q.Page, err = strconv.Atoi(raw); err != nil {
			return q, models.NewValidationError(fmt.Sprintf("page %q is not a number", raw))
		}
	}
	if raw := c.Query("pageSize"); raw != "" {
		if q.PageSize, err = strconv.Atoi(raw); err != nil {
			return q, models.NewValidationError(fmt.Sprintf("page size %q is not a number", raw))
		}
	}
	return q, nil
}

// Table returns one page of filtered history.
func (h *HistoryHandler) Table(c *gin.Context) {
	q, err := parseHistoryQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	page, err := h.views.HistoryTable(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Export downloads the filtered history, unpaginated.
func (h *HistoryHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	q, err := parseHistoryQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	rows, err := h.views.Rows(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(h.now())))
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, format, rows); err != nil {
		h.logger.Error("history export failed", zap.String("format", string(format)), zap.Error(err))
	}
}

// Costs returns issuance cost by category and fleet.
func (h *HistoryHandler) Costs(c *gin.Context) {
	q, err := parseHistoryQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	summary, err := h.views.Costs(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Options returns the filter choices.
func (h *HistoryHandler) Options(c *gin.Context) {
	opts, err := h.views.FilterOptions(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}
