package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

// Notifier sends digests and lists the outbound message log.
type Notifier interface {
	SendLowStockDigest(ctx context.Context) (models.Message, error)
	Recent(ctx context.Context, limit int) ([]models.Message, error)
}

// MessageHandler serves the outbound message log.
type MessageHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewMessageHandler constructs the message endpoints.
func NewMessageHandler(notifier Notifier, logger *zap.Logger) *MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageHandler{notifier: notifier, logger: logger}
}

// List returns recent messages, newest first.
func (h *MessageHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := h.notifier.Recent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// SendDigest triggers the low-stock digest outside its schedule.
func (h *MessageHandler) SendDigest(c *gin.Context) {
	msg, err := h.notifier.SendLowStockDigest(c.Request.Context())
	if err != nil {
		h.logger.Warn("manual low-stock digest failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send digest", "message": msg})
		return
	}
	if msg.Status == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}
