package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/events"
)

const (
	subscriberBuffer = 32
	keepAlive        = 25 * time.Second
)

// EventSource hands out change feed subscriptions.
type EventSource interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

// EventsHandler streams the change feed as server-sent events.
type EventsHandler struct {
	source EventSource
	logger *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewEventsHandler constructs the SSE endpoint.
func NewEventsHandler(source EventSource, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{source: source, logger: logger, done: make(chan struct{})}
}

// Close ends every open stream. http.Server.Shutdown does not cancel the
// contexts of active requests, so it is registered with RegisterOnShutdown.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.logger.Info("closing event streams")
	})
}

// Stream writes one SSE message per event until the client goes away or
// the handler is closed.
func (h *EventsHandler) Stream(c *gin.Context) {
	feed, cancel := h.source.Subscribe(subscriberBuffer)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case evt, ok := <-feed:
			if !ok {
				return
			}
			c.SSEvent(string(evt.Type), evt)
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}
