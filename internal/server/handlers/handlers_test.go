package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/events"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		models.NewValidationError("x"):                          http.StatusBadRequest,
		fmt.Errorf("%w: abc", models.ErrInvalidQuantity):        http.StatusUnprocessableEntity,
		fmt.Errorf("%w: FF-1", models.ErrDuplicate):             http.StatusConflict,
		models.ErrConflict:                                      http.StatusConflict,
		fmt.Errorf("wrap: %w", models.ErrInsufficientStock):     http.StatusConflict,
		fmt.Errorf("item 1: %w", models.ErrNotFound):            http.StatusNotFound,
		fmt.Errorf("%w: token expired", models.ErrUnauthorized): http.StatusUnauthorized,
		errors.New("mongo down"):                                http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

type fixedSource struct {
	events []events.Event
	closed bool
}

func (f *fixedSource) Subscribe(int) (<-chan events.Event, func()) {
	ch := make(chan events.Event, len(f.events))
	for _, evt := range f.events {
		ch <- evt
	}
	close(ch)
	return ch, func() { f.closed = true }
}

func TestEventsStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	source := &fixedSource{events: []events.Event{
		events.New(events.StockChanged, map[string]int{"quantity": 7}),
	}}
	h := NewEventsHandler(source, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/events", nil)

	h.Stream(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event:stock.changed")
	assert.Contains(t, rec.Body.String(), `"quantity":7`)
	assert.True(t, source.closed)
}

type openSource struct{}

func (openSource) Subscribe(int) (<-chan events.Event, func()) {
	return make(chan events.Event), func() {}
}

func TestEventsStream_EndsOnClose(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEventsHandler(openSource{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/events", nil)

	done := make(chan struct{})
	go func() {
		h.Stream(c)
		close(done)
	}()

	h.Close()
	h.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after Close")
	}
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuantityText(t *testing.T) {
	assert.Equal(t, "3", quantityText([]byte(`3`)))
	assert.Equal(t, "abc", quantityText([]byte(`"abc"`)))
	assert.Equal(t, "", quantityText(nil))
}
