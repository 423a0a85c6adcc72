package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/repository/memory"
	"github.com/mamadbah2/fleetstock/pkg/clients/whatsapp"
)

type stubDigest struct {
	body   string
	hasLow bool
}

func (s stubDigest) LowStockDigest(context.Context) (string, bool, error) {
	return s.body, s.hasLow, nil
}

type fakeClient struct {
	sent []whatsapp.SendTextMessageRequest
	err  error
}

func (f *fakeClient) SendTextMessage(_ context.Context, req whatsapp.SendTextMessageRequest) (*whatsapp.SendTextMessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, req)
	return &whatsapp.SendTextMessageResponse{}, nil
}

func TestSendLowStockDigest_Sent(t *testing.T) {
	repos := memory.New().Repositories()
	client := &fakeClient{}
	svc := NewService(stubDigest{body: "Low stock: FF-100", hasLow: true}, repos.Messages, client, "224600000000", nil)

	msg, err := svc.SendLowStockDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, msg.Status)
	require.Len(t, client.sent, 1)
	assert.Equal(t, "224600000000", client.sent[0].To)

	recent, err := svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, Channel, recent[0].Channel)
}

func TestSendLowStockDigest_FailureIsRecorded(t *testing.T) {
	repos := memory.New().Repositories()
	client := &fakeClient{err: errors.New("boom")}
	svc := NewService(stubDigest{body: "Low stock", hasLow: true}, repos.Messages, client, "x", nil)

	msg, err := svc.SendLowStockDigest(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.MessageFailed, msg.Status)
	assert.Equal(t, "boom", msg.Error)

	recent, err := repos.Messages.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestSendLowStockDigest_DisabledClientSkips(t *testing.T) {
	repos := memory.New().Repositories()
	svc := NewService(stubDigest{body: "Low stock", hasLow: true}, repos.Messages, nil, "", nil)

	msg, err := svc.SendLowStockDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MessageSkipped, msg.Status)
}

func TestSendLowStockDigest_NothingLow(t *testing.T) {
	repos := memory.New().Repositories()
	client := &fakeClient{}
	svc := NewService(stubDigest{hasLow: false}, repos.Messages, client, "x", nil)

	msg, err := svc.SendLowStockDigest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msg.Status)
	assert.Empty(t, client.sent)
}
