// Package alerts delivers the low-stock digest and keeps the outbound message log.
package alerts

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/domain/models"
	"github.com/mamadbah2/fleetstock/internal/repository"
	"github.com/mamadbah2/fleetstock/pkg/clients/whatsapp"
)

// Channel is the value stored on every message this service records.
const Channel = "whatsapp"

// DigestSource produces the low-stock digest text.
type DigestSource interface {
	LowStockDigest(ctx context.Context) (string, bool, error)
}

// Service sends low-stock digests. A nil client means delivery is disabled
// and digests are only logged.
type Service struct {
	digests   DigestSource
	messages  repository.MessageRepository
	client    whatsapp.Client
	recipient string
	logger    *zap.Logger
}

// NewService wires the notifier.
func NewService(digests DigestSource, messages repository.MessageRepository, client whatsapp.Client, recipient string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		digests:   digests,
		messages:  messages,
		client:    client,
		recipient: recipient,
		logger:    logger,
	}
}

// SendLowStockDigest sends the digest when at least one item is low. The
// attempt is recorded in the message log, and the zero Message is returned
// when nothing is low.
func (s *Service) SendLowStockDigest(ctx context.Context) (models.Message, error) {
	body, hasLow, err := s.digests.LowStockDigest(ctx)
	if err != nil {
		return models.Message{}, fmt.Errorf("build low-stock digest: %w", err)
	}
	if !hasLow {
		s.logger.Debug("no low-stock items, digest not sent")
		return models.Message{}, nil
	}

	msg := models.Message{
		Channel:   Channel,
		Recipient: s.recipient,
		Body:      body,
	}

	var sendErr error
	switch {
	case s.client == nil:
		msg.Status = models.MessageSkipped
		s.logger.Info("whatsapp disabled, low-stock digest logged only", zap.String("digest", body))
	default:
		resp, err := s.client.SendTextMessage(ctx, whatsapp.SendTextMessageRequest{To: s.recipient, Body: body})
		if err != nil {
			sendErr = err
			msg.Status = models.MessageFailed
			msg.Error = err.Error()
			s.logger.Error("failed to send low-stock digest", zap.Error(err))
		} else {
			msg.Status = models.MessageSent
			s.logger.Info("low-stock digest sent", zap.String("recipient", s.recipient), zap.String("message_id", resp.MessageID()))
		}
	}

	saved, err := s.messages.Save(ctx, msg)
	if err != nil {
		s.logger.Error("failed to record outbound message", zap.Error(err))
		saved = msg
	}

	if sendErr != nil {
		return saved, fmt.Errorf("send low-stock digest: %w", sendErr)
	}
	return saved, nil
}

// Recent lists the latest outbound messages, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.messages.ListRecent(ctx, limit)
}
