package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/fleetstock/internal/config"
	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

type countingAlerts struct{ calls int }

func (c *countingAlerts) SendLowStockDigest(context.Context) (models.Message, error) {
	c.calls++
	return models.Message{Status: models.MessageSent}, nil
}

type countingLedger struct{ calls int }

func (c *countingLedger) Sync(context.Context) (int, error) {
	c.calls++
	return 3, nil
}

func TestScheduler_RegistersConfiguredJobs(t *testing.T) {
	cfg := config.ScheduleConfig{LowStockDigest: "0 7 * * *", SheetsSync: "*/30 * * * *"}

	s := NewScheduler(cfg, &countingAlerts{}, &countingLedger{}, nil)
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	assert.Equal(t, 2, s.Jobs())
}

func TestScheduler_SkipsLedgerWhenDisabled(t *testing.T) {
	cfg := config.ScheduleConfig{LowStockDigest: "0 7 * * *", SheetsSync: "*/30 * * * *"}

	s := NewScheduler(cfg, &countingAlerts{}, nil, nil)
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	assert.Equal(t, 1, s.Jobs())
}

func TestScheduler_RejectsBadExpression(t *testing.T) {
	s := NewScheduler(config.ScheduleConfig{LowStockDigest: "every morning"}, &countingAlerts{}, nil, nil)
	assert.Error(t, s.Start())
}

func TestScheduler_JobsCallServices(t *testing.T) {
	alerts := &countingAlerts{}
	ledger := &countingLedger{}
	s := NewScheduler(config.ScheduleConfig{}, alerts, ledger, nil)

	s.sendLowStockDigest()
	s.syncLedger()

	assert.Equal(t, 1, alerts.calls)
	assert.Equal(t, 1, ledger.calls)
}
