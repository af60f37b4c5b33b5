package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/service/servicetest"
	"github.com/jwalitptl/studio-api/pkg/logger"
	"github.com/jwalitptl/studio-api/pkg/messaging"
	"github.com/jwalitptl/studio-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("studio_outbox_test")

// captureBroker marshals messages exactly like the redis broker, so the
// test observes the bytes that would reach subscribers.
type captureBroker struct {
	wire map[string][][]byte
	fail bool
}

func newCaptureBroker() *captureBroker {
	return &captureBroker{wire: make(map[string][][]byte)}
}

func (b *captureBroker) Publish(_ context.Context, channel string, message interface{}) error {
	if b.fail {
		return errors.New("broker unreachable")
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.wire[channel] = append(b.wire[channel], payload)
	return nil
}

func (b *captureBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (b *captureBroker) Close() error                                            { return nil }

func newProcessor(repo *servicetest.OutboxRepo, broker messaging.Broker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), testMetrics)
}

func addEvent(t *testing.T, repo *servicetest.OutboxRepo, eventType, payload string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &model.OutboxEvent{
		EventType: eventType,
		Payload:   json.RawMessage(payload),
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}))
}

func TestProcessEventsPublishesPayloadVerbatim(t *testing.T) {
	repo := servicetest.NewOutboxRepo()
	broker := newCaptureBroker()
	payload := `{"appointment_id":"a1","kind":"1hour"}`
	addEvent(t, repo, model.EventReminderFired, payload)

	require.NoError(t, newProcessor(repo, broker).processEvents(context.Background()))

	// The stored JSON must hit the wire unchanged, not as a base64 string.
	require.Len(t, broker.wire[messaging.ChannelReminders], 1)
	assert.JSONEq(t, payload, string(broker.wire[messaging.ChannelReminders][0]))
	assert.Equal(t, model.OutboxStatusProcessed, repo.Events[0].Status)
}

func TestProcessEventsRoutesByEventType(t *testing.T) {
	repo := servicetest.NewOutboxRepo()
	broker := newCaptureBroker()
	addEvent(t, repo, model.EventAppointmentCreated, `{"id":"a1"}`)
	addEvent(t, repo, model.EventReminderFired, `{"id":"a1","kind":"30min"}`)

	require.NoError(t, newProcessor(repo, broker).processEvents(context.Background()))

	assert.Len(t, broker.wire[messaging.ChannelAppointments], 1)
	assert.Len(t, broker.wire[messaging.ChannelReminders], 1)
}

func TestProcessEventsMarksFailureAndKeepsGoing(t *testing.T) {
	repo := servicetest.NewOutboxRepo()
	broker := newCaptureBroker()
	broker.fail = true
	addEvent(t, repo, model.EventAppointmentCreated, `{"id":"a1"}`)

	require.NoError(t, newProcessor(repo, broker).processEvents(context.Background()))

	stored := repo.Events[0]
	assert.Equal(t, model.OutboxStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "broker unreachable")
}
