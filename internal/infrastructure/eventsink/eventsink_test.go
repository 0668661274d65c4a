package eventsink_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/eventsink"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/observability/zaplogger"
)

func TestNewMessage(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	e := order.OrderCreatedEvent{
		OrderID:     12,
		CustomerID:  3,
		TotalAmount: decimal.RequireFromString("15.00"),
	}

	m, err := eventsink.NewMessage(e, now)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, "order.created", m.Name)
	assert.Equal(t, "12", m.Key)
	assert.Equal(t, time.UTC, m.OccurredAt.Location())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(m.Payload, &payload))
	assert.EqualValues(t, 12, payload["orderId"])
	assert.EqualValues(t, 3, payload["customerId"])

	raw, err := m.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"order.created"`)
	assert.Contains(t, string(raw), `"payload":{"orderId":12`)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := eventsink.NewLogSink(zaplogger.New(zap.New(core)))

	m, err := eventsink.NewMessage(order.NewOrderDeletedEvent(5, true), time.Now())
	require.NoError(t, err)
	require.NoError(t, sink.Send(context.Background(), m))
	require.NoError(t, sink.Close())

	entries := logs.FilterMessage("event_published").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "order.deleted", entries[0].ContextMap()["event"])
	assert.Equal(t, "5", entries[0].ContextMap()["key"])
	assert.Equal(t, "log", sink.Name())
}
