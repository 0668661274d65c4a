// Package eventsink defines the envelope order events travel in once they
// leave the process, and the Sink contract the Redis and Kafka adapters meet.
package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	domoutbox "github.com/FacumendezBT/tfu3-andis2/internal/domain/outbox"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
)

// Message is the wire envelope. Payload is the event encoded as JSON.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Key        string          `json:"key,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

func NewMessage(e domoutbox.Event, now time.Time) (Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Message{}, fmt.Errorf("eventsink: encode %s: %w", e.EventName(), err)
	}
	return Message{
		ID:         uuid.New(),
		Name:       e.EventName(),
		Key:        domoutbox.KeyOf(e),
		OccurredAt: now.UTC(),
		Payload:    payload,
	}, nil
}

func (m Message) Encode() ([]byte, error) { return json.Marshal(m) }

type Sink interface {
	// Name labels the sink in logs and metrics.
	Name() string
	Send(ctx context.Context, m Message) error
	Close() error
}

// LogSink writes each message to the log. It is the sink of last resort
// when no broker is configured.
type LogSink struct {
	log observability.Logger
}

func NewLogSink(log observability.Logger) *LogSink {
	if log == nil {
		log = observability.NopLogger()
	}
	return &LogSink{log: log.With(observability.F("sink", "log"))}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, m Message) error {
	s.log.Info("event_published",
		observability.F("event_id", m.ID.String()),
		observability.F("event", m.Name),
		observability.F("key", m.Key),
		observability.F("payload", string(m.Payload)),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
