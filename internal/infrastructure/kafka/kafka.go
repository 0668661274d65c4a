// Package kafka publishes order event envelopes to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/eventsink"
)

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink writes one Kafka message per event. Messages are keyed by order id
// and hash-balanced, so one order's events share a partition.
type Sink struct {
	w messageWriter
}

func NewSink(brokers []string, topic string) *Sink {
	return &Sink{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (s *Sink) Name() string { return "kafka" }

func (s *Sink) Send(ctx context.Context, m eventsink.Message) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(m.Key),
		Value: data,
		Time:  m.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(m.Name)},
			{Key: "event_id", Value: []byte(m.ID.String())},
		},
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", m.Name, err)
	}
	return nil
}

// Close flushes pending writes.
func (s *Sink) Close() error { return s.w.Close() }
