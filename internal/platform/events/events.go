// Package events publishes domain events to Kafka so other systems (billing,
// pharmacy stock, reminders) can follow what happens in the clinic.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/medsys/clinic/internal/platform/telemetry"
)

const (
	PrescriptionCreated = "prescription.created"
	MedicationCreated   = "medication.created"
	PatientDeleted      = "patient.deleted"
	AlertsDigest        = "alerts.digest"
)

type Event struct {
	Type       string      `json:"type"`
	OwnerID    string      `json:"owner_id"`
	SubjectID  string      `json:"subject_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data,omitempty"`
}

func New(eventType, ownerID, subjectID string, data interface{}) Event {
	return Event{
		Type:       eventType,
		OwnerID:    ownerID,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// KafkaPublisher writes each event as one JSON message keyed by owner, so a
// practitioner's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	return kafka.Message{
		Key:   []byte(e.OwnerID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}, nil
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Memory keeps published events in order; handy for tests and the local
// workspace.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the type of every published event, in order.
func (m *Memory) Types() []string {
	events := m.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// Emit publishes e on a best-effort basis: a broker failure is logged and
// counted, never returned, because the record it describes is already saved.
func Emit(ctx context.Context, p Publisher, m *telemetry.Metrics, e Event) {
	if p == nil {
		return
	}
	err := p.Publish(ctx, e)
	m.EventPublished(e.Type, err)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("event_type", e.Type).
			Str("subject_id", e.SubjectID).
			Msg("event publish failed")
	}
}
