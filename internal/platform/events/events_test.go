package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	e := New(PrescriptionCreated, "owner-1", "rx-1", map[string]int{"items": 2})

	msg, err := encode(e)
	require.NoError(t, err)

	assert.Equal(t, "owner-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, PrescriptionCreated, string(msg.Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "rx-1", decoded["subject_id"])
	assert.Equal(t, float64(2), decoded["data"].(map[string]interface{})["items"])
}

func TestEncode_Unserializable(t *testing.T) {
	_, err := encode(New(AlertsDigest, "owner", "", make(chan int)))
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := &Memory{}
	ctx := context.Background()
	require.NoError(t, m.Publish(ctx, New(MedicationCreated, "o", "m1", nil)))
	require.NoError(t, m.Publish(ctx, New(PatientDeleted, "o", "p1", nil)))

	assert.Equal(t, []string{MedicationCreated, PatientDeleted}, m.Types())
	assert.NoError(t, m.Close())
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), New(AlertsDigest, "o", "", nil)))
	assert.NoError(t, p.Close())
}

func TestNewKafkaPublisher(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "medsys.events")
	assert.Equal(t, "medsys.events", p.writer.Topic)
	assert.NoError(t, p.Close())
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("broker down") }
func (failingPublisher) Close() error                         { return nil }

func TestEmit(t *testing.T) {
	m := &Memory{}
	Emit(context.Background(), m, nil, New(PatientDeleted, "o", "p1", nil))
	assert.Equal(t, []string{PatientDeleted}, m.Types())

	// Failures and a missing publisher are swallowed.
	Emit(context.Background(), failingPublisher{}, nil, New(PatientDeleted, "o", "p1", nil))
	Emit(context.Background(), nil, nil, New(PatientDeleted, "o", "p1", nil))
}
