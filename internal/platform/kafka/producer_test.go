package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetting/internal/platform/config"
	"vetting/pkg/platform/outbox"
)

func TestRecord(t *testing.T) {
	e := outbox.Entry{
		ID:            uuid.New(),
		AggregateType: "provider",
		AggregateID:   "3f8f7c2e-0000-4000-8000-000000000001",
		EventType:     "status_changed",
		Payload:       []byte(`{"to":"approved"}`),
		CreatedAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	r := Record("credentialing.events", e)
	assert.Equal(t, "credentialing.events", r.Topic)
	assert.Equal(t, []byte(e.AggregateID), r.Key)
	assert.Equal(t, e.Payload, r.Value)
	assert.Equal(t, e.CreatedAt, r.Timestamp)

	headers := map[string]string{}
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, e.ID.String(), headers[HeaderEventID])
	assert.Equal(t, "status_changed", headers[HeaderEventType])
	assert.Equal(t, "provider", headers[HeaderAggregateType])
}

func TestNewProducerRequiresConfig(t *testing.T) {
	_, err := NewProducer(context.Background(), config.Kafka{Topic: "t"}, nil)
	require.ErrorContains(t, err, "kafka brokers are required")

	_, err = NewProducer(context.Background(), config.Kafka{Brokers: []string{"localhost:9092"}}, nil)
	require.ErrorContains(t, err, "kafka topic is required")
}
