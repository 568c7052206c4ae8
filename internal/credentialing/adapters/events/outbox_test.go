package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetting/internal/credentialing/models"
	id "vetting/pkg/domain"
	"vetting/pkg/platform/outbox"
	"vetting/pkg/platform/outbox/store/memory"
)

type failingStore struct{ outbox.Store }

func (failingStore) Append(context.Context, ...outbox.Entry) error {
	return errors.New("write failed")
}

func TestOutboxPublisher(t *testing.T) {
	_, err := NewOutboxPublisher(nil)
	require.ErrorContains(t, err, "outbox store is required")

	store := memory.NewInMemoryStore()
	pub, err := NewOutboxPublisher(store)
	require.NoError(t, err)

	pid := id.NewProviderID()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ev := models.StatusChanged(pid, models.Transition{
		From: models.StatusPendingReview,
		To:   models.StatusApproved,
		At:   at,
	})
	ev.RequestID = "req-1"

	require.NoError(t, pub.Publish(context.Background()))
	require.NoError(t, pub.Publish(context.Background(), ev))

	all := store.All()
	require.Len(t, all, 1)
	e := all[0]
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, AggregateProvider, e.AggregateType)
	assert.Equal(t, pid.String(), e.AggregateID)
	assert.Equal(t, string(models.EventStatusChanged), e.EventType)
	assert.Equal(t, at, e.CreatedAt)
	assert.Nil(t, e.PublishedAt)

	var decoded models.Event
	require.NoError(t, json.Unmarshal(e.Payload, &decoded))
	assert.Equal(t, models.StatusApproved, decoded.To)
	assert.Equal(t, "req-1", decoded.RequestID)

	failing, err := NewOutboxPublisher(failingStore{})
	require.NoError(t, err)
	assert.Error(t, failing.Publish(context.Background(), ev))
}
