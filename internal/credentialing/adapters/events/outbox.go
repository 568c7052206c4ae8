// Package events adapts credentialing events onto the transactional outbox.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vetting/internal/credentialing/models"
	"vetting/pkg/platform/outbox"
)

// AggregateProvider is the outbox aggregate type for credentialing events.
const AggregateProvider = "provider"

// OutboxPublisher writes events to the outbox. With a Postgres outbox store
// the rows join the provider transaction carried by ctx.
type OutboxPublisher struct {
	store outbox.Store
	newID func() uuid.UUID
}

func NewOutboxPublisher(store outbox.Store) (*OutboxPublisher, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	return &OutboxPublisher{store: store, newID: uuid.New}, nil
}

func (p *OutboxPublisher) Publish(ctx context.Context, evs ...models.Event) error {
	if len(evs) == 0 {
		return nil
	}
	entries := make([]outbox.Entry, 0, len(evs))
	for _, ev := range evs {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", ev.Type, err)
		}
		entries = append(entries, outbox.Entry{
			ID:            p.newID(),
			AggregateType: AggregateProvider,
			AggregateID:   ev.ProviderID.String(),
			EventType:     string(ev.Type),
			Payload:       payload,
			CreatedAt:     ev.OccurredAt,
		})
	}
	return p.store.Append(ctx, entries...)
}
