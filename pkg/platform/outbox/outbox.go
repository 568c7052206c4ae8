// Package outbox implements the transactional outbox: events are written next
// to the facts that caused them and relayed to the broker afterwards.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one event waiting to be (or already) published.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Store persists entries. Append joins the transaction carried by ctx when
// the implementation supports one.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	// Pending returns unpublished entries, oldest first.
	Pending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers entries to the broker. Delivery is at least once;
// consumers deduplicate on the entry id.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) error
}
