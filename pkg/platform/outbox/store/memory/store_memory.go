package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vetting/pkg/platform/outbox"
)

// InMemoryStore keeps entries in append order.
type InMemoryStore struct {
	mu      sync.Mutex
	entries []outbox.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entries ...outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *InMemoryStore) Pending(_ context.Context, limit int) ([]outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Entry
	for _, e := range s.entries {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range s.entries {
		if _, ok := set[s.entries[i].ID]; ok && s.entries[i].PublishedAt == nil {
			t := at
			s.entries[i].PublishedAt = &t
		}
	}
	return nil
}

// All returns every entry, published or not.
func (s *InMemoryStore) All() []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Entry{}, s.entries...)
}
