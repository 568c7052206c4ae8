// Package store holds credentialing profile persistence.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"vetting/internal/credentialing/models"
	id "vetting/pkg/domain"
	"vetting/pkg/platform/sentinel"
)

// InMemory keeps one deep copy per profile. Readers never share memory with
// a profile being mutated under the provider lock.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.ProviderID]*models.Profile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.ProviderID]*models.Profile)}
}

func (s *InMemory) FindByProviderID(_ context.Context, providerID id.ProviderID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[providerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// Save replaces the stored copy with profile, which already carries changes.
func (s *InMemory) Save(_ context.Context, profile *models.Profile, changes models.Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[profile.ProviderID]
	switch {
	case changes.Created && ok:
		return fmt.Errorf("profile %s already exists: %w", profile.ProviderID, sentinel.ErrConflict)
	case !changes.Created && !ok:
		return fmt.Errorf("profile %s: %w", profile.ProviderID, sentinel.ErrNotFound)
	case ok && profile.LastSeq < existing.LastSeq:
		return fmt.Errorf("profile %s is behind the stored copy: %w", profile.ProviderID, sentinel.ErrConflict)
	}
	s.profiles[profile.ProviderID] = profile.Clone()
	return nil
}

func (s *InMemory) ListProviderIDs(_ context.Context) ([]id.ProviderID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]id.ProviderID, 0, len(s.profiles))
	for pid := range s.profiles {
		ids = append(ids, pid)
	}
	slices.SortFunc(ids, func(a, b id.ProviderID) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids, nil
}

func (s *InMemory) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	ids, _ := s.ListProviderIDs(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Profile, 0, len(ids))
	for _, pid := range ids {
		if p, ok := s.profiles[pid]; ok {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}
