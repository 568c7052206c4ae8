package storage

import (
	"context"
	"fmt"
	"sync"

	"vetting/pkg/platform/sentinel"
)

// Memory is an in-process ObjectStore for development and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	meta    map[string]Metadata
}

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		meta:    make(map[string]Metadata),
	}
}

func (m *Memory) Put(_ context.Context, content []byte, meta Metadata) (string, error) {
	key := newKey(meta)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), content...)
	m.meta[key] = meta
	return key, nil
}

func (m *Memory) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[ref]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", ref, sentinel.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	delete(m.meta, ref)
	return nil
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
