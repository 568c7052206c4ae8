package service

import (
	"context"
	"sync"
	"time"

	id "vetting/pkg/domain"
	dErrors "vetting/pkg/domain-errors"
)

// numProviderShards spreads providers over a fixed set of mutexes so
// different providers rarely contend.
const numProviderShards = 128

// defaultTxTimeout is the maximum duration of one provider transaction.
const defaultTxTimeout = 5 * time.Second

// ShardedTx is the in-process ProviderTx. Writes go straight to the store;
// the in-memory store applies each Save atomically.
type ShardedTx struct {
	shards  [numProviderShards]sync.Mutex
	store   Store
	timeout time.Duration
}

func NewShardedTx(store Store) *ShardedTx {
	return &ShardedTx{store: store, timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, providerID id.ProviderID, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := hashProvider(providerID.String()) % numProviderShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

// hashProvider is FNV-1a.
func hashProvider(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
