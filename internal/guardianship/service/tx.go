package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "pawhaven/pkg/domain"
	dErrors "pawhaven/pkg/domain-errors"
)

// StoreTx provides a transactional boundary for guardianship mutations.
// Implementations wrap a database transaction or, in memory, a sharded lock.
// The stores handed to fn are bound to the transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(stores TxStores) error) error
}

// TxStores are the stores visible inside a transaction.
type TxStores struct {
	Guardianships Store
	Animals       AnimalStore
}

// numGuardianshipShards spreads in-memory transactions over N mutexes keyed by
// guardianship id so unrelated guardianships never wait on each other.
const numGuardianshipShards = 128

// DefaultTxTimeout bounds a transaction when the caller has no deadline.
const DefaultTxTimeout = 5 * time.Second

type shardedGuardianshipTx struct {
	shards  [numGuardianshipShards]sync.Mutex
	stores  TxStores
	timeout time.Duration
}

// NewShardedTx returns the in-memory StoreTx. Transactions on the same
// guardianship id are serialized; the stores themselves provide copy-on-read
// isolation.
func NewShardedTx(stores TxStores) StoreTx {
	return &shardedGuardianshipTx{stores: stores}
}

func (t *shardedGuardianshipTx) RunInTx(ctx context.Context, fn func(stores TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(t.stores)
}

// selectShard picks a shard from the guardianship id in context, or shard 0.
func (t *shardedGuardianshipTx) selectShard(ctx context.Context) int {
	if gid, ok := ctx.Value(txGuardianshipKeyCtx).(id.GuardianshipID); ok && !gid.IsNil() {
		return int(hashString(gid.String()) % numGuardianshipShards)
	}
	return 0
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

type txGuardianshipKey struct{}

var txGuardianshipKeyCtx = txGuardianshipKey{}

// withTxKey tags ctx with the guardianship a transaction will lock.
func withTxKey(ctx context.Context, guardianshipID id.GuardianshipID) context.Context {
	return context.WithValue(ctx, txGuardianshipKeyCtx, guardianshipID)
}
