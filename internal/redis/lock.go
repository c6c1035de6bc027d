package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const ledgerLockPrefix = "lock:ledger:"

// Only the holder may extend or drop the lock.
var (
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// LedgerLock keeps a second server instance from opening the same ledger.
type LedgerLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewLedgerLock creates a lock for the ledger at path.
func NewLedgerLock(client *redis.Client, path string, ttl time.Duration) *LedgerLock {
	return &LedgerLock{
		client: client,
		key:    ledgerLockPrefix + path,
		token:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire takes the lock. Returns false if another instance holds it.
func (l *LedgerLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

// Refresh extends the lock. Returns false if it was lost.
func (l *LedgerLock) Refresh(ctx context.Context) (bool, error) {
	n, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release drops the lock if still held by this instance.
func (l *LedgerLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

// KeepAlive refreshes the lock every ttl/3 until ctx ends. onLost is called
// once if the lock cannot be extended.
func (l *LedgerLock) KeepAlive(ctx context.Context, onLost func(error)) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := l.Refresh(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil || !ok {
				onLost(err)
				return
			}
		}
	}
}
