package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "pawhaven:lock:"

// releaseScript deletes the key only while it still holds our token, so a
// holder whose lease expired cannot release a lock another replica now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out leased, single-holder locks.
type Locker struct {
	client redis.UniversalClient
}

func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// TryLock attempts SET NX PX. It returns a release func when acquired and
// ok=false when another holder has the key.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	key := lockPrefix + name
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		return nil
	}, true, nil
}
