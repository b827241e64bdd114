package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const lockPrefix = "lock."

// DefaultLockTTL ограничивает время жизни блокировки упавшего владельца
const DefaultLockTTL = 30 * time.Second

// снимаем блокировку, только если она всё ещё наша
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockNotHeld = errors.New("lock not held")

// Locker - распределённая блокировка листа на SET NX PX.
// Реализует lock.Locker; один экземпляр на процесс.
type Locker struct {
	client *Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

func (c *Client) NewLocker(name string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{
		client: c,
		key:    servicePrefix + lockPrefix + name,
		ttl:    ttl,
	}
}

func (l *Locker) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != "" {
		// блокировка уже у этого процесса
		return false, nil
	}

	token := uuid.New().String()
	ok, err := l.client.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis set nx %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == "" {
		return ErrLockNotHeld
	}
	token := l.token
	l.token = ""

	n, err := unlockScript.Run(ctx, l.client.client, []string{l.key}, token).Int()
	if err != nil {
		return fmt.Errorf("redis unlock %s: %w", l.key, err)
	}
	if n == 0 {
		// TTL истёк и блокировку мог забрать другой процесс
		logrus.Warnf("redis lock %s expired before release", l.key)
	}
	return nil
}
