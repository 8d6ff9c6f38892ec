package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	rdb    *redis.Client
	prefix string
	log    *logrus.Logger
}

func NewRedis(rdb *redis.Client, log *logrus.Logger) *Redis {
	if log == nil {
		log = logrus.New()
	}
	return &Redis{rdb: rdb, prefix: "lock:", log: log}
}

func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	k := r.prefix + key
	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}

	return func() {
		// release even if the request context is gone
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.rdb, []string{k}, token).Err(); err != nil {
			r.log.WithError(err).WithField("key", k).Warn("lock release failed")
		}
	}, nil
}
