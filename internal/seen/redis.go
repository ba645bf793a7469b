package seen

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/nishad/enaimport/internal/errors"
)

// DefaultTTL keeps a day's set a little longer than the day itself.
const DefaultTTL = 36 * time.Hour

// Redis shares handled accessions between processes.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to addr and checks the connection.
func NewRedis(ctx context.Context, addr, prefix string, ttl time.Duration) (*Redis, error) {
	const op = apperrors.Op("seen.NewRedis")
	if addr == "" {
		return nil, apperrors.E(op, apperrors.KindConfig, fmt.Errorf("redis address required"))
	}
	if prefix == "" {
		prefix = "enaimport:handled"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperrors.E(op, apperrors.KindNetwork, err, "redis ping")
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) key(day time.Time) string {
	return r.prefix + ":" + dayKey(day)
}

func (r *Redis) Mark(ctx context.Context, day time.Time, accession string) (bool, error) {
	key := r.key(day)
	pipe := r.rdb.TxPipeline()
	added := pipe.SAdd(ctx, key, accession)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, apperrors.E(apperrors.Op("seen.Redis.Mark"), apperrors.KindNetwork, err)
	}
	return added.Val() == 1, nil
}

func (r *Redis) Seen(ctx context.Context, day time.Time, accession string) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, r.key(day), accession).Result()
	if err != nil {
		return false, apperrors.E(apperrors.Op("seen.Redis.Seen"), apperrors.KindNetwork, err)
	}
	return ok, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
