package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sequencer hands out monotonically increasing sequence numbers per key.
// Lot/serial numbering requires that concurrent creation never produces
// duplicates, so the production implementation is an atomic Redis counter;
// the unique constraint on lot_number/serial_number is the backstop.
type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}

// seqTTL keeps day-scoped counters from accumulating forever. Counters are
// keyed per tenant+prefix+day, so 90 days comfortably outlives any retry.
const seqTTL = 90 * 24 * time.Hour

type redisSequencer struct{ rdb *redis.Client }

func NewRedisSequencer(rdb *redis.Client) Sequencer { return &redisSequencer{rdb: rdb} }

func (s *redisSequencer) Next(ctx context.Context, key string) (int64, error) {
	full := "seq:" + key
	n, err := s.rdb.Incr(ctx, full).Result()
	if err != nil {
		return 0, fmt.Errorf("sequence incr %s: %w", key, err)
	}
	if n == 1 {
		// First use of this counter — set the expiry once.
		_ = s.rdb.Expire(ctx, full, seqTTL).Err()
	}
	return n, nil
}
