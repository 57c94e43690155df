package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper guards a habit against reminding more than once per day.
type Deduper interface {
	// AcquireOnce returns true the first time it is called for a given
	// habit and date.
	AcquireOnce(ctx context.Context, habitID int, date string) bool
	// Release undoes an acquire so a failed publish can retry.
	Release(ctx context.Context, habitID int, date string)
}

// memoryDeduper tracks firings in process memory. Good enough for a single
// instance; a restart may repeat a reminder.
type memoryDeduper struct {
	sent map[int]string
}

func NewMemoryDeduper() Deduper {
	return &memoryDeduper{sent: map[int]string{}}
}

func (d *memoryDeduper) AcquireOnce(ctx context.Context, habitID int, date string) bool {
	if d.sent[habitID] == date {
		return false
	}
	d.sent[habitID] = date
	return true
}

func (d *memoryDeduper) Release(ctx context.Context, habitID int, date string) {
	if d.sent[habitID] == date {
		delete(d.sent, habitID)
	}
}

// redisDeduper coordinates firings across instances with SetNX. The TTL
// outlives the day the key encodes, so expiry never re-opens a past date.
type redisDeduper struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisDeduper(rdb *redis.Client, logger *zap.Logger) Deduper {
	return &redisDeduper{rdb: rdb, logger: logger}
}

func dedupKey(habitID int, date string) string {
	return fmt.Sprintf("reminder:sent:%d:%s", habitID, date)
}

func (d *redisDeduper) AcquireOnce(ctx context.Context, habitID int, date string) bool {
	ok, err := d.rdb.SetNX(ctx, dedupKey(habitID, date), 1, 36*time.Hour).Result()
	if err != nil {
		// When Redis is down a duplicate reminder beats a missing one.
		d.logger.Warn("Reminder dedup check failed, allowing send",
			zap.Int("habit_id", habitID),
			zap.Error(err),
		)
		return true
	}
	return ok
}

func (d *redisDeduper) Release(ctx context.Context, habitID int, date string) {
	if err := d.rdb.Del(ctx, dedupKey(habitID, date)).Err(); err != nil {
		d.logger.Warn("Failed to release reminder dedup key",
			zap.Int("habit_id", habitID),
			zap.Error(err),
		)
	}
}
