package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domain "pagecraft/app/internal/domain/publishing"
	applog "pagecraft/app/internal/platform/log"
)

// dayKeyTTL keeps per-day counters a little longer than the widest query window.
const dayKeyTTL = 32 * 24 * time.Hour

// VisitCounter keeps visit totals in Redis. Recent counts are summed from per-day buckets,
// so the window is rounded to whole UTC days.
type VisitCounter struct {
	client *goredis.Client
	logger *logrus.Logger
	now    func() time.Time
}

// NewVisitCounter wraps an existing Redis client.
func NewVisitCounter(client *goredis.Client, logger *logrus.Logger) (*VisitCounter, error) {
	if client == nil {
		return nil, eris.New("redis client is required")
	}

	return &VisitCounter{client: client, logger: logger, now: time.Now}, nil
}

var (
	_ domain.VisitRecorder = (*VisitCounter)(nil)
	_ domain.VisitCounter  = (*VisitCounter)(nil)
)

// Record increments the page and platform counters. Visits without a resolved page are ignored.
// Only the counts are kept; referrer, user agent and IP address are not stored.
func (c *VisitCounter) Record(ctx context.Context, visit domain.Visit) error {
	if visit.PageID == "" {
		return nil
	}

	at := visit.VisitedAt
	if at.IsZero() {
		at = c.now()
	}

	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, pageID := range []string{visit.PageID, ""} {
			day := DayKey(pageID, at)
			pipe.Incr(ctx, TotalKey(pageID))
			pipe.Incr(ctx, day)
			pipe.Expire(ctx, day, dayKeyTTL)
		}
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "incrementing visit counters for page %s", visit.PageID)
	}

	return nil
}

// CountVisits reads the lifetime counter and sums the day buckets since the given time.
func (c *VisitCounter) CountVisits(ctx context.Context, pageID string, since time.Time) (domain.VisitCounts, error) {
	total, err := c.client.Get(ctx, TotalKey(pageID)).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		c.logError(pageID, err, "reading visit total")
		return domain.VisitCounts{}, eris.Wrap(err, "reading visit total")
	}

	counts := domain.VisitCounts{Total: total}

	keys := dayKeys(pageID, since, c.now())
	if len(keys) == 0 {
		return counts, nil
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logError(pageID, err, "reading daily visit counters")
		return domain.VisitCounts{}, eris.Wrap(err, "reading daily visit counters")
	}

	recent, err := sumCounters(values)
	if err != nil {
		return domain.VisitCounts{}, err
	}
	counts.Last30Days = recent

	return counts, nil
}

// sumCounters adds MGET replies, treating missing keys as zero.
func sumCounters(values []any) (int64, error) {
	var sum int64
	for _, value := range values {
		if value == nil {
			continue
		}

		raw, ok := value.(string)
		if !ok {
			return 0, eris.Errorf("unexpected counter value type %T", value)
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "parsing counter value %q", raw)
		}
		sum += n
	}
	return sum, nil
}

func (c *VisitCounter) logError(pageID string, err error, message string) {
	applog.ComponentError(c.logger, "redis.visits", logrus.Fields{"page_id": pageID}, err, message)
}
