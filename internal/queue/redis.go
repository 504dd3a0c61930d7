package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time check that RedisQueue implements Queue.
var _ Queue = (*RedisQueue)(nil)

// RedisQueue is a Redis-backed Queue. Per queue name it keeps a waiting
// list, an active list for leased deliveries, a delayed zset scored by
// ready time, a leases zset scored by lease expiry, a dead list, and
// bounded completed/failed history lists.
type RedisQueue struct {
	client redis.UniversalClient
	name   string
	opts   Options
	logger *slog.Logger
}

// NewRedisQueue creates a queue named name on the given Redis client.
func NewRedisQueue(client redis.UniversalClient, name string, opts Options, logger *slog.Logger) *RedisQueue {
	opts.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisQueue{
		client: client,
		name:   name,
		opts:   opts,
		logger: logger,
	}
}

func (q *RedisQueue) key(suffix string) string {
	return "clipforge:queue:" + q.name + ":" + suffix
}

// Enqueue validates the job and pushes it onto the waiting list.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(envelope{Job: job, Attempt: 1})
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key("waiting"), raw).Err(); err != nil {
		return fmt.Errorf("queue: enqueue: %w", err)
	}
	return nil
}

// Dequeue blocks until a job is leased to the caller. It also promotes due
// delayed jobs and reclaims expired leases on each poll.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.promoteDelayed(ctx)
		q.reclaimExpired(ctx)

		raw, err := q.client.BLMove(ctx, q.key("waiting"), q.key("active"), "RIGHT", "LEFT", time.Second).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("queue: dequeue: %w", err)
		}

		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			// Undecodable payloads cannot be processed or retried.
			q.logger.Error("discarding corrupt queue payload", slog.String("error", err.Error()))
			q.discard(ctx, raw)
			continue
		}

		expiry := float64(time.Now().Add(q.opts.Lease).UnixMilli())
		if err := q.client.ZAdd(ctx, q.key("leases"), redis.Z{Score: expiry, Member: raw}).Err(); err != nil {
			return nil, fmt.Errorf("queue: record lease: %w", err)
		}

		return &Delivery{
			Job:       env.Job,
			Attempt:   env.Attempt,
			LastError: env.LastError,
			tag:       raw,
		}, nil
	}
}

// Ack removes the delivery and records it in the bounded completed history.
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	raw, ok := d.tag.(string)
	if !ok {
		return errors.New("queue: delivery does not belong to this queue")
	}
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.key("active"), 1, raw)
	pipe.ZRem(ctx, q.key("leases"), raw)
	pipe.LPush(ctx, q.key("completed"), raw)
	pipe.LTrim(ctx, q.key("completed"), 0, int64(q.opts.KeepCompleted-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: ack: %w", err)
	}
	return nil
}

// Nack reschedules the job with backoff while attempts remain and retry is
// requested; otherwise the job moves to the dead set and the bounded failed
// history.
func (q *RedisQueue) Nack(ctx context.Context, d *Delivery, reason string, retry bool) (bool, error) {
	raw, ok := d.tag.(string)
	if !ok {
		return false, errors.New("queue: delivery does not belong to this queue")
	}
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.key("active"), 1, raw)
	pipe.ZRem(ctx, q.key("leases"), raw)

	requeue := retry && d.Attempt < q.opts.MaxAttempts
	next, err := json.Marshal(envelope{Job: d.Job, Attempt: d.Attempt + 1, LastError: reason})
	if err != nil {
		return false, fmt.Errorf("queue: marshal job: %w", err)
	}
	if requeue {
		readyAt := float64(time.Now().Add(q.opts.backoffFor(d.Attempt)).UnixMilli())
		pipe.ZAdd(ctx, q.key("delayed"), redis.Z{Score: readyAt, Member: next})
	} else {
		pipe.LPush(ctx, q.key("dead"), next)
		pipe.LPush(ctx, q.key("failed"), next)
		pipe.LTrim(ctx, q.key("failed"), 0, int64(q.opts.KeepFailed-1))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("queue: nack: %w", err)
	}
	return requeue, nil
}

// promoteDelayed moves due delayed jobs back onto the waiting list.
func (q *RedisQueue) promoteDelayed(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.key("delayed"), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil || len(due) == 0 {
		return
	}
	for _, raw := range due {
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, q.key("delayed"), raw)
		pipe.LPush(ctx, q.key("waiting"), raw)
		if _, err := pipe.Exec(ctx); err != nil {
			q.logger.Error("failed to promote delayed job", slog.String("error", err.Error()))
		}
	}
}

// reclaimExpired requeues deliveries whose lease ran out without an ack.
// The attempt count is unchanged: an abandoned delivery never reported a
// failure.
func (q *RedisQueue) reclaimExpired(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	expired, err := q.client.ZRangeByScore(ctx, q.key("leases"), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil || len(expired) == 0 {
		return
	}
	for _, raw := range expired {
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, q.key("leases"), raw)
		pipe.LRem(ctx, q.key("active"), 1, raw)
		pipe.LPush(ctx, q.key("waiting"), raw)
		if _, err := pipe.Exec(ctx); err != nil {
			q.logger.Error("failed to reclaim expired lease", slog.String("error", err.Error()))
		}
	}
}

func (q *RedisQueue) discard(ctx context.Context, raw string) {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.key("active"), 1, raw)
	pipe.LPush(ctx, q.key("dead"), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error("failed to discard payload", slog.String("error", err.Error()))
	}
}
