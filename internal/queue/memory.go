package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Compile-time check that MemoryQueue implements Queue.
var _ Queue = (*MemoryQueue)(nil)

// memItem is one queued job inside a MemoryQueue.
type memItem struct {
	env        envelope
	readyAt    time.Time
	leaseUntil time.Time
}

// MemoryQueue is an in-memory Queue with the same delivery, retry and
// bookkeeping semantics as RedisQueue. Suitable for development and tests.
type MemoryQueue struct {
	mu        sync.Mutex
	opts      Options
	items     []*memItem
	dead      []envelope
	completed []envelope
	failed    []envelope
}

// NewMemoryQueue creates a new in-memory queue.
func NewMemoryQueue(opts Options) *MemoryQueue {
	opts.normalize()
	return &MemoryQueue{opts: opts}
}

// Enqueue validates the job and makes it immediately available.
func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, &memItem{env: envelope{Job: job, Attempt: 1}})
	return nil
}

// Dequeue blocks until a job is leased to the caller or ctx ends.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if d := q.tryLease(); d != nil {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *MemoryQueue) tryLease() *Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for _, it := range q.items {
		// Expired leases are redelivered with the attempt unchanged.
		if !it.leaseUntil.IsZero() && it.leaseUntil.Before(now) {
			it.leaseUntil = time.Time{}
		}
		if !it.leaseUntil.IsZero() || it.readyAt.After(now) {
			continue
		}
		it.leaseUntil = now.Add(q.opts.Lease)
		return &Delivery{
			Job:       it.env.Job,
			Attempt:   it.env.Attempt,
			LastError: it.env.LastError,
			tag:       it,
		}
	}
	return nil
}

// Ack removes the delivery and records it in the bounded completed history.
func (q *MemoryQueue) Ack(_ context.Context, d *Delivery) error {
	it, ok := d.tag.(*memItem)
	if !ok {
		return errors.New("queue: delivery does not belong to this queue")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.remove(it)
	q.completed = prependBounded(q.completed, it.env, q.opts.KeepCompleted)
	return nil
}

// Nack reschedules with backoff while attempts remain and retry is
// requested; otherwise the job moves to the dead set.
func (q *MemoryQueue) Nack(_ context.Context, d *Delivery, reason string, retry bool) (bool, error) {
	it, ok := d.tag.(*memItem)
	if !ok {
		return false, errors.New("queue: delivery does not belong to this queue")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.remove(it)

	env := envelope{Job: it.env.Job, Attempt: it.env.Attempt + 1, LastError: reason}
	if retry && it.env.Attempt < q.opts.MaxAttempts {
		q.items = append(q.items, &memItem{
			env:     env,
			readyAt: time.Now().Add(q.opts.backoffFor(it.env.Attempt)),
		})
		return true, nil
	}
	q.dead = append(q.dead, env)
	q.failed = prependBounded(q.failed, env, q.opts.KeepFailed)
	return false, nil
}

// Dead returns the jobs that exhausted their attempts.
func (q *MemoryQueue) Dead() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return jobsOf(q.dead)
}

// Completed returns the bounded recent-completion history, newest first.
func (q *MemoryQueue) Completed() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return jobsOf(q.completed)
}

// FailedHistory returns the bounded recent-failure history, newest first.
func (q *MemoryQueue) FailedHistory() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return jobsOf(q.failed)
}

// Pending returns how many jobs are queued or leased.
func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *MemoryQueue) remove(it *memItem) {
	for i, cur := range q.items {
		if cur == it {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func prependBounded(list []envelope, env envelope, limit int) []envelope {
	list = append([]envelope{env}, list...)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func jobsOf(envs []envelope) []Job {
	jobs := make([]Job, len(envs))
	for i, e := range envs {
		jobs[i] = e.Job
	}
	return jobs
}
