// Package indexing runs the write path: entity changes are enqueued,
// embedded, and stored in the vector index by background workers.
package indexing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arcforge/loredex/internal/domain"
	"github.com/arcforge/loredex/internal/metrics"
)

// Op identifies the kind of work a job carries.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Default pipeline tuning. Overridable via the With* builders.
const (
	DefaultQueueSize      = 1024
	DefaultWorkers        = 4
	DefaultMaxAttempts    = 5
	DefaultBackoffInitial = 200 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second
	DefaultJobTimeout     = 30 * time.Second
)

// Job is one unit of indexing work. For deletes Entity carries only
// identity and version.
type Job struct {
	ID     string
	Op     Op
	Entity domain.Entity
}

// FailureFunc is invoked after a job exhausts its attempts or fails
// with a permanent error. It runs on a worker goroutine.
type FailureFunc func(job Job, err error)

// Pipeline coalesces entity changes into a bounded queue and applies
// them through a pool of workers. Only the newest pending change per
// entity is kept; the version guard in the index settles races between
// in-flight jobs.
type Pipeline struct {
	embed  Embedder
	index  Index
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]Job
	queue   chan string

	workers        int
	maxAttempts    int
	backoffInitial time.Duration
	backoffMax     time.Duration
	jobTimeout     time.Duration
	onFailure      FailureFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a pipeline with default tuning. Call Start before
// enqueuing work.
func New(embed Embedder, index Index, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		embed:          embed,
		index:          index,
		logger:         logger,
		pending:        make(map[string]Job),
		queue:          make(chan string, DefaultQueueSize),
		workers:        DefaultWorkers,
		maxAttempts:    DefaultMaxAttempts,
		backoffInitial: DefaultBackoffInitial,
		backoffMax:     DefaultBackoffMax,
		jobTimeout:     DefaultJobTimeout,
	}
}

// WithQueueSize configures the bounded queue capacity.
func (p *Pipeline) WithQueueSize(size int) *Pipeline {
	if size > 0 {
		p.queue = make(chan string, size)
	}
	return p
}

// WithWorkers configures the worker pool size.
func (p *Pipeline) WithWorkers(n int) *Pipeline {
	if n > 0 {
		p.workers = n
	}
	return p
}

// WithRetry configures attempt count and backoff bounds.
func (p *Pipeline) WithRetry(maxAttempts int, initial, max time.Duration) *Pipeline {
	if maxAttempts > 0 {
		p.maxAttempts = maxAttempts
	}
	if initial > 0 {
		p.backoffInitial = initial
	}
	if max > 0 {
		p.backoffMax = max
	}
	return p
}

// WithJobTimeout configures the per-attempt deadline.
func (p *Pipeline) WithJobTimeout(d time.Duration) *Pipeline {
	if d > 0 {
		p.jobTimeout = d
	}
	return p
}

// WithFailureHook registers a callback for permanently failed jobs.
func (p *Pipeline) WithFailureHook(fn FailureFunc) *Pipeline {
	p.onFailure = fn
	return p
}

// Start launches the worker pool. Workers stop when ctx is cancelled
// or Close is called.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Close stops the workers and waits for in-flight jobs to finish.
// Pending queued jobs are dropped.
func (p *Pipeline) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// OnEntityUpserted enqueues an entity for (re)indexing. The entity is
// validated up front so callers get a synchronous ErrInvalidInput
// instead of a silent background failure.
func (p *Pipeline) OnEntityUpserted(entity domain.Entity) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	return p.enqueue(Job{ID: uuid.NewString(), Op: OpUpsert, Entity: entity})
}

// OnEntityDeleted enqueues removal of an entity from the index.
func (p *Pipeline) OnEntityDeleted(universeID, entityID string, version int64) error {
	if universeID == "" || entityID == "" {
		return fmt.Errorf("universe and entity ids are required: %w", domain.ErrInvalidInput)
	}
	return p.enqueue(Job{
		ID: uuid.NewString(),
		Op: OpDelete,
		Entity: domain.Entity{
			ID:         entityID,
			UniverseID: universeID,
			Version:    version,
		},
	})
}

// enqueue coalesces per entity: a change for an entity that already has
// a pending job replaces that job in place without consuming another
// queue slot. Upserts replace a pending job only when they carry a
// version at least as new; a delete always replaces whatever is pending,
// since deletes arrive unversioned and removal must not lose to a queued
// write for an entity that no longer exists.
func (p *Pipeline) enqueue(job Job) error {
	key := job.Entity.UniverseID + "/" + job.Entity.ID

	p.mu.Lock()
	if prev, ok := p.pending[key]; ok {
		if job.Op == OpDelete || job.Entity.Version >= prev.Entity.Version {
			p.pending[key] = job
			metrics.IndexingJobsTotal.WithLabelValues(string(prev.Op), "superseded").Inc()
		}
		p.mu.Unlock()
		return nil
	}
	p.pending[key] = job
	p.mu.Unlock()

	select {
	case p.queue <- key:
		metrics.IndexingQueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		p.mu.Lock()
		delete(p.pending, key)
		p.mu.Unlock()
		return fmt.Errorf("indexing queue at capacity: %w", domain.ErrQueueFull)
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-p.queue:
			metrics.IndexingQueueDepth.Set(float64(len(p.queue)))
			p.mu.Lock()
			job, ok := p.pending[key]
			delete(p.pending, key)
			p.mu.Unlock()
			if !ok {
				continue
			}
			p.run(ctx, job)
		}
	}
}

// run executes one job with bounded retries. Only transient errors are
// retried; everything else goes straight to the failure path.
func (p *Pipeline) run(ctx context.Context, job Job) {
	start := time.Now()
	op := string(job.Op)

	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err = p.attempt(ctx, job)
		if err == nil {
			metrics.IndexingJobsTotal.WithLabelValues(op, "ok").Inc()
			metrics.IndexingJobDuration.Observe(time.Since(start).Seconds())
			return
		}
		if !domain.IsRetryable(err) || attempt == p.maxAttempts {
			break
		}
		metrics.IndexingRetriesTotal.Inc()
		p.logger.Warn("indexing attempt failed, retrying",
			zap.String("job_id", job.ID),
			zap.String("op", op),
			zap.String("universe_id", job.Entity.UniverseID),
			zap.String("entity_id", job.Entity.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if !p.sleep(ctx, p.backoff(attempt)) {
			break
		}
	}

	metrics.IndexingJobsTotal.WithLabelValues(op, "failed").Inc()
	metrics.IndexingJobDuration.Observe(time.Since(start).Seconds())
	p.logger.Error("indexing job failed",
		zap.String("job_id", job.ID),
		zap.String("op", op),
		zap.String("universe_id", job.Entity.UniverseID),
		zap.String("entity_id", job.Entity.ID),
		zap.Error(err),
	)
	if p.onFailure != nil {
		p.onFailure(job, err)
	}
}

func (p *Pipeline) attempt(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	switch job.Op {
	case OpDelete:
		if err := p.index.Delete(ctx, job.Entity.UniverseID, job.Entity.ID); err != nil {
			return fmt.Errorf("delete entity: %w", err)
		}
		return nil
	default:
		result, err := p.embed.Embed(ctx, job.Entity.EmbeddableText())
		if err != nil {
			return fmt.Errorf("embed entity: %w", err)
		}
		if err := p.index.Upsert(ctx, domain.RecordFromEntity(job.Entity, result.Embedding)); err != nil {
			return fmt.Errorf("upsert entity: %w", err)
		}
		return nil
	}
}

// backoff doubles the initial delay per attempt, capped at the max.
func (p *Pipeline) backoff(attempt int) time.Duration {
	d := p.backoffInitial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.backoffMax {
			return p.backoffMax
		}
	}
	return d
}

// sleep waits for d or until ctx is cancelled. Reports whether the
// full delay elapsed.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
