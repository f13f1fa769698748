package queue

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"waxoff/internal/logging"
	"waxoff/internal/options"
	"waxoff/internal/pipeline"
)

// Processor runs the per-file pipeline. *pipeline.Runner satisfies it.
type Processor interface {
	Preflight(ctx context.Context) error
	Process(ctx context.Context, in pipeline.Input, opts options.Options, report func(pipeline.Update)) ([]string, error)
}

// Queue owns the ordered job list and drives at most one batch at a time.
// All methods are safe for concurrent use.
type Queue struct {
	mu         sync.Mutex
	jobs       []*Job
	opts       options.Options
	processing bool
	complete   bool
	cancel     bool
	done       chan struct{}
	result     Result

	processor Processor
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	emitMu         sync.Mutex
	nextSeq        int64
	subscribers    map[int]func(Event)
	nextSubscriber int
}

// Option customizes a Queue.
type Option func(*Queue)

// WithOptions sets the initial processing options.
func WithOptions(opts options.Options) Option {
	return func(q *Queue) { q.opts = opts }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// New constructs an empty queue that hands jobs to processor.
func New(processor Processor, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		opts:        options.Default(),
		processor:   processor,
		logger:      logging.NewComponentLogger(logger, "queue"),
		now:         time.Now,
		newID:       uuid.NewString,
		subscribers: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.result.Options = q.opts
	return q
}

// Submit appends a pending job for path. A path already in the queue is a
// no-op and returns the existing job's id with added=false.
func (q *Queue) Submit(path string) (id string, added bool) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	q.mu.Lock()
	for _, job := range q.jobs {
		if job.InputPath == path {
			q.mu.Unlock()
			return job.ID, false
		}
	}
	job := &Job{
		ID:        q.newID(),
		InputPath: path,
		AddedAt:   q.now().UTC(),
		Status:    StatusPending,
	}
	q.jobs = append(q.jobs, job)
	snapshot := job.clone()
	q.mu.Unlock()

	q.logger.Info("added to queue",
		logging.String(logging.FieldEventType, "job_added"),
		logging.String(logging.FieldJobID, snapshot.ID),
		logging.String("file", snapshot.Filename()),
	)
	q.emit(jobEvent(EventJobAdded, snapshot))
	return snapshot.ID, true
}

// Remove deletes the named jobs. Active jobs are kept; unknown ids are
// ignored. It returns the number of jobs removed.
func (q *Queue) Remove(ids ...string) int {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	removed := q.removeWhere(func(job *Job) bool {
		_, ok := want[job.ID]
		return ok && !job.Status.IsActive()
	})
	return len(removed)
}

// ClearCompleted removes every complete job.
func (q *Queue) ClearCompleted() int {
	return len(q.removeWhere(func(job *Job) bool {
		return job.Status == StatusComplete
	}))
}

// ClearAll empties the queue. It does nothing while a batch is running and
// reports whether the queue was cleared.
func (q *Queue) ClearAll() bool {
	q.mu.Lock()
	busy := q.processing
	q.mu.Unlock()
	if busy {
		return false
	}
	q.removeWhere(func(*Job) bool { return true })
	return true
}

func (q *Queue) removeWhere(match func(*Job) bool) []Job {
	q.mu.Lock()
	kept := q.jobs[:0]
	var removed []Job
	for _, job := range q.jobs {
		if match(job) {
			removed = append(removed, job.clone())
			continue
		}
		kept = append(kept, job)
	}
	for i := len(kept); i < len(q.jobs); i++ {
		q.jobs[i] = nil
	}
	q.jobs = kept
	q.mu.Unlock()

	for _, job := range removed {
		q.logger.Info("removed from queue",
			logging.String(logging.FieldEventType, "job_removed"),
			logging.String(logging.FieldJobID, job.ID),
			logging.String("file", job.Filename()),
		)
		q.emit(jobEvent(EventJobRemoved, job))
	}
	return removed
}

// Jobs returns a snapshot of every job in queue order.
func (q *Queue) Jobs() []Job {
	return q.filter(func(*Job) bool { return true })
}

// Pending returns the jobs awaiting processing.
func (q *Queue) Pending() []Job {
	return q.filter(func(job *Job) bool { return job.Status == StatusPending })
}

// Completed returns the jobs that finished successfully.
func (q *Queue) Completed() []Job {
	return q.filter(func(job *Job) bool { return job.Status == StatusComplete })
}

// Failed returns the jobs that finished with an error.
func (q *Queue) Failed() []Job {
	return q.filter(func(job *Job) bool { return job.Status == StatusFailed })
}

// Job returns a snapshot of the job with id.
func (q *Queue) Job(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job := q.find(id); job != nil {
		return job.clone(), true
	}
	return Job{}, false
}

// Len returns the number of jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *Queue) filter(match func(*Job) bool) []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if match(job) {
			out = append(out, job.clone())
		}
	}
	return out
}

func (q *Queue) find(id string) *Job {
	for _, job := range q.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Options returns the current processing options.
func (q *Queue) Options() options.Options {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.opts
}

// SetOptions replaces the processing options used by the next batch. A
// running batch keeps the options it started with.
func (q *Queue) SetOptions(opts options.Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	q.mu.Lock()
	q.opts = opts
	q.mu.Unlock()
	return nil
}
