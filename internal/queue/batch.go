package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"waxoff/internal/logging"
	"waxoff/internal/options"
	"waxoff/internal/pipeline"
)

// maxRunningProgress keeps an unfinished job strictly below 1.0.
var maxRunningProgress = math.Nextafter(1, 0)

// StartBatch processes every job that is pending right now, one at a time,
// in a background goroutine using opts. opts also become the queue's current
// options. It returns started=false without error when a batch is already
// running or nothing is pending. An error means the batch could not start:
// the options are invalid or the encoder is unavailable.
//
// Cancelling ctx has the same effect as CancelBatch.
func (q *Queue) StartBatch(ctx context.Context, opts options.Options) (started bool, err error) {
	if err := opts.Validate(); err != nil {
		return false, fmt.Errorf("invalid options: %w", err)
	}

	q.mu.Lock()
	if q.processing {
		q.mu.Unlock()
		return false, nil
	}
	var ids []string
	for _, job := range q.jobs {
		if job.Status == StatusPending {
			ids = append(ids, job.ID)
		}
	}
	if len(ids) == 0 {
		q.mu.Unlock()
		return false, nil
	}
	// Cancel requests and waiters from here on belong to this batch.
	prevComplete := q.complete
	done := make(chan struct{})
	q.processing = true
	q.complete = false
	q.cancel = false
	q.done = done
	q.mu.Unlock()

	if err := q.processor.Preflight(ctx); err != nil {
		q.mu.Lock()
		q.processing = false
		q.complete = prevComplete
		q.cancel = false
		q.mu.Unlock()
		close(done)
		logging.ErrorWithContext(q.logger, "batch not started", "batch_preflight_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set ffmpeg.binary in config.toml"),
			logging.String(logging.FieldImpact, "no files were processed"),
		)
		return false, err
	}

	batchID := q.newID()
	logger := logging.WithContext(logging.WithRequestID(context.Background(), batchID), q.logger)
	q.mu.Lock()
	q.opts = opts
	q.result = Result{BatchID: batchID, Options: opts}
	q.mu.Unlock()

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("pending", len(ids)),
		logging.String("target", opts.TargetLUFSString()),
		logging.String("output", opts.OutputMode.Label()),
		logging.String("mp3", opts.MP3BitrateString()),
		logging.Int("sample_rate", opts.SampleRate),
	)
	q.emit(Event{Type: EventBatchStarted})

	go q.run(ctx, logger, batchID, ids, opts, done)
	return true, nil
}

// CancelBatch asks the running batch to stop after the current job. The job
// in progress runs to completion. It reports whether a batch was running.
func (q *Queue) CancelBatch() bool {
	q.mu.Lock()
	running := q.processing
	if running {
		q.cancel = true
	}
	q.mu.Unlock()
	if running {
		q.logger.Info("batch cancellation requested", logging.String(logging.FieldEventType, "batch_cancel"))
	}
	return running
}

// Wait blocks until the running batch finishes or ctx is done. It returns
// immediately when no batch has been started. A batch still in preflight
// counts as running.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsProcessing reports whether a batch is running.
func (q *Queue) IsProcessing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// BatchComplete reports whether the most recent batch has finished.
func (q *Queue) BatchComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.complete
}

// Result returns the aggregate of the most recent finished batch. Before any
// batch finishes it is zero apart from the current options.
func (q *Queue) Result() Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.complete {
		return Result{Options: q.opts}
	}
	return q.result
}

func (q *Queue) run(ctx context.Context, logger *slog.Logger, batchID string, ids []string, opts options.Options, done chan struct{}) {
	result := Result{BatchID: batchID, Options: opts}
	jobCtx := context.WithoutCancel(ctx)
	sampler := logging.NewProgressSampler(0.25)

	for i, id := range ids {
		if q.cancelRequested(ctx) {
			result.Skipped = q.countPending(ids[i:])
			result.Cancelled = true
			break
		}
		job, ok := q.begin(id)
		if !ok {
			continue
		}
		sampler.Reset()
		jobLogger := logger.With(logging.String(logging.FieldJobID, id))
		outputs, err := q.processor.Process(jobCtx, pipeline.Input{JobID: job.ID, Path: job.InputPath}, opts, func(u pipeline.Update) {
			q.apply(id, u)
			if sampler.ShouldLog(u.Progress, string(u.Phase)) {
				jobLogger.Debug("job progress",
					logging.String(logging.FieldEventType, "job_progress"),
					logging.String("phase", string(u.Phase)),
					logging.Float64("progress", u.Progress),
				)
			}
		})
		if q.finish(jobLogger, id, outputs, err) {
			result.Success++
			if result.OutputDirectory == "" {
				result.OutputDirectory = job.OutputDirectory()
			}
		} else {
			result.Failed++
		}
	}

	q.mu.Lock()
	q.processing = false
	q.complete = true
	q.cancel = false
	q.result = result
	q.mu.Unlock()

	logger.Info("batch complete",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("success", result.Success),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
		logging.Bool("cancelled", result.Cancelled),
	)
	q.emit(Event{Type: EventBatchComplete, Result: &result})
	close(done)
}

// countPending reports how many of ids are still queued and pending. Jobs
// removed since the batch started are not counted.
func (q *Queue) countPending(ids []string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, id := range ids {
		if job := q.find(id); job != nil && job.Status == StatusPending {
			n++
		}
	}
	return n
}

func (q *Queue) cancelRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancel
}

// begin moves a still-pending job to analyzing. Jobs removed since the batch
// started are skipped silently.
func (q *Queue) begin(id string) (Job, bool) {
	q.mu.Lock()
	job := q.find(id)
	if job == nil || job.Status != StatusPending {
		q.mu.Unlock()
		return Job{}, false
	}
	job.Status = StatusAnalyzing
	job.Progress = 0
	job.ErrorMessage = ""
	snapshot := job.clone()
	q.mu.Unlock()

	q.emit(jobEvent(EventJobUpdated, snapshot))
	return snapshot, true
}

func (q *Queue) apply(id string, u pipeline.Update) {
	q.mu.Lock()
	job := q.find(id)
	if job == nil || !job.Status.IsActive() {
		q.mu.Unlock()
		return
	}
	if status, ok := statusForPhase(u.Phase); ok {
		job.Status = status
	}
	progress := math.Min(u.Progress, maxRunningProgress)
	if progress > job.Progress {
		job.Progress = progress
	}
	if u.Measurements != nil {
		m := *u.Measurements
		job.Measurements = &m
	}
	snapshot := job.clone()
	q.mu.Unlock()

	q.emit(jobEvent(EventJobUpdated, snapshot))
}

// finish records the terminal state and reports whether the job succeeded.
func (q *Queue) finish(logger *slog.Logger, id string, outputs []string, err error) bool {
	q.mu.Lock()
	job := q.find(id)
	if job == nil {
		q.mu.Unlock()
		return err == nil
	}
	if err == nil {
		job.Status = StatusComplete
		job.Progress = 1.0
		job.OutputPaths = append([]string(nil), outputs...)
	} else {
		job.Status = StatusFailed
		job.ErrorMessage = err.Error()
	}
	snapshot := job.clone()
	q.mu.Unlock()

	if err != nil {
		logging.WarnWithContext(logger, "job failed", "job_failed",
			logging.String("file", snapshot.Filename()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no output written for this file"),
		)
	} else {
		logger.Info("job complete",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String("file", snapshot.Filename()),
			logging.Int("outputs", len(snapshot.OutputPaths)),
		)
	}
	q.emit(jobEvent(EventJobUpdated, snapshot))
	return err == nil
}
