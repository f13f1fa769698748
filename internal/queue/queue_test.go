package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"waxoff/internal/logging"
	"waxoff/internal/loudnorm"
	"waxoff/internal/options"
	"waxoff/internal/pipeline"
	"waxoff/internal/queue"
)

type fakeProcessor struct {
	mu           sync.Mutex
	preflightErr error
	onPreflight  func()
	failFor      map[string]error
	gate         map[string]chan struct{}
	started      chan string
	calls        []string
	running      int
	maxRunning   int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		failFor: map[string]error{},
		gate:    map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (f *fakeProcessor) Preflight(context.Context) error {
	if f.onPreflight != nil {
		f.onPreflight()
	}
	return f.preflightErr
}

func (f *fakeProcessor) Process(_ context.Context, in pipeline.Input, opts options.Options, report func(pipeline.Update)) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in.Path)
	f.running++
	if f.running > f.maxRunning {
		f.maxRunning = f.running
	}
	gate := f.gate[filepath.Base(in.Path)]
	failure := f.failFor[filepath.Base(in.Path)]
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	f.started <- in.Path
	if gate != nil {
		<-gate
	}

	report(pipeline.Update{Phase: pipeline.PhaseAnalyzing, Progress: 0})
	m := loudnorm.Measurements{InputI: -23}
	report(pipeline.Update{Phase: pipeline.PhaseProcessing, Progress: 0.2, Measurements: &m})
	if failure != nil {
		return nil, failure
	}
	// A stale lower value must not move progress backwards.
	report(pipeline.Update{Phase: pipeline.PhaseProcessing, Progress: 0.1})
	report(pipeline.Update{Phase: pipeline.PhaseVerifying, Progress: 0.95})

	outputs := []string{pipeline.OutputPath(in.Path, opts, "wav")}
	if opts.WantsMP3() {
		outputs = append(outputs, pipeline.OutputPath(in.Path, opts, "mp3"))
	}
	return outputs, nil
}

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) handle(e queue.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []queue.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.Event(nil), r.events...)
}

func (r *recorder) count(kind queue.EventType) int {
	n := 0
	for _, e := range r.snapshot() {
		if e.Type == kind {
			n++
		}
	}
	return n
}

func waitBatch(t *testing.T, q *queue.Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("batch did not finish: %v", err)
	}
}

func TestSubmitDuplicateIsNoop(t *testing.T) {
	q := queue.New(newFakeProcessor(), logging.NewNop())
	dir := t.TempDir()

	id, added := q.Submit(filepath.Join(dir, "a.wav"))
	if !added || id == "" {
		t.Fatalf("first submit: id=%q added=%v", id, added)
	}
	again, added := q.Submit(filepath.Join(dir, "a.wav"))
	if added || again != id {
		t.Fatalf("duplicate submit: id=%q added=%v", again, added)
	}
	if q.Len() != 1 {
		t.Fatalf("queue size = %d", q.Len())
	}
	job, ok := q.Job(id)
	if !ok || job.Status != queue.StatusPending || job.Progress != 0 {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestScenarioBothOutputs(t *testing.T) {
	proc := newFakeProcessor()
	q := queue.New(proc, logging.NewNop())
	dir := t.TempDir()
	id, _ := q.Submit(filepath.Join(dir, "episode.wav"))

	var progress []float64
	var mu sync.Mutex
	unsubscribe := q.Subscribe(func(e queue.Event) {
		if e.Job != nil && e.Job.ID == id {
			mu.Lock()
			progress = append(progress, e.Job.Progress)
			mu.Unlock()
		}
	})
	defer unsubscribe()

	started, err := q.StartBatch(context.Background(), options.Default())
	if err != nil || !started {
		t.Fatalf("StartBatch: started=%v err=%v", started, err)
	}
	waitBatch(t, q)

	job, _ := q.Job(id)
	if job.Status != queue.StatusComplete || job.Progress != 1.0 {
		t.Fatalf("unexpected job %+v", job)
	}
	if len(job.OutputPaths) != 2 ||
		filepath.Base(job.OutputPaths[0]) != "episode-lev--18LUFS.wav" ||
		filepath.Base(job.OutputPaths[1]) != "episode-lev--18LUFS.mp3" {
		t.Fatalf("unexpected outputs %v", job.OutputPaths)
	}
	if job.Measurements == nil || job.Measurements.InputI != -23 {
		t.Fatalf("measurements not recorded: %+v", job.Measurements)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress decreased: %v", progress)
		}
	}
	for _, p := range progress[:len(progress)-1] {
		if p >= 1.0 {
			t.Fatalf("progress reached 1.0 before completion: %v", progress)
		}
	}
	if progress[len(progress)-1] != 1.0 {
		t.Fatalf("final progress = %v", progress)
	}
}

func TestScenarioOneFailsOneSucceeds(t *testing.T) {
	proc := newFakeProcessor()
	proc.failFor["first.wav"] = &pipeline.StageError{Stage: pipeline.PhaseProcessing, Err: pipeline.ErrRenderFailed, Detail: "boom"}
	q := queue.New(proc, logging.NewNop())
	rec := &recorder{}
	q.Subscribe(rec.handle)

	dir := t.TempDir()
	firstID, _ := q.Submit(filepath.Join(dir, "first.wav"))
	secondID, _ := q.Submit(filepath.Join(dir, "second.wav"))

	if started, err := q.StartBatch(context.Background(), options.Default()); err != nil || !started {
		t.Fatalf("StartBatch: started=%v err=%v", started, err)
	}
	waitBatch(t, q)

	result := q.Result()
	if result.Success != 1 || result.Failed != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.BatchID == "" {
		t.Fatal("expected a batch id")
	}
	if result.OutputDirectory != dir {
		t.Fatalf("output directory = %q, want %q", result.OutputDirectory, dir)
	}
	if n := rec.count(queue.EventBatchComplete); n != 1 {
		t.Fatalf("batch complete fired %d times", n)
	}
	first, _ := q.Job(firstID)
	if first.Status != queue.StatusFailed || !strings.Contains(first.ErrorMessage, "processing failed: boom") {
		t.Fatalf("unexpected first job %+v", first)
	}
	second, _ := q.Job(secondID)
	if second.Status != queue.StatusComplete {
		t.Fatalf("unexpected second job %+v", second)
	}
	if proc.maxRunning != 1 {
		t.Fatalf("jobs ran concurrently: %d", proc.maxRunning)
	}
	if q.IsProcessing() || !q.BatchComplete() {
		t.Fatal("batch flags not settled")
	}

	events := rec.snapshot()
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("events out of order: %d then %d", events[i-1].Seq, events[i].Seq)
		}
	}
	if last := events[len(events)-1]; last.Type != queue.EventBatchComplete || last.Result == nil || last.Result.Failed != 1 {
		t.Fatalf("last event = %+v", last)
	}
}

func TestCancelBetweenJobs(t *testing.T) {
	proc := newFakeProcessor()
	gate := make(chan struct{})
	proc.gate["one.wav"] = gate
	q := queue.New(proc, logging.NewNop())

	dir := t.TempDir()
	oneID, _ := q.Submit(filepath.Join(dir, "one.wav"))
	twoID, _ := q.Submit(filepath.Join(dir, "two.wav"))

	if started, err := q.StartBatch(context.Background(), options.Default()); err != nil || !started {
		t.Fatalf("StartBatch: started=%v err=%v", started, err)
	}
	<-proc.started

	if !q.CancelBatch() {
		t.Fatal("CancelBatch should report a running batch")
	}
	if removed := q.Remove(oneID); removed != 0 {
		t.Fatal("active job was removed")
	}
	close(gate)
	waitBatch(t, q)

	one, _ := q.Job(oneID)
	if !one.Status.IsTerminal() {
		t.Fatalf("job 1 should be terminal, got %s", one.Status)
	}
	two, _ := q.Job(twoID)
	if two.Status != queue.StatusPending {
		t.Fatalf("job 2 should stay pending, got %s", two.Status)
	}
	if len(proc.calls) != 1 {
		t.Fatalf("expected one dispatch, got %v", proc.calls)
	}
	result := q.Result()
	if result.Skipped != 1 || !result.Cancelled {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCancelDuringPreflight(t *testing.T) {
	proc := newFakeProcessor()
	q := queue.New(proc, logging.NewNop())
	dir := t.TempDir()
	q.Submit(filepath.Join(dir, "one.wav"))
	q.Submit(filepath.Join(dir, "two.wav"))

	var cancelled bool
	var waitErr error
	proc.onPreflight = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		waitErr = q.Wait(ctx)
		cancelled = q.CancelBatch()
	}

	if started, err := q.StartBatch(context.Background(), options.Default()); err != nil || !started {
		t.Fatalf("StartBatch: started=%v err=%v", started, err)
	}
	waitBatch(t, q)

	if !errors.Is(waitErr, context.DeadlineExceeded) {
		t.Fatalf("Wait during preflight should block, got %v", waitErr)
	}
	if !cancelled {
		t.Fatal("CancelBatch during preflight should report a running batch")
	}
	if len(proc.calls) != 0 {
		t.Fatalf("no job should run after cancel, got %v", proc.calls)
	}
	result := q.Result()
	if !result.Cancelled || result.Skipped != 2 || result.Success != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCancelSkipsOnlyQueuedJobs(t *testing.T) {
	proc := newFakeProcessor()
	gate := make(chan struct{})
	proc.gate["one.wav"] = gate
	q := queue.New(proc, logging.NewNop())

	dir := t.TempDir()
	q.Submit(filepath.Join(dir, "one.wav"))
	q.Submit(filepath.Join(dir, "two.wav"))
	threeID, _ := q.Submit(filepath.Join(dir, "three.wav"))

	if started, err := q.StartBatch(context.Background(), options.Default()); err != nil || !started {
		t.Fatalf("StartBatch: started=%v err=%v", started, err)
	}
	<-proc.started
	if removed := q.Remove(threeID); removed != 1 {
		t.Fatalf("pending job should be removable, removed %d", removed)
	}
	q.CancelBatch()
	close(gate)
	waitBatch(t, q)

	result := q.Result()
	if !result.Cancelled || result.Skipped != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestStartBatchNoops(t *testing.T) {
	proc := newFakeProcessor()
	q := queue.New(proc, logging.NewNop())

	if started, err := q.StartBatch(context.Background(), options.Default()); started || err != nil {
		t.Fatalf("empty queue: started=%v err=%v", started, err)
	}

	gate := make(chan struct{})
	proc.gate["slow.wav"] = gate
	q.Submit(filepath.Join(t.TempDir(), "slow.wav"))
	if started, _ := q.StartBatch(context.Background(), options.Default()); !started {
		t.Fatal("expected batch to start")
	}
	<-proc.started
	if started, err := q.StartBatch(context.Background(), options.Default()); started || err != nil {
		t.Fatalf("second start: started=%v err=%v", started, err)
	}
	if q.ClearAll() {
		t.Fatal("ClearAll should be refused while processing")
	}
	close(gate)
	waitBatch(t, q)
	if !q.ClearAll() || q.Len() != 0 {
		t.Fatal("ClearAll should empty an idle queue")
	}
}

func TestStartBatchPreflightFailure(t *testing.T) {
	proc := newFakeProcessor()
	proc.preflightErr = pipeline.ErrToolNotFound
	q := queue.New(proc, logging.NewNop())
	id, _ := q.Submit(filepath.Join(t.TempDir(), "a.wav"))

	started, err := q.StartBatch(context.Background(), options.Default())
	if started || !errors.Is(err, pipeline.ErrToolNotFound) {
		t.Fatalf("started=%v err=%v", started, err)
	}
	if q.IsProcessing() {
		t.Fatal("queue should not be processing")
	}
	job, _ := q.Job(id)
	if job.Status != queue.StatusPending {
		t.Fatalf("job status = %s", job.Status)
	}
	waitBatch(t, q)
}

func TestStartBatchRejectsInvalidOptions(t *testing.T) {
	q := queue.New(newFakeProcessor(), logging.NewNop())
	q.Submit(filepath.Join(t.TempDir(), "a.wav"))
	bad := options.Default()
	bad.MP3Bitrate = 320
	if started, err := q.StartBatch(context.Background(), bad); started || err == nil {
		t.Fatalf("started=%v err=%v", started, err)
	}
	if err := q.SetOptions(bad); err == nil {
		t.Fatal("SetOptions should validate")
	}
}

func TestRemoveAndClearCompleted(t *testing.T) {
	proc := newFakeProcessor()
	q := queue.New(proc, logging.NewNop())
	dir := t.TempDir()
	a, _ := q.Submit(filepath.Join(dir, "a.wav"))
	b, _ := q.Submit(filepath.Join(dir, "b.wav"))
	c, _ := q.Submit(filepath.Join(dir, "c.wav"))

	if removed := q.Remove(b, "missing"); removed != 1 {
		t.Fatalf("removed %d", removed)
	}
	jobs := q.Jobs()
	if len(jobs) != 2 || jobs[0].ID != a || jobs[1].ID != c {
		t.Fatalf("unexpected jobs %+v", jobs)
	}

	if _, err := q.StartBatch(context.Background(), options.Default()); err != nil {
		t.Fatalf("StartBatch: %v", err)
	}
	waitBatch(t, q)
	q.Submit(filepath.Join(dir, "d.wav"))
	if n := q.ClearCompleted(); n != 2 {
		t.Fatalf("cleared %d", n)
	}
	if pending := q.Pending(); len(pending) != 1 || pending[0].Filename() != "d.wav" {
		t.Fatalf("unexpected pending %+v", pending)
	}
}

func TestResultSummary(t *testing.T) {
	result := queue.Result{Success: 2, Failed: 1, Skipped: 1, Options: options.Default()}
	want := strings.Join([]string{
		"2 files processed successfully, 1 failed",
		"1 skipped",
		"",
		"Target: -18 LUFS (-1.0 dBTP)",
		"Sample rate: 44.1 kHz",
		"Output: Both",
		"MP3: 160k CBR",
		"Phase rotation: On (150 Hz)",
	}, "\n")
	if got := result.Summary(); got != want {
		t.Fatalf("Summary =\n%s\nwant\n%s", got, want)
	}

	wavOnly := options.Default()
	wavOnly.OutputMode = options.OutputWAV
	wavOnly.SampleRate = 48000
	wavOnly.PhaseRotation = false
	got := queue.Result{Success: 1, Options: wavOnly}.Summary()
	if strings.Contains(got, "MP3") || !strings.HasPrefix(got, "1 file processed successfully\n") ||
		!strings.Contains(got, "48 kHz") || !strings.HasSuffix(got, "Phase rotation: Off") {
		t.Fatalf("unexpected summary:\n%s", got)
	}
}

func TestStatusLabels(t *testing.T) {
	if queue.StatusEncoding.Label() != "Encoding MP3" || queue.StatusComplete.Label() != "Complete" {
		t.Fatal("unexpected labels")
	}
	for _, status := range queue.AllStatuses() {
		parsed, ok := queue.ParseStatus(strings.ToUpper(string(status)))
		if !ok || parsed != status {
			t.Fatalf("ParseStatus(%q) = %q, %v", status, parsed, ok)
		}
		if status.IsActive() && status.IsTerminal() {
			t.Fatalf("%s is both active and terminal", status)
		}
	}
	if queue.StatusPending.IsActive() {
		t.Fatal("pending is not active")
	}
}
