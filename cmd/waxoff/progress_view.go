package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"waxoff/internal/queue"
)

// progressView renders queue events while a batch runs.
type progressView interface {
	handle(queue.Event)
	stop()
}

func newProgressView(w io.Writer, jobs []queue.Job, interactive bool) progressView {
	if interactive {
		return newBarView(w, jobs)
	}
	return newLineView(w, jobs)
}

// barView draws one go-pretty tracker per job.
type barView struct {
	writer   progress.Writer
	mu       sync.Mutex
	trackers map[string]*progress.Tracker
}

const trackerScale = 1000

func newBarView(w io.Writer, jobs []queue.Job) *barView {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetMessageLength(48)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Value = false
	pw.Style().Visibility.Speed = false

	v := &barView{writer: pw, trackers: make(map[string]*progress.Tracker, len(jobs))}
	for _, job := range jobs {
		tracker := &progress.Tracker{
			Message: trackerMessage(job),
			Total:   trackerScale,
			Units:   progress.UnitsDefault,
		}
		v.trackers[job.ID] = tracker
		pw.AppendTracker(tracker)
	}
	go pw.Render()
	return v
}

func (v *barView) handle(event queue.Event) {
	if event.Type != queue.EventJobUpdated || event.Job == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	tracker, ok := v.trackers[event.Job.ID]
	if !ok {
		return
	}
	tracker.UpdateMessage(trackerMessage(*event.Job))
	switch event.Job.Status {
	case queue.StatusComplete:
		tracker.SetValue(trackerScale)
		tracker.MarkAsDone()
	case queue.StatusFailed:
		tracker.MarkAsErrored()
	default:
		tracker.SetValue(int64(event.Job.Progress * trackerScale))
	}
}

func (v *barView) stop() {
	v.writer.Stop()
	for v.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

func trackerMessage(job queue.Job) string {
	return fmt.Sprintf("%s (%s)", job.Filename(), job.Status.Label())
}

// lineView prints one line per status change, for logs and pipes.
type lineView struct {
	w     io.Writer
	mu    sync.Mutex
	index map[string]int
	total int
	last  map[string]queue.Status
}

func newLineView(w io.Writer, jobs []queue.Job) *lineView {
	v := &lineView{
		w:     w,
		index: make(map[string]int, len(jobs)),
		total: len(jobs),
		last:  make(map[string]queue.Status, len(jobs)),
	}
	for i, job := range jobs {
		v.index[job.ID] = i + 1
	}
	return v
}

func (v *lineView) handle(event queue.Event) {
	if event.Type != queue.EventJobUpdated || event.Job == nil {
		return
	}
	job := event.Job
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last[job.ID] == job.Status {
		return
	}
	v.last[job.ID] = job.Status

	prefix := fmt.Sprintf("[%d/%d] %s:", v.index[job.ID], v.total, job.Filename())
	switch job.Status {
	case queue.StatusFailed:
		fmt.Fprintf(v.w, "%s Failed - %s\n", prefix, job.ErrorMessage)
	case queue.StatusProcessing:
		if job.Measurements != nil {
			fmt.Fprintf(v.w, "%s %s (measured %.1f LUFS, %.1f dBTP)\n", prefix, job.Status.Label(), job.Measurements.InputI, job.Measurements.InputTP)
			return
		}
		fallthrough
	default:
		fmt.Fprintf(v.w, "%s %s\n", prefix, job.Status.Label())
	}
}

func (v *lineView) stop() {}
