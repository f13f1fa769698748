package queue

import "time"

// EventType classifies queue notifications.
type EventType string

const (
	EventJobAdded      EventType = "job_added"
	EventJobRemoved    EventType = "job_removed"
	EventJobUpdated    EventType = "job_updated"
	EventBatchStarted  EventType = "batch_started"
	EventBatchComplete EventType = "batch_complete"
)

// Event is a sequenced notification delivered to subscribers. Job is set for
// job events and Result for EventBatchComplete.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Job       *Job      `json:"job,omitempty"`
	Result    *Result   `json:"result,omitempty"`
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. Events are delivered one at a time in Seq order. fn must
// not call methods that modify the Queue.
func (q *Queue) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	q.emitMu.Lock()
	defer q.emitMu.Unlock()
	id := q.nextSubscriber
	q.nextSubscriber++
	q.subscribers[id] = fn
	return func() {
		q.emitMu.Lock()
		defer q.emitMu.Unlock()
		delete(q.subscribers, id)
	}
}

func (q *Queue) emit(event Event) {
	q.emitMu.Lock()
	defer q.emitMu.Unlock()

	q.nextSeq++
	event.Seq = q.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = q.now().UTC()
	}
	for id := 0; id < q.nextSubscriber; id++ {
		if fn, ok := q.subscribers[id]; ok {
			fn(event)
		}
	}
}

func jobEvent(kind EventType, job Job) Event {
	return Event{Type: kind, Job: &job}
}
