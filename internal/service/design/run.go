package design

import (
	"sync"
	"time"

	"designforge/internal/pipeline"
)

const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is one entry of a run's progress stream.
type Event struct {
	Type     string         `json:"type"`
	Stage    pipeline.Stage `json:"stage"`
	RecordID string         `json:"recordId,omitempty"`
	Message  string         `json:"message,omitempty"`
}

func (e Event) terminal() bool { return e.Type == EventComplete || e.Type == EventError }

// Snapshot is the current state of a run.
type Snapshot struct {
	RunID      string         `json:"runId"`
	Stage      pipeline.Stage `json:"stage"`
	RecordID   string         `json:"recordId,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
}

const subscriberBuffer = 16

// run tracks one asynchronous pipeline execution and its subscribers.
type run struct {
	mu      sync.Mutex
	snap    Snapshot
	history []Event
	subs    map[int]chan Event
	nextSub int
	done    bool
}

func newRun(id string, now time.Time) *run {
	return &run{
		snap: Snapshot{RunID: id, StartedAt: now},
		subs: make(map[int]chan Event),
	}
}

func (r *run) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// publish records ev and fans it out. Progress events are dropped for a
// subscriber whose buffer is full; a terminal event always gets through and
// closes every subscriber channel.
func (r *run) publish(ev Event, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.history = append(r.history, ev)
	r.snap.Stage = ev.Stage
	if ev.RecordID != "" {
		r.snap.RecordID = ev.RecordID
	}
	if ev.Type == EventError {
		r.snap.Error = ev.Message
	}
	if !ev.terminal() {
		for _, ch := range r.subs {
			select {
			case ch <- ev:
			default:
			}
		}
		return
	}

	r.done = true
	r.snap.FinishedAt = &now
	for id, ch := range r.subs {
		forceSend(ch, ev)
		close(ch)
		delete(r.subs, id)
	}
}

// subscribe replays the history into a fresh channel. For a finished run the
// channel is already closed.
func (r *run) subscribe() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	for _, ev := range r.history {
		forceSend(ch, ev)
	}
	if r.done {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[id]; ok {
				close(c)
				delete(r.subs, id)
			}
		})
	}
}

// forceSend delivers ev, discarding the oldest buffered event if needed.
// Callers hold r.mu, so they are the only sender.
func forceSend(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
