package editor

import (
	"sync"

	"redshift-grafana-plugin/pkg/models"
)

// EventKind names a callback the editor invoked.
type EventKind string

const (
	EventChange EventKind = "change"
	EventRun    EventKind = "run"
)

// Event is one recorded host callback.
type Event struct {
	Kind  EventKind     `json:"kind"`
	Query *models.Query `json:"query,omitempty"`
}

// Recorder is a Host that remembers every callback in order. The plugin uses
// it to answer commit requests from the frontend.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnChange(query models.Query) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := query.Clone()
	r.events = append(r.events, Event{Kind: EventChange, Query: &q})
}

func (r *Recorder) OnRunQuery() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: EventRun})
}

// Events returns the callbacks recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// LastChange returns the query from the most recent OnChange call.
func (r *Recorder) LastChange() (models.Query, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == EventChange && r.events[i].Query != nil {
			return r.events[i].Query.Clone(), true
		}
	}
	return models.Query{}, false
}
