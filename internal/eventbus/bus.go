// Package eventbus implements the engine's EventSink as an in-process
// publish/subscribe bus, adapted from the teacher's message bus: per-job
// subscriber fan-out (the CLI's console watcher subscribes per job) plus
// tap channels that observe every event regardless of job.
package eventbus

import (
	"log"
	"sync"

	"github.com/Deenyoro/SubPrimeDivide/internal/engine"
)

const (
	subscriberBufSize = 64
	tapBufSize        = 256
)

// EventType discriminates the three kinds of event a job's stream carries.
type EventType string

const (
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
)

// Event is the structured payload fanned out to subscribers; an out-of-scope
// WS bridge would serialize this directly as {type, ...}.
type Event struct {
	JobID    string
	Type     EventType
	LogEntry *engine.LogEntry
	Progress *float64
	Candidate string
	Status   *engine.JobState
	ErrorMessage string
}

// Bus is the observable event bus behind engine.EventSink. Multiple
// consumers (a CLI console subscriber, a future WS bridge) can each
// register their own tap channel via NewTap.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event // keyed by jobID, "" = all jobs
	taps        []chan Event
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]chan Event)}
}

// publish fans out evt to subscribers of evt.JobID and to every tap.
// Non-blocking: a saturated subscriber channel drops the event with a
// logged warning, matching the teacher's bus.
func (b *Bus) publish(evt Event) {
	b.mu.RLock()
	subs := append(append([]chan Event{}, b.subscribers[evt.JobID]...), b.subscribers[""]...)
	taps := b.taps
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[eventbus] WARNING: subscriber channel full for job=%s type=%s — event dropped", evt.JobID, evt.Type)
		}
	}
	for _, tap := range taps {
		select {
		case tap <- evt:
		default:
			log.Printf("[eventbus] WARNING: tap channel full — event dropped type=%s", evt.Type)
		}
	}
}

// PublishLog implements engine.EventSink.
func (b *Bus) PublishLog(entry *engine.LogEntry) {
	b.publish(Event{JobID: entry.JobID, Type: EventLog, LogEntry: entry})
}

// PublishProgress implements engine.EventSink.
func (b *Bus) PublishProgress(jobID string, percent float64, candidate string) {
	p := percent
	b.publish(Event{JobID: jobID, Type: EventProgress, Progress: &p, Candidate: candidate})
}

// PublishComplete implements engine.EventSink.
func (b *Bus) PublishComplete(jobID string, state engine.JobState, errorMessage string) {
	s := state
	b.publish(Event{JobID: jobID, Type: EventComplete, Status: &s, ErrorMessage: errorMessage})
}

// Subscribe returns a receive-only channel delivering events for jobID. Pass
// "" to receive events for every job.
func (b *Bus) Subscribe(jobID string) <-chan Event {
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[jobID] = append(b.subscribers[jobID], ch)
	b.mu.Unlock()
	return ch
}

// NewTap registers and returns an independent channel receiving every event
// published to the bus, regardless of job.
func (b *Bus) NewTap() <-chan Event {
	ch := make(chan Event, tapBufSize)
	b.mu.Lock()
	b.taps = append(b.taps, ch)
	b.mu.Unlock()
	return ch
}

var _ engine.EventSink = (*Bus)(nil)
