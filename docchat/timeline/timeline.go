// Package timeline is the ordered chat log of one session. Entries are value
// snapshots; a streaming bot message is superseded by newer snapshots, never
// mutated in place.
package timeline

import (
	"errors"
	"fmt"
	"sync"
)

var ErrNotStreaming = errors.New("message is not streaming")

type EventKind string

const (
	EventAppended EventKind = "appended"
	EventUpdated  EventKind = "updated"
	EventReset    EventKind = "reset"
)

// Event describes one change. For EventReset, Index is the new length and
// Message is the zero value.
type Event struct {
	Kind    EventKind `json:"kind"`
	Index   int       `json:"index"`
	Message Message   `json:"message"`
}

type Observer func(Event)

type Timeline struct {
	// pubMu serializes mutation+notification so observers see changes in order.
	pubMu     sync.Mutex
	mu        sync.RWMutex
	messages  []Message
	observers map[int]Observer
	nextObs   int
}

func New() *Timeline {
	return &Timeline{observers: make(map[int]Observer)}
}

// Subscribe registers fn for every later change. Observers run synchronously
// on the mutating goroutine and must not mutate the timeline.
func (t *Timeline) Subscribe(fn Observer) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// Append adds msg at the end and returns its index.
func (t *Timeline) Append(msg Message) int {
	t.pubMu.Lock()
	defer t.pubMu.Unlock()

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	idx := len(t.messages) - 1
	obs := t.observerList()
	t.mu.Unlock()

	notify(obs, Event{Kind: EventAppended, Index: idx, Message: msg})
	return idx
}

// Replace supersedes the streaming entry with the given id.
func (t *Timeline) Replace(id string, msg Message) error {
	t.pubMu.Lock()
	defer t.pubMu.Unlock()

	t.mu.Lock()
	idx := t.indexOf(id)
	if idx < 0 {
		t.mu.Unlock()
		return fmt.Errorf("replace %s: not found", id)
	}
	if t.messages[idx].State != StateStreaming {
		t.mu.Unlock()
		return fmt.Errorf("replace %s: %w", id, ErrNotStreaming)
	}
	msg.ID = id
	t.messages[idx] = msg
	obs := t.observerList()
	t.mu.Unlock()

	notify(obs, Event{Kind: EventUpdated, Index: idx, Message: msg})
	return nil
}

// Reset replaces the whole log, used when switching sessions.
func (t *Timeline) Reset(msgs []Message) {
	t.pubMu.Lock()
	defer t.pubMu.Unlock()

	t.mu.Lock()
	t.messages = append([]Message(nil), msgs...)
	n := len(t.messages)
	obs := t.observerList()
	t.mu.Unlock()

	notify(obs, Event{Kind: EventReset, Index: n})
}

// Snapshot returns a copy of the log.
func (t *Timeline) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]Message, len(t.messages))
	copy(cp, t.messages)
	return cp
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the newest entry, if any.
func (t *Timeline) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// indexOf searches from the end; streaming entries are almost always last.
func (t *Timeline) indexOf(id string) int {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) observerList() []Observer {
	obs := make([]Observer, 0, len(t.observers))
	for i := 0; i < t.nextObs; i++ {
		if fn, ok := t.observers[i]; ok {
			obs = append(obs, fn)
		}
	}
	return obs
}

func notify(obs []Observer, ev Event) {
	for _, fn := range obs {
		fn(ev)
	}
}
