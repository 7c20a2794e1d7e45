package mailstore

import (
	"errors"
	"fmt"
	"sync"
)

var ErrInvalidCapacity = errors.New("store capacity must be at least 1")

type Reason string

const (
	ReasonPush   Reason = "push"
	ReasonRemove Reason = "remove"
	ReasonClear  Reason = "clear"
)

// Change describes one committed mutation.
type Change struct {
	Reason Reason
	// Record is the pushed or removed record. Nil for clears.
	Record *Record
	// Evicted is set when a push displaced the oldest record.
	Evicted *Record
	// Cleared is the pre-clear size for ReasonClear.
	Cleared int
	// Snapshot is the full content after the mutation, oldest first.
	// Listeners share it and must not modify it.
	Snapshot []Record
}

// Listener is invoked synchronously, inside the mutation's critical section,
// once per content-changing mutation and in mutation order. OnChange must
// not block and must not call back into the Store.
type Listener interface {
	OnChange(change Change)
}

type ListenerFunc func(change Change)

func (f ListenerFunc) OnChange(change Change) { f(change) }

type Option func(*Store)

func WithListener(l Listener) Option {
	return func(s *Store) {
		s.listeners = append(s.listeners, l)
	}
}

// Store keeps the most recent max records in insertion order. All methods
// are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	ring      []Record
	head      int
	count     int
	lastID    uint64
	listeners []Listener
}

func New(max int, opts ...Option) (*Store, error) {
	if max < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, max)
	}

	s := &Store{ring: make([]Record, max)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Push assigns the next ID to rec, appends it and evicts the oldest record
// if the store was full. It returns the stored record.
func (s *Store) Push(rec Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	rec.ID = s.lastID

	var evicted *Record
	if s.count == len(s.ring) {
		old := s.ring[s.head]
		evicted = &old
		s.ring[s.head] = rec
		s.head = (s.head + 1) % len(s.ring)
	} else {
		s.ring[s.slot(s.count)] = rec
		s.count++
	}

	stored := rec
	s.notify(Change{Reason: ReasonPush, Record: &stored, Evicted: evicted})
	return rec
}

// Remove deletes the record with the given id, keeping the order of the rest.
func (s *Store) Remove(id uint64) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := -1
	for i := 0; i < s.count; i++ {
		if s.ring[s.slot(i)].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return Record{}, false
	}

	removed := s.ring[s.slot(pos)]
	for i := pos; i < s.count-1; i++ {
		s.ring[s.slot(i)] = s.ring[s.slot(i+1)]
	}
	s.ring[s.slot(s.count-1)] = Record{}
	s.count--

	s.notify(Change{Reason: ReasonRemove, Record: &removed})
	return removed, true
}

// Clear drops every record and returns how many there were. Listeners are
// notified even when the store was already empty.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.count
	for i := range s.ring {
		s.ring[i] = Record{}
	}
	s.head = 0
	s.count = 0

	s.notify(Change{Reason: ReasonClear, Cleared: n})
	return n
}

// Snapshot returns a copy of the current records, oldest first.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Observe calls fn with a snapshot while mutations are held off, so anything
// fn registers sees exactly the mutations that follow that snapshot.
func (s *Store) Observe(fn func(snapshot []Record)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.snapshotLocked())
}

func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Store) Max() int {
	return len(s.ring)
}

func (s *Store) slot(i int) int {
	return (s.head + i) % len(s.ring)
}

func (s *Store) snapshotLocked() []Record {
	out := make([]Record, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.ring[s.slot(i)]
	}
	return out
}

func (s *Store) notify(change Change) {
	if len(s.listeners) == 0 {
		return
	}
	change.Snapshot = s.snapshotLocked()
	for _, l := range s.listeners {
		l.OnChange(change)
	}
}
