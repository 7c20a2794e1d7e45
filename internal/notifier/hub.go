// Package notifier fans store changes out to live subscribers. Every event
// carries the full list of mails, never a diff.
package notifier

import (
	"sync"

	"github.com/google/uuid"

	"mailsink/internal/logger"
	"mailsink/internal/mailstore"
	"mailsink/pkg/errors"
	"mailsink/pkg/metrics"
)

const EventEmails = "emails"

// ReasonInit tags the snapshot a subscriber receives on connect.
const ReasonInit = "init"

type Event struct {
	Name   string             `json:"event"`
	Reason string             `json:"reason"`
	Emails []mailstore.Record `json:"emails"`
}

// Transport delivers events to one connected client. Send is only ever called
// from a single goroutine per transport.
type Transport interface {
	Send(Event) error
	Close() error
	// Kind names the transport for metrics, e.g. "websocket" or "sse".
	Kind() string
}

// Source is the part of the store the hub needs to register subscribers
// consistently with mutations.
type Source interface {
	Observe(fn func(snapshot []mailstore.Record))
}

type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	bufferSize  int
	logger      logger.Logger
	closed      bool
	wg          sync.WaitGroup
}

type subscriber struct {
	id        string
	transport Transport
	queue     chan Event
	done      chan struct{}
	once      sync.Once
}

func NewHub(bufferSize int, log logger.Logger) *Hub {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		bufferSize:  bufferSize,
		logger:      log,
	}
}

// OnChange implements mailstore.Listener. It only enqueues, so it never
// blocks the store; a subscriber that cannot keep up is dropped.
func (h *Hub) OnChange(change mailstore.Change) {
	event := Event{Name: EventEmails, Reason: string(change.Reason), Emails: change.Snapshot}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		select {
		case sub.queue <- event:
		default:
			h.logger.Warnw("Dropping slow subscriber", "subscriber_id", sub.id, "transport", sub.transport.Kind())
			metrics.IncSubscriberDropped("slow")
			h.removeLocked(sub)
		}
	}
}

// Subscribe registers t and queues the current snapshot as its first event.
// The snapshot and the registration happen with store mutations held off, so
// t observes every later mutation exactly once and in order.
func (h *Hub) Subscribe(source Source, t Transport) (string, error) {
	sub := &subscriber{
		id:        uuid.New().String(),
		transport: t,
		queue:     make(chan Event, h.bufferSize+1),
		done:      make(chan struct{}),
	}

	var err error
	source.Observe(func(snapshot []mailstore.Record) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			err = errors.ErrServiceUnavailable.WithDetail("message", "notifier is shut down")
			return
		}
		sub.queue <- Event{Name: EventEmails, Reason: ReasonInit, Emails: snapshot}
		h.subscribers[sub.id] = sub
		h.updateGaugeLocked(t.Kind())
	})
	if err != nil {
		return "", err
	}

	h.wg.Add(1)
	go h.pump(sub)
	return sub.id, nil
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		h.removeLocked(sub)
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber and waits for their pumps to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, sub := range h.subscribers {
		h.removeLocked(sub)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) pump(sub *subscriber) {
	defer h.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorw("Panic recovered in subscriber pump", "subscriber_id", sub.id, "error", errors.RecoverPanic(r))
			h.Unsubscribe(sub.id)
		}
		if err := sub.transport.Close(); err != nil {
			h.logger.Debugw("Subscriber transport close failed", "subscriber_id", sub.id, "error", err)
		}
	}()

	for {
		select {
		case <-sub.done:
			return
		case event := <-sub.queue:
			if err := sub.transport.Send(event); err != nil {
				h.logger.Debugw("Subscriber write failed, disconnecting", "subscriber_id", sub.id, "error", err)
				metrics.IncSubscriberDropped("write_error")
				h.Unsubscribe(sub.id)
				return
			}
		}
	}
}

func (h *Hub) removeLocked(sub *subscriber) {
	delete(h.subscribers, sub.id)
	sub.once.Do(func() { close(sub.done) })
	h.updateGaugeLocked(sub.transport.Kind())
}

func (h *Hub) updateGaugeLocked(kind string) {
	n := 0
	for _, s := range h.subscribers {
		if s.transport.Kind() == kind {
			n++
		}
	}
	metrics.SetSubscribers(kind, n)
}
