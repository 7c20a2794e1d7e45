package notifier

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsink/internal/logger"
	"mailsink/internal/mailstore"
)

type fakeTransport struct {
	events  chan Event
	failOn  int
	sent    int
	mu      sync.Mutex
	closed  bool
	blockCh chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 64)}
}

func (f *fakeTransport) Send(e Event) error {
	if f.blockCh != nil {
		<-f.blockCh
	}
	f.mu.Lock()
	f.sent++
	n := f.sent
	f.mu.Unlock()
	if f.failOn > 0 && n >= f.failOn {
		return errors.New("connection reset")
	}
	f.events <- e
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) Kind() string { return "fake" }

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) next(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-f.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func subjects(records []mailstore.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Subject
	}
	return out
}

func newHubAndStore(t *testing.T, max, buffer int) (*Hub, *mailstore.Store) {
	t.Helper()
	hub := NewHub(buffer, logger.NopLogger())
	store, err := mailstore.New(max, mailstore.WithListener(hub))
	require.NoError(t, err)
	t.Cleanup(hub.Close)
	return hub, store
}

func TestSubscriberReceivesInitThenPushes(t *testing.T) {
	hub, store := newHubAndStore(t, 10, 8)

	store.Push(mailstore.Record{Subject: "first"})
	store.Push(mailstore.Record{Subject: "second"})

	tr := newFakeTransport()
	_, err := hub.Subscribe(store, tr)
	require.NoError(t, err)

	init := tr.next(t)
	assert.Equal(t, EventEmails, init.Name)
	assert.Equal(t, ReasonInit, init.Reason)
	assert.Equal(t, []string{"first", "second"}, subjects(init.Emails))

	store.Push(mailstore.Record{Subject: "third"})

	push := tr.next(t)
	assert.Equal(t, string(mailstore.ReasonPush), push.Reason)
	assert.Equal(t, []string{"first", "second", "third"}, subjects(push.Emails))
}

func TestEventsFollowMutationOrder(t *testing.T) {
	hub, store := newHubAndStore(t, 3, 16)

	tr := newFakeTransport()
	_, err := hub.Subscribe(store, tr)
	require.NoError(t, err)
	assert.Empty(t, tr.next(t).Emails)

	a := store.Push(mailstore.Record{Subject: "a"})
	store.Push(mailstore.Record{Subject: "b"})
	store.Remove(a.ID)
	store.Clear()

	e := tr.next(t)
	assert.Equal(t, "push", e.Reason)
	assert.Equal(t, []string{"a"}, subjects(e.Emails))

	e = tr.next(t)
	assert.Equal(t, "push", e.Reason)
	assert.Equal(t, []string{"a", "b"}, subjects(e.Emails))

	e = tr.next(t)
	assert.Equal(t, "remove", e.Reason)
	assert.Equal(t, []string{"b"}, subjects(e.Emails))

	e = tr.next(t)
	assert.Equal(t, "clear", e.Reason)
	assert.Empty(t, e.Emails)
}

func TestEverySubscriberGetsEveryEvent(t *testing.T) {
	hub, store := newHubAndStore(t, 5, 16)

	transports := make([]*fakeTransport, 3)
	for i := range transports {
		transports[i] = newFakeTransport()
		_, err := hub.Subscribe(store, transports[i])
		require.NoError(t, err)
		transports[i].next(t)
	}
	assert.Equal(t, 3, hub.Len())

	store.Push(mailstore.Record{Subject: "broadcast"})

	for _, tr := range transports {
		e := tr.next(t)
		assert.Equal(t, []string{"broadcast"}, subjects(e.Emails))
	}
}

func TestSubscribeAndPushConcurrently(t *testing.T) {
	hub, store := newHubAndStore(t, 100, 256)

	const pushes = 50
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < pushes; i++ {
			store.Push(mailstore.Record{Subject: fmt.Sprintf("m%d", i)})
		}
	}()

	tr := newFakeTransport()
	tr.events = make(chan Event, pushes+1)
	_, err := hub.Subscribe(store, tr)
	require.NoError(t, err)
	wg.Wait()

	// Each event after init must grow the list by exactly one.
	init := tr.next(t)
	prev := len(init.Emails)
	for prev < pushes {
		e := tr.next(t)
		require.Equal(t, prev+1, len(e.Emails))
		prev = len(e.Emails)
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub, store := newHubAndStore(t, 10, 1)

	slow := newFakeTransport()
	slow.blockCh = make(chan struct{})
	_, err := hub.Subscribe(store, slow)
	require.NoError(t, err)

	fast := newFakeTransport()
	_, err = hub.Subscribe(store, fast)
	require.NoError(t, err)
	fast.next(t)

	for i := 0; i < 5; i++ {
		store.Push(mailstore.Record{Subject: fmt.Sprintf("m%d", i)})
		assert.Len(t, fast.next(t).Emails, i+1)
	}

	assert.Equal(t, 1, hub.Len())
	close(slow.blockCh)
	assert.Eventually(t, slow.isClosed, 2*time.Second, 10*time.Millisecond)
}

func TestFailingTransportIsRemoved(t *testing.T) {
	hub, store := newHubAndStore(t, 10, 8)

	tr := newFakeTransport()
	tr.failOn = 2
	_, err := hub.Subscribe(store, tr)
	require.NoError(t, err)
	tr.next(t)

	store.Push(mailstore.Record{Subject: "boom"})

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, tr.isClosed, 2*time.Second, 10*time.Millisecond)

	// The store keeps working with no subscribers left.
	store.Push(mailstore.Record{Subject: "after"})
	assert.Equal(t, 2, store.Size())
}

func TestUnsubscribe(t *testing.T) {
	hub, store := newHubAndStore(t, 10, 8)

	tr := newFakeTransport()
	id, err := hub.Subscribe(store, tr)
	require.NoError(t, err)
	tr.next(t)

	hub.Unsubscribe(id)
	hub.Unsubscribe("unknown")
	assert.Equal(t, 0, hub.Len())
	assert.Eventually(t, tr.isClosed, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeAfterClose(t *testing.T) {
	hub := NewHub(4, logger.NopLogger())
	store, err := mailstore.New(5, mailstore.WithListener(hub))
	require.NoError(t, err)

	hub.Close()

	_, err = hub.Subscribe(store, newFakeTransport())
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Len())
}
