package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	mu       sync.Mutex
	events   []Event
	storeErr error
	queryErr error
}

func (m *memoryStorage) Store(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return m.storeErr
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memoryStorage) Query(filters EventFilters) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return append([]Event(nil), m.events...), nil
}

func (m *memoryStorage) stored() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func TestEventBus_PublishStoresAndNotifies(t *testing.T) {
	store := &memoryStorage{}
	bus := NewEventBus(store)

	received := make(chan Event, 1)
	bus.Subscribe(EventFilterAdded, func(e Event) { received <- e })
	bus.Subscribe(EventMatchFailed, func(Event) { t.Error("handler for another type must not run") })

	PublishFilterAdded(bus, "42", 0, "Map: Basra")

	select {
	case e := <-received:
		assert.Equal(t, EventFilterAdded, e.Type)
		assert.Equal(t, "42", e.SubscriberID)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		assert.Equal(t, 0, e.Data["index"])
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}

	stored := store.stored()
	require.Len(t, stored, 1)
	assert.Equal(t, "subscription_store", stored[0].Source)
}

func TestEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewEventBus(nil)

	done := make(chan struct{})
	bus.Subscribe(EventAlertRaised, func(Event) { panic("boom") })
	bus.Subscribe(EventAlertRaised, func(Event) { close(done) })

	PublishAlertRaised(bus, "fetch failed", true)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second handler was not called")
	}
}

func TestEventBus_StorageFailureDoesNotBlockHandlers(t *testing.T) {
	bus := NewEventBus(&memoryStorage{storeErr: errors.New("disk full")})

	done := make(chan struct{})
	bus.Subscribe(EventFetchExhausted, func(Event) { close(done) })

	PublishFetchExhausted(bus, 3, errors.New("timeout"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}
}

func TestEventBus_QueryWithoutStorage(t *testing.T) {
	events, err := NewEventBus(nil).Query(EventFilters{})
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestMultiEventStorage(t *testing.T) {
	broken := &memoryStorage{storeErr: errors.New("down"), queryErr: errors.New("down")}
	healthy := &memoryStorage{}
	multi := NewMultiEventStorage(broken, healthy)

	err := multi.Store(Event{ID: "1", Type: EventMatchDelivered})
	assert.Error(t, err, "failures are reported")
	assert.Len(t, healthy.stored(), 1, "healthy backend still receives the event")

	events, err := multi.Query(EventFilters{})
	require.NoError(t, err, "query falls through to the next backend")
	assert.Len(t, events, 1)

	_, err = NewMultiEventStorage(broken).Query(EventFilters{})
	assert.Error(t, err)
}
