package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/serverwatch/notifier/internal/events"
	"github.com/serverwatch/notifier/internal/models"
)

var errUnreachable = errors.New("recipient unreachable")

func testBus() *events.EventBus {
	return events.NewEventBus(nil)
}

func server1(mapName string) models.ServerRecord {
	return models.ServerRecord{
		Name:         "Server1",
		Map:          mapName,
		Region:       "Europe_Central",
		Gamemode:     "CONQ",
		Players:      80,
		QueuePlayers: 0,
		MaxPlayers:   127,
	}
}

// memoryPersistence is an in-memory SubscriberPersistence
type memoryPersistence struct {
	mu      sync.Mutex
	docs    map[string]models.Subscriber
	writes  int
	deletes int
	failSet error
}

func newMemoryPersistence() *memoryPersistence {
	return &memoryPersistence{docs: make(map[string]models.Subscriber)}
}

func (m *memoryPersistence) GetAll(_ context.Context) ([]models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]models.Subscriber, 0, len(m.docs))
	for _, doc := range m.docs {
		all = append(all, doc)
	}
	return all, nil
}

func (m *memoryPersistence) Set(_ context.Context, subscriber *models.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.writes++
	doc := *subscriber
	if existing, ok := m.docs[doc.ID]; ok && doc.Username == "" {
		doc.Username = existing.Username
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *memoryPersistence) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.docs, id)
	return nil
}

func (m *memoryPersistence) stored(t testing.TB, id string) []models.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil
	}
	filters, err := models.DecodeFilters(doc.Filters)
	if err != nil {
		t.Fatalf("stored document of %s is malformed: %v", id, err)
	}
	return filters
}

func (m *memoryPersistence) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// scriptedFetcher answers each call with the next scripted response; the last
// one repeats.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses []fetchResponse
	calls     int
}

type fetchResponse struct {
	servers []models.ServerRecord
	err     error
}

func (f *scriptedFetcher) FetchServers(_ context.Context) ([]models.ServerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	return f.responses[i].servers, f.responses[i].err
}

func (f *scriptedFetcher) script(responses ...fetchResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = responses
	f.calls = 0
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingAlerter records raised alerts
type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *recordingAlerter) Raise(_ context.Context, message string, _ map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func (a *recordingAlerter) raised() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}

// recordingSink delivers per recipient and fails for the listed recipients
type recordingSink struct {
	mu        sync.Mutex
	failFor   map[string]bool
	delivered []delivery
}

type delivery struct {
	recipient string
	server    string
	mapName   string
}

func newRecordingSink(failFor ...string) *recordingSink {
	s := &recordingSink{failFor: make(map[string]bool)}
	for _, r := range failFor {
		s.failFor[r] = true
	}
	return s
}

func (s *recordingSink) Deliver(_ context.Context, recipient string, server models.ServerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[recipient] {
		return errUnreachable
	}
	s.delivered = append(s.delivered, delivery{recipient: recipient, server: server.Name, mapName: server.Map})
	return nil
}

func (s *recordingSink) deliveries() []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery(nil), s.delivered...)
}

func (s *recordingSink) setFailing(recipient string, failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[recipient] = failing
}
