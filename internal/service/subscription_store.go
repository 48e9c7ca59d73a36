package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/serverwatch/notifier/internal/events"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/monitoring"
	"github.com/serverwatch/notifier/pkg/logger"
)

// SubscriberPersistence is the load/save contract for filter documents
type SubscriberPersistence interface {
	GetAll(ctx context.Context) ([]models.Subscriber, error)
	Set(ctx context.Context, subscriber *models.Subscriber) error
	Delete(ctx context.Context, id string) error
}

// SubscriptionStore holds every subscriber's filter list in memory and writes
// each change through to persistence before it becomes visible.
type SubscriptionStore struct {
	mu          sync.RWMutex
	filters     map[string][]models.Filter
	usernames   map[string]string
	persistence SubscriberPersistence
	catalog     *models.Catalog
	publisher   events.Publisher
}

// NewSubscriptionStore creates an empty store. Call Load to populate it.
func NewSubscriptionStore(persistence SubscriberPersistence, catalog *models.Catalog, publisher events.Publisher) *SubscriptionStore {
	return &SubscriptionStore{
		filters:     make(map[string][]models.Filter),
		usernames:   make(map[string]string),
		persistence: persistence,
		catalog:     catalog,
		publisher:   publisher,
	}
}

// Load replaces the in-memory state with every stored document. A document
// whose filters cannot be decoded is logged and loaded as empty.
func (s *SubscriptionStore) Load(ctx context.Context) error {
	stored, err := s.persistence.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subscribers: %w", err)
	}

	filters := make(map[string][]models.Filter, len(stored))
	usernames := make(map[string]string, len(stored))
	malformed := 0

	for _, sub := range stored {
		decoded, err := models.DecodeFilters(sub.Filters)
		if err != nil {
			malformed++
			logger.Warn("Malformed filter document, treating as no filters", map[string]interface{}{
				"subscriber_id": sub.ID,
				"error":         err.Error(),
			})
			decoded = nil
		}
		if len(decoded) > 0 {
			filters[sub.ID] = decoded
		}
		if sub.Username != "" {
			usernames[sub.ID] = sub.Username
		}
	}

	s.mu.Lock()
	s.filters = filters
	s.usernames = usernames
	s.updateGauges()
	s.mu.Unlock()

	logger.Info("Subscriptions loaded", map[string]interface{}{
		"documents":   len(stored),
		"subscribers": len(filters),
		"malformed":   malformed,
	})
	return nil
}

// Catalog returns the catalog filters are validated against
func (s *SubscriptionStore) Catalog() *models.Catalog {
	return s.catalog
}

// GetFilters returns a copy of the subscriber's filters in registration order
func (s *SubscriptionStore) GetFilters(subscriberID string) []models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Filter{}, s.filters[subscriberID]...)
}

// AddFilter validates and appends a filter, returning its index. username is
// stored alongside the filters when non-empty.
func (s *SubscriptionStore) AddFilter(ctx context.Context, subscriberID, username string, filter models.Filter) (int, error) {
	if err := filter.Validate(s.catalog); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if username == "" {
		username = s.usernames[subscriberID]
	}
	updated := append(append([]models.Filter{}, s.filters[subscriberID]...), filter)
	if err := s.persist(ctx, subscriberID, username, updated); err != nil {
		return 0, err
	}

	s.filters[subscriberID] = updated
	if username != "" {
		s.usernames[subscriberID] = username
	}
	s.updateGauges()

	index := len(updated) - 1
	events.PublishFilterAdded(s.publisher, subscriberID, index, filter.String())
	return index, nil
}

// RemoveFilter deletes the filter at index. An out-of-range index returns
// models.ErrFilterIndex and leaves memory and persistence untouched.
func (s *SubscriptionStore) RemoveFilter(ctx context.Context, subscriberID string, index int) (models.Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.filters[subscriberID]
	if index < 0 || index >= len(current) {
		return models.Filter{}, fmt.Errorf("%w: index %d, subscriber has %d filters", models.ErrFilterIndex, index, len(current))
	}

	removed := current[index]
	updated := make([]models.Filter, 0, len(current)-1)
	updated = append(updated, current[:index]...)
	updated = append(updated, current[index+1:]...)

	if err := s.persist(ctx, subscriberID, s.usernames[subscriberID], updated); err != nil {
		return models.Filter{}, err
	}

	if len(updated) == 0 {
		delete(s.filters, subscriberID)
	} else {
		s.filters[subscriberID] = updated
	}
	s.updateGauges()

	events.PublishFilterRemoved(s.publisher, subscriberID, index)
	return removed, nil
}

// ClearFilters drops every filter of the subscriber and deletes the stored
// document. It returns how many filters were removed.
func (s *SubscriptionStore) ClearFilters(ctx context.Context, subscriberID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.filters[subscriberID])
	if err := s.persistence.Delete(ctx, subscriberID); err != nil {
		return 0, fmt.Errorf("failed to delete filters of %s: %w", subscriberID, err)
	}

	delete(s.filters, subscriberID)
	delete(s.usernames, subscriberID)
	s.updateGauges()

	events.PublishFiltersCleared(s.publisher, subscriberID, count)
	return count, nil
}

// Snapshot returns a consistent copy of every non-empty filter list
func (s *SubscriptionStore) Snapshot() map[string][]models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string][]models.Filter, len(s.filters))
	for id, filters := range s.filters {
		snapshot[id] = append([]models.Filter(nil), filters...)
	}
	return snapshot
}

// Subscribers returns the ids of subscribers with at least one filter, sorted
func (s *SubscriptionStore) Subscribers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.filters))
	for id := range s.filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts returns the number of subscribers and filters
func (s *SubscriptionStore) Counts() (subscribers, filters int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked()
}

func (s *SubscriptionStore) countsLocked() (int, int) {
	total := 0
	for _, filters := range s.filters {
		total += len(filters)
	}
	return len(s.filters), total
}

// persist writes the full list for one subscriber. Must hold s.mu.
func (s *SubscriptionStore) persist(ctx context.Context, subscriberID, username string, filters []models.Filter) error {
	data, err := models.EncodeFilters(filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	if err := s.persistence.Set(ctx, &models.Subscriber{
		ID:       subscriberID,
		Username: username,
		Filters:  data,
	}); err != nil {
		return fmt.Errorf("failed to persist filters of %s: %w", subscriberID, err)
	}
	return nil
}

// updateGauges must be called with s.mu held.
func (s *SubscriptionStore) updateGauges() {
	subscribers, filters := s.countsLocked()
	monitoring.Subscribers.Set(float64(subscribers))
	monitoring.Filters.Set(float64(filters))
}
