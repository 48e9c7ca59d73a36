package events

import (
	"errors"

	"github.com/serverwatch/notifier/pkg/logger"
)

// MultiEventStorage stores events in multiple backends simultaneously
type MultiEventStorage struct {
	storages []EventStorage
}

// NewMultiEventStorage creates a storage that writes to multiple backends
func NewMultiEventStorage(storages ...EventStorage) *MultiEventStorage {
	return &MultiEventStorage{
		storages: storages,
	}
}

// Store saves an event to every backend; one failing backend does not stop
// the others. All failures are joined into the returned error.
func (s *MultiEventStorage) Store(event Event) error {
	var errs []error

	for _, storage := range s.storages {
		if err := storage.Store(event); err != nil {
			logger.Error("Failed to store event in backend", err, map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
			})
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Query asks each backend in order and returns the first successful answer
func (s *MultiEventStorage) Query(filters EventFilters) ([]Event, error) {
	var errs []error

	for i, storage := range s.storages {
		events, err := storage.Query(filters)
		if err == nil {
			return events, nil
		}

		logger.Warn("Failed to query events from storage backend", map[string]interface{}{
			"backend_index": i,
			"error":         err.Error(),
		})
		errs = append(errs, err)
	}

	return nil, errors.Join(errs...)
}
