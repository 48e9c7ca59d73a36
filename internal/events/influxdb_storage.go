package events

import (
	"context"
	"time"

	"github.com/serverwatch/notifier/internal/storage"
)

// InfluxDBEventStorage stores events in InfluxDB for time-series analytics
type InfluxDBEventStorage struct {
	client *storage.InfluxDBClient
}

// NewInfluxDBEventStorage creates a new InfluxDB event storage
func NewInfluxDBEventStorage(client *storage.InfluxDBClient) *InfluxDBEventStorage {
	return &InfluxDBEventStorage{client: client}
}

// Store saves an event to InfluxDB
func (s *InfluxDBEventStorage) Store(event Event) error {
	return s.client.WriteEvent(storage.EventData{
		ID:           event.ID,
		Type:         string(event.Type),
		Timestamp:    event.Timestamp,
		Source:       event.Source,
		ServerName:   event.ServerName,
		SubscriberID: event.SubscriberID,
		Data:         event.Data,
	})
}

// Query retrieves events from InfluxDB based on filters
func (s *InfluxDBEventStorage) Query(filters EventFilters) ([]Event, error) {
	storageFilters := storage.EventFilters{
		Types:        make([]string, len(filters.Types)),
		ServerName:   filters.ServerName,
		SubscriberID: filters.SubscriberID,
		StartTime:    filters.StartTime,
		EndTime:      filters.EndTime,
		Limit:        filters.Limit,
	}
	for i, t := range filters.Types {
		storageFilters.Types[i] = string(t)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storageEvents, err := s.client.QueryEvents(ctx, storageFilters)
	if err != nil {
		return nil, err
	}

	events := make([]Event, len(storageEvents))
	for i, se := range storageEvents {
		events[i] = Event{
			ID:           se.ID,
			Type:         EventType(se.Type),
			Timestamp:    se.Timestamp,
			Source:       se.Source,
			ServerName:   se.ServerName,
			SubscriberID: se.SubscriberID,
			Data:         se.Data,
		}
	}

	return events, nil
}
