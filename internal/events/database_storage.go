package events

import (
	"encoding/json"

	"github.com/serverwatch/notifier/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseEventStorage stores events in PostgreSQL
type DatabaseEventStorage struct {
	db *gorm.DB
}

// NewDatabaseEventStorage creates a new database event storage
func NewDatabaseEventStorage(db *gorm.DB) *DatabaseEventStorage {
	return &DatabaseEventStorage{db: db}
}

// Store saves an event to the database
func (s *DatabaseEventStorage) Store(event Event) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}

	return s.db.Create(toSystemEvent(event, dataJSON)).Error
}

// Query retrieves events based on filters, newest first
func (s *DatabaseEventStorage) Query(filters EventFilters) ([]Event, error) {
	query := s.db.Model(&models.SystemEvent{})

	if len(filters.Types) > 0 {
		types := make([]string, len(filters.Types))
		for i, t := range filters.Types {
			types[i] = string(t)
		}
		query = query.Where("type IN ?", types)
	}

	if filters.ServerName != "" {
		query = query.Where("server_name = ?", filters.ServerName)
	}

	if filters.SubscriberID != "" {
		query = query.Where("subscriber_id = ?", filters.SubscriberID)
	}

	if !filters.StartTime.IsZero() {
		query = query.Where("timestamp >= ?", filters.StartTime)
	}

	if !filters.EndTime.IsZero() {
		query = query.Where("timestamp <= ?", filters.EndTime)
	}

	query = query.Order("timestamp DESC")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(1000)
	}

	var systemEvents []models.SystemEvent
	if err := query.Find(&systemEvents).Error; err != nil {
		return nil, err
	}

	events := make([]Event, len(systemEvents))
	for i, se := range systemEvents {
		events[i] = fromSystemEvent(se)
	}

	return events, nil
}

func toSystemEvent(event Event, data []byte) *models.SystemEvent {
	return &models.SystemEvent{
		EventID:      event.ID,
		Type:         string(event.Type),
		Timestamp:    event.Timestamp,
		Source:       event.Source,
		ServerName:   event.ServerName,
		SubscriberID: event.SubscriberID,
		Data:         datatypes.JSON(data),
	}
}

func fromSystemEvent(se models.SystemEvent) Event {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(se.Data), &data); err != nil {
		data = make(map[string]interface{})
	}

	return Event{
		ID:           se.EventID,
		Type:         EventType(se.Type),
		Timestamp:    se.Timestamp,
		Source:       se.Source,
		ServerName:   se.ServerName,
		SubscriberID: se.SubscriberID,
		Data:         data,
	}
}
