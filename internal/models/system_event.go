package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemEvent is the audit row written for every event-bus publication
type SystemEvent struct {
	gorm.Model
	EventID      string         `gorm:"uniqueIndex;size:64" json:"event_id"`
	Type         string         `gorm:"index;size:100" json:"type"`
	Timestamp    time.Time      `gorm:"index" json:"timestamp"`
	Source       string         `gorm:"size:100" json:"source"`
	ServerName   string         `gorm:"index;size:255" json:"server_name,omitempty"`
	SubscriberID string         `gorm:"index;size:64" json:"subscriber_id,omitempty"`
	Data         datatypes.JSON `gorm:"type:jsonb" json:"data"`
}

// TableName overrides the table name
func (SystemEvent) TableName() string {
	return "system_events"
}
