package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subscriber is the persisted filter document of one platform user. Filters
// holds the JSON-encoded filter list in registration order.
type Subscriber struct {
	ID        string         `gorm:"primaryKey;size:64" json:"id"`
	Username  string         `gorm:"size:100" json:"username,omitempty"`
	Filters   datatypes.JSON `gorm:"type:jsonb" json:"filters"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName overrides the table name
func (Subscriber) TableName() string {
	return "subscribers"
}
