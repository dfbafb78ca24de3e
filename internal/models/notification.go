package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is an in-app copy of a dispatched notification. Outbound mail
// is fire-and-forget; this row is the durable record the UI reads.
type Notification struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"-"`

	Type     string         `gorm:"not null;index" json:"type"`
	Title    string         `gorm:"not null" json:"title"`
	Message  string         `json:"message"`
	Severity string         `gorm:"default:info" json:"severity"`
	Metadata datatypes.JSON `json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
