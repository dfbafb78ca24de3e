package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is one append-only ledger entry describing a privileged mutation or
// a blocked attempt at one. Rows are never updated or deleted by application
// code; retention cleanup is an operator concern.
type AuditLog struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	ActorID    *string `gorm:"type:uuid;index" json:"actor_id"`
	Actor      *User   `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorEmail string  `json:"actor_email"`

	AffectedID *string `gorm:"type:uuid;index" json:"affected_id"`
	Affected   *User   `gorm:"foreignKey:AffectedID" json:"affected,omitempty"`

	Action    string    `gorm:"not null;index" json:"action"`
	Metadata  string    `gorm:"type:json" json:"metadata"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
