package model

import "time"

type NotificationStatus string

const (
	NotificationPending     NotificationStatus = "pending"
	NotificationDispatching NotificationStatus = "dispatching"
	NotificationSent        NotificationStatus = "sent"
	NotificationFailed      NotificationStatus = "failed"
)

// NotificationEvent is an outbox row written in the same transaction as the
// transition that produced it
type NotificationEvent struct {
	ID            uint               `gorm:"primarykey" json:"id"`
	MessageKey    string             `gorm:"type:varchar(40);uniqueIndex;not null" json:"message_key"`
	EventID       string             `gorm:"type:varchar(60);not null;index" json:"event_id"`
	ApplicationID uint               `gorm:"not null;index" json:"application_id"`
	Recipient     string             `gorm:"type:varchar(120)" json:"recipient"`
	Message       string             `gorm:"type:text" json:"message"`
	Extra         JSONMap            `gorm:"type:text" json:"extra,omitempty"`
	Status        NotificationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts      int                `gorm:"not null;default:0" json:"attempts"`
	LastError     string             `gorm:"type:text" json:"last_error,omitempty"`
	DispatchedAt  *time.Time         `json:"dispatched_at,omitempty"`
	CreatedAt     time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (NotificationEvent) TableName() string {
	return "notification_events"
}
