package model

import "time"

type InspectionOrderStatus string

const (
	InspectionOrderScheduled InspectionOrderStatus = "scheduled"
	InspectionOrderCompleted InspectionOrderStatus = "completed"
	InspectionOrderReopened  InspectionOrderStatus = "reopened" // superseded by a fresh order after objections
)

// InspectionOrder is a scheduled site visit; it accepts exactly one report
type InspectionOrder struct {
	ID            uint                  `gorm:"primarykey" json:"id"`
	ApplicationID uint                  `gorm:"not null;index" json:"application_id"`
	ScheduledBy   uint                  `gorm:"not null" json:"scheduled_by"`
	AssignedTo    *uint                 `json:"assigned_to,omitempty"` // dealing assistant
	ScheduledDate time.Time             `gorm:"not null" json:"scheduled_date"`
	Instructions  string                `gorm:"type:text" json:"instructions,omitempty"`
	Status        InspectionOrderStatus `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`

	Report *InspectionReport `gorm:"foreignKey:InspectionOrderID" json:"report,omitempty"`
}

func (InspectionOrder) TableName() string {
	return "inspection_orders"
}

// InspectionReport holds the findings of one inspection order
type InspectionReport struct {
	ID                  uint      `gorm:"primarykey" json:"id"`
	InspectionOrderID   uint      `gorm:"not null;uniqueIndex" json:"inspection_order_id"`
	ApplicationID       uint      `gorm:"not null;index" json:"application_id"`
	SubmittedBy         uint      `gorm:"not null" json:"submitted_by"`
	Checklist           Checklist `gorm:"type:text" json:"checklist"`
	RoomCountVerified   bool      `json:"room_count_verified"`
	CategoryVerified    bool      `json:"category_verified"`
	OverallSatisfactory bool      `json:"overall_satisfactory"`
	Findings            string    `gorm:"type:text" json:"findings,omitempty"`
	Recommendation      string    `gorm:"type:text" json:"recommendation,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func (InspectionReport) TableName() string {
	return "inspection_reports"
}
