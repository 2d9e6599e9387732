package model

import "time"

// Action labels that are not transition names
const (
	ActionPaymentConfirmed     = "payment_confirmed"
	ActionCertificateIssued    = "certificate_issued"
	ActionCertificateCancelled = "certificate_cancelled"
)

// ApplicationAction is one append-only audit row
type ApplicationAction struct {
	ID             uint              `gorm:"primarykey" json:"id"`
	ApplicationID  uint              `gorm:"not null;index" json:"application_id"`
	ActorID        *uint             `gorm:"index" json:"actor_id,omitempty"` // nil for gateway/system actions
	ActorRole      Role              `gorm:"type:varchar(30);not null" json:"actor_role"`
	Action         string            `gorm:"type:varchar(50);not null;index" json:"action"`
	PreviousStatus ApplicationStatus `gorm:"type:varchar(40)" json:"previous_status"`
	NewStatus      ApplicationStatus `gorm:"type:varchar(40)" json:"new_status"`
	Feedback       string            `gorm:"type:text" json:"feedback,omitempty"`
	CreatedAt      time.Time         `gorm:"index" json:"created_at"`
}

func (ApplicationAction) TableName() string {
	return "application_actions"
}
