package model

import "time"

type Role string // actor role

const (
	RolePropertyOwner    Role = "property_owner"
	RoleDealingAssistant Role = "dealing_assistant"
	RoleDTDO             Role = "dtdo"
	RoleDistrictOfficer  Role = "district_officer"
	RoleStateOfficer     Role = "state_officer"
	RoleAdmin            Role = "admin"
	RoleSystem           Role = "system" // gateway callbacks and scheduled jobs
)

func (r Role) Valid() bool {
	switch r {
	case RolePropertyOwner, RoleDealingAssistant, RoleDTDO, RoleDistrictOfficer, RoleStateOfficer, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// IsOfficer reports whether the role belongs to department staff
func (r Role) IsOfficer() bool {
	switch r {
	case RoleDealingAssistant, RoleDTDO, RoleDistrictOfficer, RoleStateOfficer, RoleAdmin:
		return true
	}
	return false
}

// DistrictScoped reports whether the role only acts on its own district
func (r Role) DistrictScoped() bool {
	return r == RoleDealingAssistant || r == RoleDTDO || r == RoleDistrictOfficer
}

// User is a directory entry for owners and officers. Authentication lives elsewhere;
// this table only backs notification recipients and token issuance for seeding.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	Email     string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	Mobile    string    `gorm:"type:varchar(20)" json:"mobile"`
	Role      Role      `gorm:"type:varchar(30);not null;default:'property_owner'" json:"role"`
	District  string    `gorm:"type:varchar(100);index" json:"district,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
