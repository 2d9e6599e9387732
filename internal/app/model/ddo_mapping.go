package model

import "time"

// DDOMapping maps a district (and optionally a sub-division) to its disbursing office
type DDOMapping struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	District     string    `gorm:"type:varchar(100);not null;index" json:"district"`
	SubDivision  string    `gorm:"type:varchar(100)" json:"sub_division,omitempty"`
	DDOCode      string    `gorm:"type:varchar(30);not null" json:"ddo_code"`
	TreasuryCode string    `gorm:"type:varchar(30)" json:"treasury_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DDOMapping) TableName() string {
	return "ddo_mappings"
}
