package model

import "time"

const (
	SettingPaymentTestMode   = "payment_test_mode"
	SettingPaymentTestAmount = "payment_test_amount"
)

// SystemSetting is a runtime flag editable without a restart
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;column:setting_key;type:varchar(60)" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedBy *uint     `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
