package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ikkim/homestay-backend/internal/app/model"
)

type SettingRepository interface {
	Get(key string) (*model.SystemSetting, error)
	Upsert(setting *model.SystemSetting) error
	List() ([]model.SystemSetting, error)
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(key string) (*model.SystemSetting, error) {
	var setting model.SystemSetting
	if err := r.db.Where("setting_key = ?", key).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(setting *model.SystemSetting) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(setting).Error
}

func (r *settingRepository) List() ([]model.SystemSetting, error) {
	var settings []model.SystemSetting
	err := r.db.Order("setting_key ASC").Find(&settings).Error
	return settings, err
}
