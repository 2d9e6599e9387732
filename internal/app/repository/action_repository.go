package repository

import (
	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
)

// ActionRepository is append-only: there is deliberately no update or delete
type ActionRepository interface {
	WithTx(tx *gorm.DB) ActionRepository
	Append(actions ...model.ApplicationAction) error
	FindByApplication(applicationID uint) ([]model.ApplicationAction, error)
	CountByAction(applicationID uint, action string) (int64, error)
}

type actionRepository struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepository{db: db}
}

func (r *actionRepository) WithTx(tx *gorm.DB) ActionRepository {
	return &actionRepository{db: tx}
}

func (r *actionRepository) Append(actions ...model.ApplicationAction) error {
	if len(actions) == 0 {
		return nil
	}
	return r.db.Create(&actions).Error
}

func (r *actionRepository) FindByApplication(applicationID uint) ([]model.ApplicationAction, error) {
	var actions []model.ApplicationAction
	err := r.db.Where("application_id = ?", applicationID).
		Order("created_at ASC, id ASC").
		Find(&actions).Error
	return actions, err
}

func (r *actionRepository) CountByAction(applicationID uint, action string) (int64, error) {
	var count int64
	err := r.db.Model(&model.ApplicationAction{}).
		Where("application_id = ? AND action = ?", applicationID, action).
		Count(&count).Error
	return count, err
}
