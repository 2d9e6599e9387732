package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

type NotificationRepository interface {
	WithTx(tx *gorm.DB) NotificationRepository
	Create(event *model.NotificationEvent) error
	ClaimPending(limit int) ([]model.NotificationEvent, error)
	MarkSent(id uint, at time.Time) error
	MarkFailed(id uint, cause string) error
	FindByApplication(applicationID uint) ([]model.NotificationEvent, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) WithTx(tx *gorm.DB) NotificationRepository {
	return &notificationRepository{db: tx}
}

func (r *notificationRepository) Create(event *model.NotificationEvent) error {
	return r.db.Create(event).Error
}

// ClaimPending moves up to limit pending events to dispatching and returns them.
// An event is claimed by one dispatcher only; a claimed event is never retried,
// which keeps delivery at most once.
func (r *notificationRepository) ClaimPending(limit int) ([]model.NotificationEvent, error) {
	var candidates []model.NotificationEvent
	if err := r.db.Where("status = ?", model.NotificationPending).
		Order("id ASC").
		Limit(limit).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	claimed := make([]model.NotificationEvent, 0, len(candidates))
	for _, ev := range candidates {
		res := r.db.Model(&model.NotificationEvent{}).
			Where("id = ? AND status = ?", ev.ID, model.NotificationPending).
			Updates(map[string]interface{}{
				"status":   model.NotificationDispatching,
				"attempts": gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			logger.Error("Failed to claim notification event", res.Error, map[string]interface{}{
				"event_id": ev.ID,
			})
			continue
		}
		if res.RowsAffected == 1 {
			ev.Status = model.NotificationDispatching
			ev.Attempts++
			claimed = append(claimed, ev)
		}
	}
	return claimed, nil
}

func (r *notificationRepository) MarkSent(id uint, at time.Time) error {
	return r.db.Model(&model.NotificationEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        model.NotificationSent,
		"dispatched_at": at,
		"last_error":    "",
	}).Error
}

func (r *notificationRepository) MarkFailed(id uint, cause string) error {
	return r.db.Model(&model.NotificationEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     model.NotificationFailed,
		"last_error": cause,
	}).Error
}

func (r *notificationRepository) FindByApplication(applicationID uint) ([]model.NotificationEvent, error) {
	var events []model.NotificationEvent
	err := r.db.Where("application_id = ?", applicationID).Order("id ASC").Find(&events).Error
	return events, err
}
