package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

// draftColumns are the only columns an owner may change
var draftColumns = []string{
	"owner_name", "owner_mobile", "owner_email",
	"property_name", "address", "district", "sub_division", "pincode",
	"category", "location_type", "validity_years",
	"single_bed_rooms", "double_bed_rooms", "family_suites", "total_rooms",
	"legacy_rc_number", "legacy_issued_at", "legacy_expires_at",
}

// ApplicationFilter narrows officer listings
type ApplicationFilter struct {
	Statuses []model.ApplicationStatus
	District string
	OwnerID  uint
	Limit    int
	Offset   int
}

type ApplicationRepository interface {
	WithTx(tx *gorm.DB) ApplicationRepository
	Create(app *model.Application) error
	FindByID(id uint) (*model.Application, error)
	FindByIDForUpdate(id uint) (*model.Application, error)
	List(filter ApplicationFilter) ([]model.Application, int64, error)
	UpdateDraft(app *model.Application) error
	ApplyTransition(app *model.Application, previous model.ApplicationStatus) (int64, error)
	UpdateColumns(id uint, columns map[string]interface{}) error
	FindActiveChild(parentID uint) (*model.Application, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) WithTx(tx *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: tx}
}

// Create inserts the application and assigns its number in the same transaction
func (r *applicationRepository) Create(app *model.Application) error {
	logger.Debug("Creating application in database", map[string]interface{}{
		"owner_id": app.OwnerID,
		"kind":     app.Kind,
		"district": app.District,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		app.ApplicationNumber = "TMP-" + uuid.NewString()
		if err := tx.Omit(clause.Associations).Create(app).Error; err != nil {
			return err
		}
		app.ApplicationNumber = fmt.Sprintf("HS/%d/%06d", app.CreatedAt.Year(), app.ID)
		return tx.Model(&model.Application{}).
			Where("id = ?", app.ID).
			UpdateColumn("application_number", app.ApplicationNumber).Error
	})
	if err != nil {
		logger.Error("Failed to create application in database", err, map[string]interface{}{
			"owner_id": app.OwnerID,
		})
		return err
	}

	logger.Debug("Application created in database", map[string]interface{}{
		"application_id":     app.ID,
		"application_number": app.ApplicationNumber,
	})
	return nil
}

func (r *applicationRepository) FindByID(id uint) (*model.Application, error) {
	var app model.Application
	if err := r.db.Preload("Documents").First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByIDForUpdate row-locks the application; call inside a transaction
func (r *applicationRepository) FindByIDForUpdate(id uint) (*model.Application, error) {
	var app model.Application
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) List(filter ApplicationFilter) ([]model.Application, int64, error) {
	query := r.db.Model(&model.Application{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.District != "" {
		query = query.Where("LOWER(district) LIKE ?", "%"+strings.ToLower(filter.District)+"%")
	}
	if filter.OwnerID != 0 {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count applications", err, nil)
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var apps []model.Application
	if err := query.Order("updated_at DESC").Limit(limit).Offset(filter.Offset).Find(&apps).Error; err != nil {
		logger.Error("Failed to list applications", err, nil)
		return nil, 0, err
	}
	return apps, total, nil
}

// UpdateDraft writes owner-editable columns only; workflow fields are never touched
func (r *applicationRepository) UpdateDraft(app *model.Application) error {
	app.RecomputeTotalRooms()
	return r.db.Model(app).Select(draftColumns).Updates(app).Error
}

// ApplyTransition writes the whole row if the status is still the one the guard saw.
// Zero rows affected means another request won the race.
func (r *applicationRepository) ApplyTransition(app *model.Application, previous model.ApplicationStatus) (int64, error) {
	app.RecomputeTotalRooms()
	result := r.db.Model(app).
		Where("status = ?", previous).
		Select("*").
		Omit(clause.Associations, "id", "created_at", "application_number", "owner_id", "kind", "parent_application_id").
		Updates(app)
	if result.Error != nil {
		logger.Error("Failed to apply application transition", result.Error, map[string]interface{}{
			"application_id":  app.ID,
			"previous_status": previous,
			"new_status":      app.Status,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateColumns is used for parent stamping; it bypasses hooks
func (r *applicationRepository) UpdateColumns(id uint, columns map[string]interface{}) error {
	return r.db.Model(&model.Application{}).Where("id = ?", id).UpdateColumns(columns).Error
}

// FindActiveChild returns the non-terminal service request of a parent, or gorm.ErrRecordNotFound
func (r *applicationRepository) FindActiveChild(parentID uint) (*model.Application, error) {
	var child model.Application
	err := r.db.Where("parent_application_id = ? AND status NOT IN ?", parentID,
		[]model.ApplicationStatus{model.StatusApproved, model.StatusRejected}).
		Order("id DESC").
		First(&child).Error
	if err != nil {
		return nil, err
	}
	return &child, nil
}
