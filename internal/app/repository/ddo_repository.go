package repository

import (
	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
)

type DDORepository interface {
	FindAll() ([]model.DDOMapping, error)
	Create(mapping *model.DDOMapping) error
	BulkCreate(mappings []model.DDOMapping, batchSize int) error
}

type ddoRepository struct {
	db *gorm.DB
}

func NewDDORepository(db *gorm.DB) DDORepository {
	return &ddoRepository{db: db}
}

func (r *ddoRepository) FindAll() ([]model.DDOMapping, error) {
	var mappings []model.DDOMapping
	err := r.db.Order("district ASC, sub_division ASC").Find(&mappings).Error
	return mappings, err
}

func (r *ddoRepository) Create(mapping *model.DDOMapping) error {
	return r.db.Create(mapping).Error
}

func (r *ddoRepository) BulkCreate(mappings []model.DDOMapping, batchSize int) error {
	if len(mappings) == 0 {
		return nil
	}
	return r.db.CreateInBatches(mappings, batchSize).Error
}
