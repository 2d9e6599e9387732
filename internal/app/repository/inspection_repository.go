package repository

import (
	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
)

type InspectionRepository interface {
	WithTx(tx *gorm.DB) InspectionRepository
	CreateOrder(order *model.InspectionOrder) error
	FindOpenOrder(applicationID uint) (*model.InspectionOrder, error)
	FindOrders(applicationID uint) ([]model.InspectionOrder, error)
	UpdateOrderStatus(orderID uint, status model.InspectionOrderStatus) error
	CreateReport(report *model.InspectionReport) error
	FindLatestReport(applicationID uint) (*model.InspectionReport, error)
}

type inspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) InspectionRepository {
	return &inspectionRepository{db: db}
}

func (r *inspectionRepository) WithTx(tx *gorm.DB) InspectionRepository {
	return &inspectionRepository{db: tx}
}

func (r *inspectionRepository) CreateOrder(order *model.InspectionOrder) error {
	return r.db.Omit("Report").Create(order).Error
}

// FindOpenOrder returns the latest scheduled order that has no report yet
func (r *inspectionRepository) FindOpenOrder(applicationID uint) (*model.InspectionOrder, error) {
	var order model.InspectionOrder
	err := r.db.Where("application_id = ? AND status = ?", applicationID, model.InspectionOrderScheduled).
		Order("id DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *inspectionRepository) FindOrders(applicationID uint) ([]model.InspectionOrder, error) {
	var orders []model.InspectionOrder
	err := r.db.Preload("Report").
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *inspectionRepository) UpdateOrderStatus(orderID uint, status model.InspectionOrderStatus) error {
	return r.db.Model(&model.InspectionOrder{}).Where("id = ?", orderID).Update("status", status).Error
}

// CreateReport relies on the unique index on inspection_order_id to refuse a second report
func (r *inspectionRepository) CreateReport(report *model.InspectionReport) error {
	return r.db.Create(report).Error
}

func (r *inspectionRepository) FindLatestReport(applicationID uint) (*model.InspectionReport, error) {
	var report model.InspectionReport
	err := r.db.Where("application_id = ?", applicationID).Order("id DESC").First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}
