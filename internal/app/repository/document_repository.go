package repository

import (
	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

type DocumentRepository interface {
	WithTx(tx *gorm.DB) DocumentRepository
	Create(doc *model.ApplicationDocument) error
	FindByID(id uint) (*model.ApplicationDocument, error)
	FindByApplication(applicationID uint) ([]model.ApplicationDocument, error)
	UpdateVerification(doc *model.ApplicationDocument) error
	ResetVerification(applicationID uint, statuses []model.DocumentVerificationStatus) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) WithTx(tx *gorm.DB) DocumentRepository {
	return &documentRepository{db: tx}
}

func (r *documentRepository) Create(doc *model.ApplicationDocument) error {
	if err := r.db.Create(doc).Error; err != nil {
		logger.Error("Failed to create document in database", err, map[string]interface{}{
			"application_id": doc.ApplicationID,
			"document_type":  doc.DocumentType,
		})
		return err
	}
	return nil
}

func (r *documentRepository) FindByID(id uint) (*model.ApplicationDocument, error) {
	var doc model.ApplicationDocument
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByApplication(applicationID uint) ([]model.ApplicationDocument, error) {
	var docs []model.ApplicationDocument
	err := r.db.Where("application_id = ?", applicationID).Order("id ASC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) UpdateVerification(doc *model.ApplicationDocument) error {
	return r.db.Model(doc).
		Select("verification_status", "verified_by", "verified_at", "remarks").
		Updates(doc).Error
}

// ResetVerification puts documents in the given states back to pending, e.g. after
// the owner replaces files during corrections
func (r *documentRepository) ResetVerification(applicationID uint, statuses []model.DocumentVerificationStatus) error {
	return r.db.Model(&model.ApplicationDocument{}).
		Where("application_id = ? AND verification_status IN ?", applicationID, statuses).
		Updates(map[string]interface{}{
			"verification_status": model.DocumentPending,
			"verified_by":         nil,
			"verified_at":         nil,
		}).Error
}
