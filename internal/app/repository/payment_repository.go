package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

var nonTerminalTransactionStatuses = []model.TransactionStatus{model.TransactionInitiated}

type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	Create(txn *model.PaymentTransaction) error
	Save(txn *model.PaymentTransaction) error
	FindByAppRefNo(appRefNo string) (*model.PaymentTransaction, error)
	FindByAppRefNoForUpdate(appRefNo string) (*model.PaymentTransaction, error)
	FindLatestByApplication(applicationID uint) (*model.PaymentTransaction, error)
	FindActiveByApplication(applicationID uint) (*model.PaymentTransaction, error)
	FindByApplication(applicationID uint) ([]model.PaymentTransaction, error)
	FindStaleInitiated(before time.Time, limit int) ([]model.PaymentTransaction, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &paymentRepository{db: tx}
}

func (r *paymentRepository) Create(txn *model.PaymentTransaction) error {
	logger.Debug("Creating payment transaction in database", map[string]interface{}{
		"application_id": txn.ApplicationID,
		"app_ref_no":     txn.AppRefNo,
		"total_amount":   txn.TotalAmount,
	})

	if err := r.db.Create(txn).Error; err != nil {
		logger.Error("Failed to create payment transaction", err, map[string]interface{}{
			"application_id": txn.ApplicationID,
			"app_ref_no":     txn.AppRefNo,
		})
		return err
	}
	return nil
}

func (r *paymentRepository) Save(txn *model.PaymentTransaction) error {
	return r.db.Save(txn).Error
}

func (r *paymentRepository) FindByAppRefNo(appRefNo string) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	if err := r.db.Where("app_ref_no = ?", appRefNo).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *paymentRepository) FindByAppRefNoForUpdate(appRefNo string) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("app_ref_no = ?", appRefNo).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *paymentRepository) FindLatestByApplication(applicationID uint) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	if err := r.db.Where("application_id = ?", applicationID).
		Order("created_at DESC, id DESC").
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *paymentRepository) FindActiveByApplication(applicationID uint) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	if err := r.db.Where("application_id = ? AND transaction_status IN ?", applicationID, nonTerminalTransactionStatuses).
		Order("id DESC").
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *paymentRepository) FindByApplication(applicationID uint) ([]model.PaymentTransaction, error) {
	var txns []model.PaymentTransaction
	err := r.db.Where("application_id = ?", applicationID).Order("id DESC").Find(&txns).Error
	return txns, err
}

// FindStaleInitiated returns attempts still initiated that were created before the
// cutoff and have not been double-verified since then
func (r *paymentRepository) FindStaleInitiated(before time.Time, limit int) ([]model.PaymentTransaction, error) {
	var txns []model.PaymentTransaction
	err := r.db.Where("transaction_status = ? AND created_at < ?", model.TransactionInitiated, before).
		Where("verified_at IS NULL OR verified_at < ?", before).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}
