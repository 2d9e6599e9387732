package service

import (
	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/repository"
)

// Repositories bundles the stores the services share
type Repositories struct {
	Applications  repository.ApplicationRepository
	Actions       repository.ActionRepository
	Documents     repository.DocumentRepository
	Inspections   repository.InspectionRepository
	Payments      repository.PaymentRepository
	Notifications repository.NotificationRepository
	Users         repository.UserRepository
	Settings      repository.SettingRepository
	DDOs          repository.DDORepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Applications:  repository.NewApplicationRepository(db),
		Actions:       repository.NewActionRepository(db),
		Documents:     repository.NewDocumentRepository(db),
		Inspections:   repository.NewInspectionRepository(db),
		Payments:      repository.NewPaymentRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		Users:         repository.NewUserRepository(db),
		Settings:      repository.NewSettingRepository(db),
		DDOs:          repository.NewDDORepository(db),
	}
}
