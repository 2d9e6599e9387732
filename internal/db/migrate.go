package db

import (
	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

// Models lists every table owned by the service
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Application{},
		&model.ApplicationAction{},
		&model.ApplicationDocument{},
		&model.InspectionOrder{},
		&model.InspectionReport{},
		&model.PaymentTransaction{},
		&model.DDOMapping{},
		&model.NotificationEvent{},
		&model.SystemSetting{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedReferenceData(DB); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// DefaultDDOMappings is the district to disbursing office directory shipped with the service
var DefaultDDOMappings = []model.DDOMapping{
	{District: "Bilaspur", DDOCode: "BLP00-101", TreasuryCode: "BLP00"},
	{District: "Chamba", DDOCode: "CHM00-102", TreasuryCode: "CHM00"},
	{District: "Hamirpur", DDOCode: "HMR00-103", TreasuryCode: "HMR00"},
	{District: "Kangra", DDOCode: "DHM00-104", TreasuryCode: "DHM00"},
	{District: "Kangra", SubDivision: "Palampur", DDOCode: "PLM00-114", TreasuryCode: "PLM00"},
	{District: "Kinnaur", DDOCode: "KNR00-105", TreasuryCode: "KNR00"},
	{District: "Kullu", DDOCode: "KLU00-106", TreasuryCode: "KLU00"},
	{District: "Kullu", SubDivision: "Manali", DDOCode: "MNL00-116", TreasuryCode: "MNL00"},
	{District: "Lahaul and Spiti", DDOCode: "KEY00-107", TreasuryCode: "KEY00"},
	{District: "Mandi", DDOCode: "MND00-108", TreasuryCode: "MND00"},
	{District: "Shimla", DDOCode: "SML00-532", TreasuryCode: "SML00"},
	{District: "Sirmaur", DDOCode: "NHN00-109", TreasuryCode: "NHN00"},
	{District: "Solan", DDOCode: "SOL00-110", TreasuryCode: "SOL00"},
	{District: "Una", DDOCode: "UNA00-111", TreasuryCode: "UNA00"},
}

// SeedReferenceData inserts the DDO directory and default runtime settings when absent
func SeedReferenceData(db *gorm.DB) error {
	logger.Info("Seeding reference data...")

	var count int64
	if err := db.Model(&model.DDOMapping{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		mappings := make([]model.DDOMapping, len(DefaultDDOMappings))
		copy(mappings, DefaultDDOMappings)
		if err := db.Create(&mappings).Error; err != nil {
			return err
		}
		logger.Info("DDO directory seeded", map[string]interface{}{
			"count": len(mappings),
		})
	} else {
		logger.Info("DDO directory already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
	}

	defaults := []model.SystemSetting{
		{Key: model.SettingPaymentTestMode, Value: "false"},
		{Key: model.SettingPaymentTestAmount, Value: "1"},
	}
	for _, s := range defaults {
		setting := s
		if err := db.Where(model.SystemSetting{Key: setting.Key}).FirstOrCreate(&setting).Error; err != nil {
			return err
		}
	}

	logger.Info("Reference data seeded successfully")
	return nil
}
