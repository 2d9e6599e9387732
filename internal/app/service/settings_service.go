package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/repository"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	"github.com/ikkim/homestay-backend/internal/cache"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

// PaymentMode is the effective test-mode override
type PaymentMode struct {
	TestMode   bool
	TestAmount int64
}

type SettingsService interface {
	PaymentMode() PaymentMode
	List() ([]model.SystemSetting, error)
	Update(actor workflow.Actor, key, value string) (*model.SystemSetting, error)
}

type settingsService struct {
	repo     repository.SettingRepository
	cache    *cache.TTL[string]
	fallback PaymentMode
	now      func() time.Time
}

// NewSettingsService reads runtime flags through the given cache. fallback applies
// when a flag is missing or unreadable.
func NewSettingsService(repo repository.SettingRepository, c *cache.TTL[string], fallback PaymentMode, now func() time.Time) SettingsService {
	if now == nil {
		now = time.Now
	}
	return &settingsService{repo: repo, cache: c, fallback: fallback, now: now}
}

func (s *settingsService) lookup(key string) (string, bool) {
	value, err := s.cache.GetOrLoad(key, func() (string, error) {
		setting, err := s.repo.Get(key)
		if err != nil {
			return "", err
		}
		return setting.Value, nil
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Failed to read runtime setting, using configured default", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return "", false
	}
	return value, true
}

func (s *settingsService) PaymentMode() PaymentMode {
	mode := s.fallback
	if v, ok := s.lookup(model.SettingPaymentTestMode); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			mode.TestMode = b
		}
	}
	if v, ok := s.lookup(model.SettingPaymentTestAmount); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			mode.TestAmount = n
		}
	}
	if mode.TestAmount <= 0 {
		mode.TestAmount = 1
	}
	return mode
}

func (s *settingsService) List() ([]model.SystemSetting, error) {
	return s.repo.List()
}

func (s *settingsService) Update(actor workflow.Actor, key, value string) (*model.SystemSetting, error) {
	if actor.Role != model.RoleStateOfficer && actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}

	switch key {
	case model.SettingPaymentTestMode:
		if _, err := strconv.ParseBool(value); err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false", ErrInvalidInput, key)
		}
	case model.SettingPaymentTestAmount:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: %s must be a positive whole number", ErrInvalidInput, key)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	setting := &model.SystemSetting{Key: key, Value: value, UpdatedBy: actor.AuditID(), UpdatedAt: s.now()}
	if err := s.repo.Upsert(setting); err != nil {
		return nil, fmt.Errorf("failed to save setting: %w", err)
	}
	s.cache.Invalidate(key)

	logger.Info("Runtime setting updated", map[string]interface{}{
		"key":      key,
		"value":    value,
		"actor_id": actor.ID,
	})
	return setting, nil
}
