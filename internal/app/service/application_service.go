package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/repository"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

// editableStatuses are the states in which the owner may change the draft
var editableStatuses = []model.ApplicationStatus{
	model.StatusDraft,
	model.StatusSentBackForCorrections,
	model.StatusRevertedToApplicant,
}

// LegacyInput describes an existing registration certificate
type LegacyInput struct {
	RCNumber  string     `json:"rc_number"`
	IssuedAt  *time.Time `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// DraftInput is the owner-editable part of an application
type DraftInput struct {
	OwnerName      string             `json:"owner_name"`
	OwnerMobile    string             `json:"owner_mobile"`
	OwnerEmail     string             `json:"owner_email"`
	PropertyName   string             `json:"property_name"`
	Address        string             `json:"address"`
	District       string             `json:"district"`
	SubDivision    string             `json:"sub_division"`
	Pincode        string             `json:"pincode"`
	Category       model.Category     `json:"category"`
	LocationType   model.LocationType `json:"location_type"`
	ValidityYears  int                `json:"validity_years"`
	SingleBedRooms int                `json:"single_bed_rooms"`
	DoubleBedRooms int                `json:"double_bed_rooms"`
	FamilySuites   int                `json:"family_suites"`
	Legacy         *LegacyInput       `json:"legacy"`
}

// ListQuery narrows an application listing
type ListQuery struct {
	Statuses []model.ApplicationStatus
	Limit    int
	Offset   int
}

type ApplicationService interface {
	CreateDraft(actor workflow.Actor, input DraftInput) (*model.Application, error)
	UpdateDraft(actor workflow.Actor, id uint, input DraftInput) (*model.Application, error)
	Get(actor workflow.Actor, id uint) (*model.Application, error)
	List(actor workflow.Actor, query ListQuery) ([]model.Application, int64, error)
	QuoteFee(actor workflow.Actor, id uint) (*FeeQuote, error)
}

type applicationService struct {
	db       *gorm.DB
	repos    Repositories
	fees     *FeeSchedule
	maxRooms int
}

func NewApplicationService(db *gorm.DB, repos Repositories, fees *FeeSchedule, maxRooms int) ApplicationService {
	return &applicationService{db: db, repos: repos, fees: fees, maxRooms: maxRooms}
}

func (s *applicationService) CreateDraft(actor workflow.Actor, input DraftInput) (*model.Application, error) {
	if actor.Role != model.RolePropertyOwner {
		return nil, ErrForbidden
	}
	if err := s.validate(input, model.KindNewRegistration); err != nil {
		logger.Warn("Draft validation failed", map[string]interface{}{
			"owner_id": actor.ID,
			"error":    err.Error(),
		})
		return nil, err
	}

	app := &model.Application{
		Kind:    model.KindNewRegistration,
		Status:  model.StatusDraft,
		OwnerID: actor.ID,
	}
	applyDraft(app, input, true)

	if err := s.repos.Applications.Create(app); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	logger.Info("Draft application created", map[string]interface{}{
		"application_id":     app.ID,
		"application_number": app.ApplicationNumber,
		"owner_id":           actor.ID,
	})
	return app, nil
}

// UpdateDraft rewrites the owner fields while the application is with the owner.
// Room counts of service requests are fixed by the request itself.
func (s *applicationService) UpdateDraft(actor workflow.Actor, id uint, input DraftInput) (*model.Application, error) {
	var updated *model.Application
	err := s.db.Transaction(func(tx *gorm.DB) error {
		apps := s.repos.Applications.WithTx(tx)
		app, err := apps.FindByIDForUpdate(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return err
		}
		if actor.Role != model.RolePropertyOwner || app.OwnerID != actor.ID {
			return ErrForbidden
		}
		if !containsApplicationStatus(editableStatuses, app.Status) {
			return ErrNotEditable
		}

		if app.Kind.IsServiceRequest() {
			input.SingleBedRooms = app.SingleBedRooms
			input.DoubleBedRooms = app.DoubleBedRooms
			input.FamilySuites = app.FamilySuites
			input.Legacy = nil
		}
		if err := s.validate(input, app.Kind); err != nil {
			return err
		}

		applyDraft(app, input, app.Kind == model.KindNewRegistration)
		if err := apps.UpdateDraft(app); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		updated = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Draft application updated", map[string]interface{}{
		"application_id": id,
		"owner_id":       actor.ID,
		"total_rooms":    updated.TotalRooms,
	})
	return updated, nil
}

func (s *applicationService) Get(actor workflow.Actor, id uint) (*model.Application, error) {
	app, err := s.repos.Applications.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if err := authorizeView(actor, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) List(actor workflow.Actor, query ListQuery) ([]model.Application, int64, error) {
	filter := repository.ApplicationFilter{
		Statuses: query.Statuses,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	switch {
	case actor.Role == model.RolePropertyOwner:
		filter.OwnerID = actor.ID
	case actor.Role.DistrictScoped():
		filter.District = workflow.CanonicalDistrict(actor.District)
	case actor.Role == model.RoleStateOfficer || actor.Role == model.RoleAdmin:
	default:
		return nil, 0, ErrForbidden
	}
	return s.repos.Applications.List(filter)
}

func (s *applicationService) QuoteFee(actor workflow.Actor, id uint) (*FeeQuote, error) {
	app, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	return s.fees.Quote(app)
}

func (s *applicationService) validate(input DraftInput, kind model.ApplicationKind) error {
	if strings.TrimSpace(input.OwnerName) == "" {
		return fmt.Errorf("%w: owner name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.District) == "" {
		return fmt.Errorf("%w: district is required", ErrInvalidInput)
	}
	if input.Category != "" && !input.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, input.Category)
	}
	if input.LocationType != "" && !input.LocationType.Valid() {
		return fmt.Errorf("%w: unknown location type %q", ErrInvalidInput, input.LocationType)
	}
	if input.ValidityYears < 0 || input.ValidityYears > 3 {
		return fmt.Errorf("%w: validity must be between 1 and 3 years", ErrInvalidInput)
	}
	if input.SingleBedRooms < 0 || input.DoubleBedRooms < 0 || input.FamilySuites < 0 {
		return fmt.Errorf("%w: room counts cannot be negative", ErrInvalidInput)
	}
	if total := input.SingleBedRooms + input.DoubleBedRooms + input.FamilySuites; total > s.maxRooms {
		return fmt.Errorf("%w: a homestay may have at most %d rooms (got %d)", ErrInvalidInput, s.maxRooms, total)
	}
	if input.Legacy != nil && kind != model.KindNewRegistration {
		return fmt.Errorf("%w: existing certificate details only apply to new registrations", ErrInvalidInput)
	}
	return nil
}

func applyDraft(app *model.Application, input DraftInput, allowLegacy bool) {
	app.OwnerName = strings.TrimSpace(input.OwnerName)
	app.OwnerMobile = strings.TrimSpace(input.OwnerMobile)
	app.OwnerEmail = strings.TrimSpace(input.OwnerEmail)
	app.PropertyName = strings.TrimSpace(input.PropertyName)
	app.Address = strings.TrimSpace(input.Address)
	app.District = strings.TrimSpace(input.District)
	app.SubDivision = strings.TrimSpace(input.SubDivision)
	app.Pincode = strings.TrimSpace(input.Pincode)
	app.Category = input.Category
	app.LocationType = input.LocationType
	app.ValidityYears = input.ValidityYears
	if app.ValidityYears == 0 {
		app.ValidityYears = 1
	}
	app.SingleBedRooms = input.SingleBedRooms
	app.DoubleBedRooms = input.DoubleBedRooms
	app.FamilySuites = input.FamilySuites
	app.RecomputeTotalRooms()

	if !allowLegacy {
		return
	}
	if input.Legacy == nil {
		app.Legacy = model.LegacyDetails{}
		return
	}
	app.Legacy = model.LegacyDetails{
		RCNumber:  strings.TrimSpace(input.Legacy.RCNumber),
		IssuedAt:  input.Legacy.IssuedAt,
		ExpiresAt: input.Legacy.ExpiresAt,
	}
}

func containsApplicationStatus(list []model.ApplicationStatus, s model.ApplicationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
