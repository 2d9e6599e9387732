package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

// ServiceRequestInput asks for a derived request against an approved registration.
// Deltas are signed: positive for add_rooms, negative for delete_rooms.
type ServiceRequestInput struct {
	Kind             model.ApplicationKind `json:"kind"`
	SingleBedDelta   int                   `json:"single_bed_delta"`
	DoubleBedDelta   int                   `json:"double_bed_delta"`
	FamilySuiteDelta int                   `json:"family_suite_delta"`
	ValidityYears    int                   `json:"validity_years"`
}

type ServiceRequestService interface {
	Create(actor workflow.Actor, parentID uint, input ServiceRequestInput) (*model.Application, error)
}

type serviceRequestService struct {
	db          *gorm.DB
	repos       Repositories
	maxRooms    int
	renewalDays int
	now         func() time.Time
}

func NewServiceRequestService(db *gorm.DB, repos Repositories, maxRooms, renewalDays int, now func() time.Time) ServiceRequestService {
	if now == nil {
		now = time.Now
	}
	return &serviceRequestService{db: db, repos: repos, maxRooms: maxRooms, renewalDays: renewalDays, now: now}
}

func (s *serviceRequestService) Create(actor workflow.Actor, parentID uint, input ServiceRequestInput) (*model.Application, error) {
	if !input.Kind.IsServiceRequest() {
		return nil, fmt.Errorf("%w: %q is not a service request kind", ErrInvalidInput, input.Kind)
	}
	if input.ValidityYears < 0 || input.ValidityYears > 3 {
		return nil, fmt.Errorf("%w: validity must be between 1 and 3 years", ErrInvalidInput)
	}

	var child *model.Application
	err := s.db.Transaction(func(tx *gorm.DB) error {
		apps := s.repos.Applications.WithTx(tx)

		parent, err := apps.FindByIDForUpdate(parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return err
		}
		if actor.Role != model.RolePropertyOwner || parent.OwnerID != actor.ID {
			return ErrForbidden
		}

		now := s.now()
		if rej := checkParent(parent); rej != nil {
			return rej
		}

		existing, err := apps.FindActiveChild(parent.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			return workflow.NewRejection(workflow.CodeActiveServiceReq, "parent_application_id",
				fmt.Sprintf("service request %s is still in progress for this registration", existing.ApplicationNumber),
				map[string]interface{}{
					"existing_application_id":     existing.ID,
					"existing_application_number": existing.ApplicationNumber,
					"existing_kind":               existing.Kind,
					"existing_status":             existing.Status,
				})
		}

		// renewals are bounded by their own window instead
		if input.Kind != model.KindRenewal && !parent.HasActiveCertificate(now) {
			return workflow.NewRejection(workflow.CodeParentNotEligible, "parent_application_id",
				"the certificate of this registration has expired; apply for renewal instead", nil)
		}

		switch input.Kind {
		case model.KindRenewal:
			if rej := s.checkRenewalWindow(parent, now); rej != nil {
				return rej
			}
		case model.KindAddRooms:
			if rej := s.checkAddRooms(parent, input); rej != nil {
				return rej
			}
		case model.KindDeleteRooms:
			if rej := checkDeleteRooms(parent, input); rej != nil {
				return rej
			}
		}

		child = derive(parent, input)
		if err := apps.Create(child); err != nil {
			return fmt.Errorf("failed to create service request: %w", err)
		}
		return nil
	})
	if err != nil {
		var rejection *workflow.GuardRejection
		if errors.As(err, &rejection) {
			logger.Warn("Service request rejected", map[string]interface{}{
				"parent_id": parentID,
				"kind":      input.Kind,
				"code":      rejection.Code,
			})
		}
		return nil, err
	}

	logger.Info("Service request created", map[string]interface{}{
		"parent_id":          parentID,
		"application_id":     child.ID,
		"application_number": child.ApplicationNumber,
		"kind":               child.Kind,
	})
	return child, nil
}

func checkParent(parent *model.Application) *workflow.GuardRejection {
	if parent.Status != model.StatusApproved || parent.CertificateNumber == nil {
		return workflow.NewRejection(workflow.CodeParentNotEligible, "parent_application_id",
			"service requests need an approved registration with a certificate", nil)
	}
	if parent.CertificateCancelledAt != nil || parent.SupersededAt != nil {
		return workflow.NewRejection(workflow.CodeParentNotEligible, "parent_application_id",
			"the certificate of this registration is no longer current", nil)
	}
	return nil
}

// checkRenewalWindow accepts expiry-window <= now <= expiry
func (s *serviceRequestService) checkRenewalWindow(parent *model.Application, now time.Time) *workflow.GuardRejection {
	if parent.CertificateExpiresAt == nil {
		return workflow.NewRejection(workflow.CodeParentNotEligible, "certificate_expires_at",
			"the certificate has no expiry date to renew from", nil)
	}
	expiry := *parent.CertificateExpiresAt
	opens := expiry.AddDate(0, 0, -s.renewalDays)
	if now.Before(opens) || now.After(expiry) {
		return workflow.NewRejection(workflow.CodeRenewalWindow, "kind",
			fmt.Sprintf("renewal is open from %s to %s", opens.Format("02-01-2006"), expiry.Format("02-01-2006")),
			map[string]interface{}{
				"window_start": opens,
				"window_end":   expiry,
			})
	}
	return nil
}

func (s *serviceRequestService) checkAddRooms(parent *model.Application, input ServiceRequestInput) *workflow.GuardRejection {
	if input.SingleBedDelta < 0 || input.DoubleBedDelta < 0 || input.FamilySuiteDelta < 0 {
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "rooms", "room additions cannot be negative", nil)
	}
	added := input.SingleBedDelta + input.DoubleBedDelta + input.FamilySuiteDelta
	if added == 0 {
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "rooms", "at least one room must be added", nil)
	}
	if total := parent.TotalRooms + added; total > s.maxRooms {
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "rooms",
			fmt.Sprintf("adding %d rooms gives a total of %d, above the maximum of %d", added, total, s.maxRooms),
			map[string]interface{}{"resulting_total": total, "max_rooms": s.maxRooms})
	}
	return nil
}

func checkDeleteRooms(parent *model.Application, input ServiceRequestInput) *workflow.GuardRejection {
	if input.SingleBedDelta > 0 || input.DoubleBedDelta > 0 || input.FamilySuiteDelta > 0 {
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "rooms", "room deletions must be negative deltas", nil)
	}
	removed := -(input.SingleBedDelta + input.DoubleBedDelta + input.FamilySuiteDelta)
	if removed == 0 {
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "rooms", "at least one room must be removed", nil)
	}
	switch {
	case parent.SingleBedRooms+input.SingleBedDelta < 0:
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "single_bed_delta",
			fmt.Sprintf("only %d single bed rooms are registered", parent.SingleBedRooms), nil)
	case parent.DoubleBedRooms+input.DoubleBedDelta < 0:
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "double_bed_delta",
			fmt.Sprintf("only %d double bed rooms are registered", parent.DoubleBedRooms), nil)
	case parent.FamilySuites+input.FamilySuiteDelta < 0:
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "family_suite_delta",
			fmt.Sprintf("only %d family suites are registered", parent.FamilySuites), nil)
	}
	if total := parent.TotalRooms - removed; total < 1 {
		return workflow.NewRejection(workflow.CodeRoomsInvalid, "rooms",
			"at least one room must remain; use cancel_certificate to close the registration",
			map[string]interface{}{"resulting_total": total})
	}
	return nil
}

// derive clones the descriptive fields of the parent into a fresh draft
func derive(parent *model.Application, input ServiceRequestInput) *model.Application {
	parentID := parent.ID
	child := &model.Application{
		Kind:                input.Kind,
		Status:              model.StatusDraft,
		ParentApplicationID: &parentID,

		OwnerID:     parent.OwnerID,
		OwnerName:   parent.OwnerName,
		OwnerMobile: parent.OwnerMobile,
		OwnerEmail:  parent.OwnerEmail,

		PropertyName: parent.PropertyName,
		Address:      parent.Address,
		District:     parent.District,
		SubDivision:  parent.SubDivision,
		Pincode:      parent.Pincode,
		Category:     parent.Category,
		LocationType: parent.LocationType,

		ValidityYears:  parent.ValidityYears,
		SingleBedRooms: parent.SingleBedRooms,
		DoubleBedRooms: parent.DoubleBedRooms,
		FamilySuites:   parent.FamilySuites,

		ServiceRequest: model.ServiceRequestDetails{
			ParentApplicationNumber: parent.ApplicationNumber,
			ParentCertificateNumber: *parent.CertificateNumber,
			InheritedExpiry:         parent.CertificateExpiresAt,
		},
	}

	switch input.Kind {
	case model.KindRenewal:
		if input.ValidityYears > 0 {
			child.ValidityYears = input.ValidityYears
		}
	case model.KindAddRooms, model.KindDeleteRooms:
		child.ServiceRequest.SingleBedDelta = input.SingleBedDelta
		child.ServiceRequest.DoubleBedDelta = input.DoubleBedDelta
		child.ServiceRequest.FamilySuiteDelta = input.FamilySuiteDelta
		child.SingleBedRooms += input.SingleBedDelta
		child.DoubleBedRooms += input.DoubleBedDelta
		child.FamilySuites += input.FamilySuiteDelta
	}
	child.RecomputeTotalRooms()
	return child
}
