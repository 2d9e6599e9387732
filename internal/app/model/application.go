package model

import (
	"time"

	"gorm.io/gorm"
)

type ApplicationStatus string // workflow status
type ApplicationKind string   // application kind
type Category string          // homestay category
type LocationType string      // local body type

const (
	StatusDraft                  ApplicationStatus = "draft"
	StatusSubmitted              ApplicationStatus = "submitted"
	StatusUnderScrutiny          ApplicationStatus = "under_scrutiny"
	StatusForwardedToDTDO        ApplicationStatus = "forwarded_to_dtdo"
	StatusDTDOReview             ApplicationStatus = "dtdo_review"
	StatusInspectionScheduled    ApplicationStatus = "inspection_scheduled"
	StatusInspectionUnderReview  ApplicationStatus = "inspection_under_review"
	StatusSentBackForCorrections ApplicationStatus = "sent_back_for_corrections"
	StatusRevertedToApplicant    ApplicationStatus = "reverted_to_applicant"
	StatusRevertedByDTDO         ApplicationStatus = "reverted_by_dtdo"
	StatusObjectionRaised        ApplicationStatus = "objection_raised"
	StatusLegacyRCReview         ApplicationStatus = "legacy_rc_review"
	StatusVerifiedForPayment     ApplicationStatus = "verified_for_payment"
	StatusPaymentPending         ApplicationStatus = "payment_pending"
	StatusApproved               ApplicationStatus = "approved"
	StatusRejected               ApplicationStatus = "rejected"

	KindNewRegistration   ApplicationKind = "new_registration"
	KindRenewal           ApplicationKind = "renewal"
	KindAddRooms          ApplicationKind = "add_rooms"
	KindDeleteRooms       ApplicationKind = "delete_rooms"
	KindCancelCertificate ApplicationKind = "cancel_certificate"

	CategoryDiamond Category = "diamond"
	CategoryGold    Category = "gold"
	CategorySilver  Category = "silver"

	LocationMC  LocationType = "mc"  // municipal corporation
	LocationTCP LocationType = "tcp" // town and country planning area
	LocationGP  LocationType = "gp"  // gram panchayat
)

// AllStatuses lists every workflow status
var AllStatuses = []ApplicationStatus{
	StatusDraft, StatusSubmitted, StatusUnderScrutiny, StatusForwardedToDTDO, StatusDTDOReview,
	StatusInspectionScheduled, StatusInspectionUnderReview, StatusSentBackForCorrections,
	StatusRevertedToApplicant, StatusRevertedByDTDO, StatusObjectionRaised, StatusLegacyRCReview,
	StatusVerifiedForPayment, StatusPaymentPending, StatusApproved, StatusRejected,
}

func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s ApplicationStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (k ApplicationKind) Valid() bool {
	switch k {
	case KindNewRegistration, KindRenewal, KindAddRooms, KindDeleteRooms, KindCancelCertificate:
		return true
	}
	return false
}

// IsServiceRequest reports whether the kind is derived from an approved parent
func (k ApplicationKind) IsServiceRequest() bool {
	return k == KindRenewal || k == KindAddRooms || k == KindDeleteRooms || k == KindCancelCertificate
}

func (k ApplicationKind) RequiresPayment() bool {
	return k != KindCancelCertificate
}

func (c Category) Valid() bool {
	return c == CategoryDiamond || c == CategoryGold || c == CategorySilver
}

func (l LocationType) Valid() bool {
	return l == LocationMC || l == LocationTCP || l == LocationGP
}

// ServiceRequestDetails carries the linkage of a derived request to its parent
type ServiceRequestDetails struct {
	ParentApplicationNumber string     `gorm:"type:varchar(40)" json:"parent_application_number,omitempty"`
	ParentCertificateNumber string     `gorm:"type:varchar(60)" json:"parent_certificate_number,omitempty"`
	InheritedExpiry         *time.Time `json:"inherited_expiry,omitempty"`
	SingleBedDelta          int        `json:"single_bed_delta"`
	DoubleBedDelta          int        `json:"double_bed_delta"`
	FamilySuiteDelta        int        `json:"family_suite_delta"`
}

// LegacyDetails carries an existing registration certificate being onboarded
type LegacyDetails struct {
	RCNumber  string     `gorm:"type:varchar(60)" json:"rc_number,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type Application struct {
	ID                  uint              `gorm:"primarykey" json:"id"`
	ApplicationNumber   string            `gorm:"type:varchar(40);uniqueIndex;not null" json:"application_number"`
	Kind                ApplicationKind   `gorm:"type:varchar(30);not null;default:'new_registration'" json:"kind"`
	Status              ApplicationStatus `gorm:"type:varchar(40);not null;default:'draft';index" json:"status"`
	ParentApplicationID *uint             `gorm:"index" json:"parent_application_id,omitempty"`

	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`
	OwnerName   string `gorm:"type:varchar(120);not null" json:"owner_name"`
	OwnerMobile string `gorm:"type:varchar(20)" json:"owner_mobile"`
	OwnerEmail  string `gorm:"type:varchar(120)" json:"owner_email"`

	PropertyName string `gorm:"type:varchar(200);not null" json:"property_name"`
	Address      string `gorm:"type:text" json:"address"`
	District     string `gorm:"type:varchar(100);not null;index" json:"district"`
	SubDivision  string `gorm:"type:varchar(100)" json:"sub_division"`
	Pincode      string `gorm:"type:varchar(10)" json:"pincode"`

	Category      Category     `gorm:"type:varchar(20)" json:"category"`
	LocationType  LocationType `gorm:"type:varchar(10)" json:"location_type"`
	ValidityYears int          `gorm:"default:1" json:"validity_years"`
	TotalFee      int64        `json:"total_fee"` // whole rupees, set on submit

	SingleBedRooms int `gorm:"not null;default:0" json:"single_bed_rooms"`
	DoubleBedRooms int `gorm:"not null;default:0" json:"double_bed_rooms"`
	FamilySuites   int `gorm:"not null;default:0" json:"family_suites"`
	TotalRooms     int `gorm:"not null;default:0" json:"total_rooms"`

	CorrectionSubmissionCount int        `gorm:"not null;default:0" json:"correction_submission_count"`
	SubmittedAt               *time.Time `json:"submitted_at,omitempty"`

	CertificateNumber      *string    `gorm:"type:varchar(60);uniqueIndex" json:"certificate_number,omitempty"`
	CertificateIssuedAt    *time.Time `json:"certificate_issued_at,omitempty"`
	CertificateExpiresAt   *time.Time `json:"certificate_expires_at,omitempty"`
	CertificateCancelledAt *time.Time `json:"certificate_cancelled_at,omitempty"`
	CertificateCancelledBy *uint      `json:"certificate_cancelled_by,omitempty"`
	SupersededByID         *uint      `json:"superseded_by_id,omitempty"`
	SupersededAt           *time.Time `json:"superseded_at,omitempty"`

	DAID                      *uint      `json:"da_id,omitempty"`
	DAReviewedAt              *time.Time `json:"da_reviewed_at,omitempty"`
	DARemarks                 string     `gorm:"type:text" json:"da_remarks,omitempty"`
	DTDOID                    *uint      `json:"dtdo_id,omitempty"`
	DTDOReviewedAt            *time.Time `json:"dtdo_reviewed_at,omitempty"`
	DTDORemarks               string     `gorm:"type:text" json:"dtdo_remarks,omitempty"`
	DistrictOfficerID         *uint      `json:"district_officer_id,omitempty"`
	DistrictOfficerReviewedAt *time.Time `json:"district_officer_reviewed_at,omitempty"`
	DistrictOfficerRemarks    string     `gorm:"type:text" json:"district_officer_remarks,omitempty"`
	StateOfficerID            *uint      `json:"state_officer_id,omitempty"`
	StateOfficerReviewedAt    *time.Time `json:"state_officer_reviewed_at,omitempty"`
	StateOfficerRemarks       string     `gorm:"type:text" json:"state_officer_remarks,omitempty"`
	RejectionReason           string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	ServiceRequest ServiceRequestDetails `gorm:"embedded;embeddedPrefix:sr_" json:"service_request"`
	Legacy         LegacyDetails         `gorm:"embedded;embeddedPrefix:legacy_" json:"legacy"`

	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Documents []ApplicationDocument `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
}

func (Application) TableName() string {
	return "applications"
}

// BeforeSave keeps TotalRooms equal to the sum of the room counters
func (a *Application) BeforeSave(tx *gorm.DB) error {
	a.RecomputeTotalRooms()
	return nil
}

func (a *Application) RecomputeTotalRooms() {
	a.TotalRooms = a.SingleBedRooms + a.DoubleBedRooms + a.FamilySuites
}

// ServiceRequestInfo returns the parent linkage, or nil for kinds that do not carry one
func (a *Application) ServiceRequestInfo() *ServiceRequestDetails {
	if !a.Kind.IsServiceRequest() {
		return nil
	}
	return &a.ServiceRequest
}

// LegacyInfo returns the legacy certificate details, or nil when none were supplied
func (a *Application) LegacyInfo() *LegacyDetails {
	if a.Kind != KindNewRegistration || a.Legacy.RCNumber == "" {
		return nil
	}
	return &a.Legacy
}

// HasActiveCertificate reports whether the registration holds a current certificate at now
func (a *Application) HasActiveCertificate(now time.Time) bool {
	return a.Status == StatusApproved &&
		a.CertificateNumber != nil &&
		a.CertificateCancelledAt == nil &&
		a.SupersededAt == nil &&
		(a.CertificateExpiresAt == nil || !now.After(*a.CertificateExpiresAt))
}
