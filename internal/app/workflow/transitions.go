package workflow

import (
	"time"

	"github.com/ikkim/homestay-backend/internal/app/model"
)

type Transition string

const (
	TransitionSubmit                 Transition = "submit"
	TransitionSubmitLegacy           Transition = "submit_legacy"
	TransitionResubmit               Transition = "resubmit"
	TransitionStartScrutiny          Transition = "start_scrutiny"
	TransitionSendBack               Transition = "send_back"
	TransitionForwardToDTDO          Transition = "forward_to_dtdo"
	TransitionStartDTDOReview        Transition = "start_dtdo_review"
	TransitionDTDORevert             Transition = "dtdo_revert"
	TransitionRevertToApplicant      Transition = "revert_to_applicant"
	TransitionScheduleInspection     Transition = "schedule_inspection"
	TransitionSubmitInspectionReport Transition = "submit_inspection_report"
	TransitionApproveInspection      Transition = "approve_inspection"
	TransitionRaiseObjections        Transition = "raise_objections"
	TransitionApproveLegacy          Transition = "approve_legacy"
	TransitionReject                 Transition = "reject"
	TransitionMarkPaymentPending     Transition = "mark_payment_pending"
	TransitionConfirmPayment         Transition = "confirm_payment"
)

// Event ids emitted to the notification outbox
const (
	EventApplicationSubmitted   = "application_submitted"
	EventLegacySubmitted        = "legacy_rc_submitted"
	EventApplicationResubmitted = "application_resubmitted"
	EventScrutinyStarted        = "scrutiny_started"
	EventSentBack               = "sent_back_for_corrections"
	EventForwardedToDTDO        = "forwarded_to_dtdo"
	EventDTDOReviewStarted      = "dtdo_review_started"
	EventDTDORevert             = "dtdo_revert"
	EventRevertToApplicant      = "dtdo_revert_to_applicant"
	EventInspectionScheduled    = "inspection_scheduled"
	EventInspectionReport       = "inspection_report_submitted"
	EventVerifiedForPayment     = "verified_for_payment"
	EventCertificateCancelled   = "certificate_cancelled"
	EventObjection              = "dtdo_objection"
	EventLegacyApproved         = "legacy_rc_approved"
	EventRejected               = "application_rejected"
	EventPaymentInitiated       = "payment_initiated"
	EventPaymentConfirmed       = "payment_confirmed"
)

// Certificate is issued by settlement and handed to confirm_payment
type Certificate struct {
	Number    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Input carries the transition payload plus the facts the guard reads.
// The engine loads facts; the guard never touches storage.
type Input struct {
	Feedback       string
	Now            time.Time
	Fee            int64
	InspectionDate *time.Time
	Documents      []model.ApplicationDocument
	Report         *model.InspectionReport
	Certificate    *Certificate
}

// Outcome is the resolved target of a transition for one application
type Outcome struct {
	To         model.ApplicationStatus
	EventID    string
	AuditLabel string
}

// Definition is one row of the transition table
type Definition struct {
	Name        Transition
	From        []model.ApplicationStatus
	Roles       []model.Role
	OwnerOnly   bool
	MinFeedback int
	FeedbackKey string // field name surfaced in rejections
	Outcome     Outcome

	// Resolve overrides Outcome for kinds that end elsewhere
	Resolve func(app *model.Application) Outcome
	Guard   func(app *model.Application, in Input) *GuardRejection
	Mutate  func(app *model.Application, actor Actor, in Input)
}

var (
	officerRoles  = []model.Role{model.RoleDTDO, model.RoleDistrictOfficer}
	approverRoles = []model.Role{model.RoleDTDO, model.RoleDistrictOfficer, model.RoleStateOfficer}
	ownerRoles    = []model.Role{model.RolePropertyOwner}
	daRoles       = []model.Role{model.RoleDealingAssistant}
	systemRoles   = []model.Role{model.RoleSystem}
)

var table = map[Transition]*Definition{
	TransitionSubmit: {
		From:      []model.ApplicationStatus{model.StatusDraft},
		Roles:     ownerRoles,
		OwnerOnly: true,
		Outcome:   Outcome{To: model.StatusSubmitted, EventID: EventApplicationSubmitted},
		Guard:     guardSubmittable,
		Mutate:    mutateSubmit,
	},
	TransitionSubmitLegacy: {
		From:      []model.ApplicationStatus{model.StatusDraft},
		Roles:     ownerRoles,
		OwnerOnly: true,
		Outcome:   Outcome{To: model.StatusLegacyRCReview, EventID: EventLegacySubmitted},
		Guard:     guardLegacySubmittable,
		Mutate:    mutateSubmit,
	},
	TransitionResubmit: {
		From:      []model.ApplicationStatus{model.StatusSentBackForCorrections, model.StatusRevertedToApplicant},
		Roles:     ownerRoles,
		OwnerOnly: true,
		Outcome:   Outcome{To: model.StatusSubmitted, EventID: EventApplicationResubmitted},
		Guard:     guardRooms,
		Mutate: func(app *model.Application, _ Actor, in Input) {
			app.CorrectionSubmissionCount++
			if in.Fee > 0 {
				app.TotalFee = in.Fee
			}
		},
	},
	TransitionStartScrutiny: {
		From:    []model.ApplicationStatus{model.StatusSubmitted},
		Roles:   daRoles,
		Outcome: Outcome{To: model.StatusUnderScrutiny, EventID: EventScrutinyStarted},
		Mutate:  stampReview,
	},
	TransitionSendBack: {
		From:        []model.ApplicationStatus{model.StatusUnderScrutiny},
		Roles:       daRoles,
		MinFeedback: 15,
		FeedbackKey: "remarks",
		Outcome:     Outcome{To: model.StatusSentBackForCorrections, EventID: EventSentBack},
		Mutate:      stampReview,
	},
	TransitionForwardToDTDO: {
		From:    []model.ApplicationStatus{model.StatusUnderScrutiny, model.StatusRevertedByDTDO},
		Roles:   daRoles,
		Outcome: Outcome{To: model.StatusForwardedToDTDO, EventID: EventForwardedToDTDO},
		Guard:   guardDocumentsDecided,
		Mutate:  stampReview,
	},
	TransitionStartDTDOReview: {
		From:    []model.ApplicationStatus{model.StatusForwardedToDTDO},
		Roles:   officerRoles,
		Outcome: Outcome{To: model.StatusDTDOReview, EventID: EventDTDOReviewStarted},
		Mutate:  stampReview,
	},
	TransitionDTDORevert: {
		From:        []model.ApplicationStatus{model.StatusDTDOReview},
		Roles:       officerRoles,
		MinFeedback: 10,
		FeedbackKey: "remarks",
		Outcome:     Outcome{To: model.StatusRevertedByDTDO, EventID: EventDTDORevert},
		Mutate:      stampReview,
	},
	TransitionRevertToApplicant: {
		From:        []model.ApplicationStatus{model.StatusDTDOReview, model.StatusLegacyRCReview},
		Roles:       officerRoles,
		MinFeedback: 10,
		FeedbackKey: "remarks",
		Outcome:     Outcome{To: model.StatusRevertedToApplicant, EventID: EventRevertToApplicant},
		Mutate:      stampReview,
	},
	TransitionScheduleInspection: {
		From:    []model.ApplicationStatus{model.StatusDTDOReview},
		Roles:   officerRoles,
		Outcome: Outcome{To: model.StatusInspectionScheduled, EventID: EventInspectionScheduled},
		Guard:   guardInspectionDate,
		Mutate:  stampReview,
	},
	TransitionSubmitInspectionReport: {
		From:    []model.ApplicationStatus{model.StatusInspectionScheduled, model.StatusObjectionRaised},
		Roles:   daRoles,
		Outcome: Outcome{To: model.StatusInspectionUnderReview, EventID: EventInspectionReport},
		Guard:   guardReportPresent,
		Mutate:  stampReview,
	},
	TransitionApproveInspection: {
		From:    []model.ApplicationStatus{model.StatusInspectionUnderReview},
		Roles:   officerRoles,
		Outcome: Outcome{To: model.StatusVerifiedForPayment, EventID: EventVerifiedForPayment},
		Resolve: func(app *model.Application) Outcome {
			if app.Kind == model.KindCancelCertificate {
				return Outcome{To: model.StatusApproved, EventID: EventCertificateCancelled}
			}
			return Outcome{To: model.StatusVerifiedForPayment, EventID: EventVerifiedForPayment}
		},
		Guard:  guardInspectionPassed,
		Mutate: stampReview,
	},
	TransitionRaiseObjections: {
		From:        []model.ApplicationStatus{model.StatusInspectionUnderReview},
		Roles:       officerRoles,
		MinFeedback: 10,
		FeedbackKey: "reason",
		Outcome:     Outcome{To: model.StatusObjectionRaised, EventID: EventObjection},
		Mutate:      stampReview,
	},
	TransitionApproveLegacy: {
		From:    []model.ApplicationStatus{model.StatusLegacyRCReview},
		Roles:   approverRoles,
		Outcome: Outcome{To: model.StatusApproved, EventID: EventLegacyApproved},
		Guard:   guardLegacySubmittable,
		Mutate: func(app *model.Application, actor Actor, in Input) {
			stampReview(app, actor, in)
			number := app.Legacy.RCNumber
			app.CertificateNumber = &number
			app.CertificateIssuedAt = app.Legacy.IssuedAt
			app.CertificateExpiresAt = app.Legacy.ExpiresAt
		},
	},
	TransitionReject: {
		From: []model.ApplicationStatus{
			model.StatusUnderScrutiny, model.StatusDTDOReview, model.StatusInspectionUnderReview,
			model.StatusObjectionRaised, model.StatusLegacyRCReview,
		},
		Roles:       approverRoles,
		MinFeedback: 10,
		FeedbackKey: "reason",
		Outcome:     Outcome{To: model.StatusRejected, EventID: EventRejected},
		Mutate: func(app *model.Application, actor Actor, in Input) {
			stampReview(app, actor, in)
			app.RejectionReason = trimmed(in.Feedback)
		},
	},
	TransitionMarkPaymentPending: {
		From:    []model.ApplicationStatus{model.StatusVerifiedForPayment},
		Roles:   systemRoles,
		Outcome: Outcome{To: model.StatusPaymentPending, EventID: EventPaymentInitiated},
	},
	TransitionConfirmPayment: {
		From:    []model.ApplicationStatus{model.StatusVerifiedForPayment, model.StatusPaymentPending},
		Roles:   systemRoles,
		Outcome: Outcome{To: model.StatusApproved, EventID: EventPaymentConfirmed, AuditLabel: model.ActionPaymentConfirmed},
		Guard: func(_ *model.Application, in Input) *GuardRejection {
			if in.Certificate == nil || in.Certificate.Number == "" {
				return reject(CodeCertificateMissing, "certificate", "certificate details are required to confirm payment")
			}
			return nil
		},
		Mutate: func(app *model.Application, _ Actor, in Input) {
			number := in.Certificate.Number
			issued := in.Certificate.IssuedAt
			expires := in.Certificate.ExpiresAt
			app.CertificateNumber = &number
			app.CertificateIssuedAt = &issued
			app.CertificateExpiresAt = &expires
		},
	},
}

func init() {
	for name, def := range table {
		def.Name = name
	}
}

// Lookup returns the definition of a transition
func Lookup(name Transition) (*Definition, bool) {
	def, ok := table[name]
	return def, ok
}

// Transitions lists every known transition name
func Transitions() []Transition {
	names := make([]Transition, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

// Target resolves where the transition leads for this application
func (d *Definition) Target(app *model.Application) Outcome {
	out := d.Outcome
	if d.Resolve != nil {
		out = d.Resolve(app)
	}
	if out.AuditLabel == "" {
		out.AuditLabel = string(d.Name)
	}
	return out
}

// stampReview writes the reviewer fields matching the actor's role
func stampReview(app *model.Application, actor Actor, in Input) {
	now := in.Now
	id := actor.ID
	remarks := trimmed(in.Feedback)
	switch actor.Role {
	case model.RoleDealingAssistant:
		app.DAID = &id
		app.DAReviewedAt = &now
		if remarks != "" {
			app.DARemarks = remarks
		}
	case model.RoleDTDO:
		app.DTDOID = &id
		app.DTDOReviewedAt = &now
		if remarks != "" {
			app.DTDORemarks = remarks
		}
	case model.RoleDistrictOfficer:
		app.DistrictOfficerID = &id
		app.DistrictOfficerReviewedAt = &now
		if remarks != "" {
			app.DistrictOfficerRemarks = remarks
		}
	case model.RoleStateOfficer:
		app.StateOfficerID = &id
		app.StateOfficerReviewedAt = &now
		if remarks != "" {
			app.StateOfficerRemarks = remarks
		}
	}
}

func mutateSubmit(app *model.Application, _ Actor, in Input) {
	now := in.Now
	app.SubmittedAt = &now
	app.TotalFee = in.Fee
}
