package workflow

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ikkim/homestay-backend/internal/app/model"
)

// Result is an accepted transition: the mutated copy of the application and the
// audit rows and event the engine must persist
type Result struct {
	Definition  *Definition
	Previous    model.ApplicationStatus
	Application model.Application
	Outcome     Outcome
	Actions     []model.ApplicationAction
}

// Attempt evaluates a transition without side effects. The input application is
// not modified.
func Attempt(app *model.Application, actor Actor, name Transition, in Input) (*Result, error) {
	def, ok := Lookup(name)
	if !ok {
		return nil, reject(CodeUnknownTransition, "transition", "unknown transition %q", name)
	}
	if rej := Check(def, app, actor, in); rej != nil {
		return nil, rej
	}

	next := *app
	if def.Mutate != nil {
		def.Mutate(&next, actor, in)
	}
	out := def.Target(app)
	next.Status = out.To
	next.Version++
	next.RecomputeTotalRooms()

	actions := []model.ApplicationAction{{
		ApplicationID:  app.ID,
		ActorID:        actor.AuditID(),
		ActorRole:      actor.Role,
		Action:         out.AuditLabel,
		PreviousStatus: app.Status,
		NewStatus:      out.To,
		Feedback:       trimmed(in.Feedback),
		CreatedAt:      in.Now,
	}}
	if def.Name == TransitionConfirmPayment {
		actions = append(actions, model.ApplicationAction{
			ApplicationID:  app.ID,
			ActorID:        actor.AuditID(),
			ActorRole:      actor.Role,
			Action:         model.ActionCertificateIssued,
			PreviousStatus: out.To,
			NewStatus:      out.To,
			Feedback:       "Certificate " + in.Certificate.Number,
			CreatedAt:      in.Now,
		})
	}

	return &Result{
		Definition:  def,
		Previous:    app.Status,
		Application: next,
		Outcome:     out,
		Actions:     actions,
	}, nil
}

// Check runs the source, role, scope, feedback and transition-specific guards in that order
func Check(def *Definition, app *model.Application, actor Actor, in Input) *GuardRejection {
	if !containsStatus(def.From, app.Status) {
		return reject(CodeInvalidSourceStatus, "status",
			"%s is not allowed while the application is %s", def.Name, app.Status)
	}
	if !containsRole(def.Roles, actor.Role) {
		return reject(CodeRoleNotPermitted, "role", "role %s may not perform %s", actor.Role, def.Name)
	}
	if def.OwnerOnly && actor.ID != app.OwnerID {
		return reject(CodeNotOwner, "owner_id", "only the applicant may perform %s", def.Name)
	}
	if actor.Role.DistrictScoped() && !DistrictMatches(actor.District, app.District) {
		return reject(CodeDistrictMismatch, "district",
			"application belongs to %s, outside your district %s", app.District, actor.District)
	}
	if def.MinFeedback > 0 {
		if n := utf8.RuneCountInString(trimmed(in.Feedback)); n < def.MinFeedback {
			return reject(CodeFeedbackTooShort, def.FeedbackKey,
				"%s must be at least %d characters (got %d)", def.FeedbackKey, def.MinFeedback, n)
		}
	}
	if def.Guard != nil {
		if rej := def.Guard(app, in); rej != nil {
			return rej
		}
	}
	return nil
}

func guardRooms(app *model.Application, _ Input) *GuardRejection {
	if app.SingleBedRooms < 0 || app.DoubleBedRooms < 0 || app.FamilySuites < 0 {
		return reject(CodeRoomsInvalid, "rooms", "room counts cannot be negative")
	}
	if app.SingleBedRooms+app.DoubleBedRooms+app.FamilySuites < 1 {
		return reject(CodeRoomsInvalid, "rooms", "at least one room is required")
	}
	return nil
}

func guardSubmittable(app *model.Application, in Input) *GuardRejection {
	if app.LegacyInfo() != nil {
		return reject(CodeLegacyDetails, "legacy", "applications carrying an existing certificate must use submit_legacy")
	}
	if app.Kind != model.KindCancelCertificate {
		if rej := guardRooms(app, in); rej != nil {
			return rej
		}
	}
	if strings.TrimSpace(app.PropertyName) == "" {
		return reject(CodeIncompleteDraft, "property_name", "property name is required")
	}
	if !app.Category.Valid() {
		return reject(CodeIncompleteDraft, "category", "category must be diamond, gold or silver")
	}
	if !app.LocationType.Valid() {
		return reject(CodeIncompleteDraft, "location_type", "location type must be mc, tcp or gp")
	}
	if app.Kind.RequiresPayment() && in.Fee <= 0 {
		return reject(CodeFeeNotCalculated, "total_fee", "fee not calculated")
	}
	return nil
}

func guardLegacySubmittable(app *model.Application, in Input) *GuardRejection {
	legacy := app.LegacyInfo()
	if legacy == nil {
		return reject(CodeLegacyDetails, "legacy.rc_number", "existing registration certificate number is required")
	}
	if legacy.ExpiresAt == nil {
		return reject(CodeLegacyDetails, "legacy.expires_at", "existing certificate expiry date is required")
	}
	return guardRooms(app, in)
}

// guardDocumentsDecided requires every document to carry a verification decision
func guardDocumentsDecided(app *model.Application, in Input) *GuardRejection {
	if len(in.Documents) == 0 && app.Kind == model.KindNewRegistration {
		return reject(CodeDocumentsMissing, "documents", "at least one document must be uploaded before forwarding")
	}
	var pending []string
	for _, doc := range in.Documents {
		if doc.VerificationStatus == model.DocumentPending {
			pending = append(pending, doc.DocumentType)
		}
	}
	if len(pending) > 0 {
		return &GuardRejection{
			Code:    CodeDocumentsPending,
			Field:   "documents",
			Message: "documents still pending verification: " + strings.Join(pending, ", "),
			Details: map[string]interface{}{"pending": pending},
		}
	}
	return nil
}

func guardInspectionDate(_ *model.Application, in Input) *GuardRejection {
	if in.InspectionDate == nil {
		return reject(CodeInspectionDate, "inspection_date", "inspection date is required")
	}
	y, m, d := in.Now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, in.Now.Location())
	if in.InspectionDate.Before(today) {
		return reject(CodeInspectionDate, "inspection_date", "inspection date cannot be in the past")
	}
	return nil
}

func guardReportPresent(_ *model.Application, in Input) *GuardRejection {
	if in.Report == nil {
		return reject(CodeReportMissing, "report", "inspection report is required")
	}
	return nil
}

// guardInspectionPassed requires a complete, satisfactory report. Cancellation
// requests only need a report on record.
func guardInspectionPassed(app *model.Application, in Input) *GuardRejection {
	if in.Report == nil {
		return reject(CodeReportMissing, "report", "no inspection report has been submitted")
	}
	if app.Kind == model.KindCancelCertificate {
		return nil
	}
	if missing := MissingChecklistItems(in.Report.Checklist); len(missing) > 0 {
		return &GuardRejection{
			Code:    CodeChecklistIncomplete,
			Field:   "checklist",
			Message: "mandatory checklist items not satisfied: " + strings.Join(missing, ", "),
			Details: map[string]interface{}{"missing": missing},
		}
	}
	switch {
	case !in.Report.RoomCountVerified:
		return reject(CodeChecklistIncomplete, "room_count_verified", "room count has not been verified")
	case !in.Report.CategoryVerified:
		return reject(CodeChecklistIncomplete, "category_verified", "category has not been verified")
	case !in.Report.OverallSatisfactory:
		return reject(CodeChecklistIncomplete, "overall_satisfactory", "inspection was not marked satisfactory")
	}
	return nil
}

func containsStatus(list []model.ApplicationStatus, s model.ApplicationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRole(list []model.Role, r model.Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
