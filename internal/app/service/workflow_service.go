package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	"github.com/ikkim/homestay-backend/internal/lock"
	"github.com/ikkim/homestay-backend/internal/metrics"
	"github.com/ikkim/homestay-backend/internal/notifier"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

// ReportInput is the inspection report submitted with submit_inspection_report
type ReportInput struct {
	Checklist           model.Checklist `json:"checklist"`
	RoomCountVerified   bool            `json:"room_count_verified"`
	CategoryVerified    bool            `json:"category_verified"`
	OverallSatisfactory bool            `json:"overall_satisfactory"`
	Findings            string          `json:"findings"`
	Recommendation      string          `json:"recommendation"`
}

// TransitionRequest asks the engine to move one application
type TransitionRequest struct {
	ApplicationID  uint
	Actor          workflow.Actor
	Transition     workflow.Transition
	Feedback       string
	InspectionDate *time.Time
	Instructions   string
	Report         *ReportInput

	// also runs inside the transition's database transaction after the status write
	also func(tx *gorm.DB, app *model.Application) error
	// extra is merged into the outbox event variables
	extra map[string]string
}

// OutboxPoker is told when new outbox rows were committed
type OutboxPoker interface {
	Poke()
}

type WorkflowService interface {
	Attempt(ctx context.Context, req TransitionRequest) (*model.Application, error)
	History(actor workflow.Actor, applicationID uint) ([]model.ApplicationAction, error)
}

type workflowService struct {
	db     *gorm.DB
	repos  Repositories
	fees   *FeeSchedule
	locker lock.Locker
	outbox OutboxPoker
	now    func() time.Time
}

func NewWorkflowService(db *gorm.DB, repos Repositories, fees *FeeSchedule, locker lock.Locker, outbox OutboxPoker, now func() time.Time) WorkflowService {
	if locker == nil {
		locker = lock.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &workflowService{db: db, repos: repos, fees: fees, locker: locker, outbox: outbox, now: now}
}

// Attempt validates and applies one transition. The status write, audit rows,
// side records and the outbox event commit together or not at all.
func (s *workflowService) Attempt(ctx context.Context, req TransitionRequest) (*model.Application, error) {
	logger.Info("Attempting workflow transition", map[string]interface{}{
		"application_id": req.ApplicationID,
		"transition":     req.Transition,
		"actor_id":       req.Actor.ID,
		"actor_role":     req.Actor.Role,
	})

	release, err := s.locker.Acquire(ctx, lock.ApplicationKey(req.ApplicationID))
	switch {
	case err == nil:
		defer release()
	case errors.Is(err, lock.ErrLockBusy):
		metrics.TransitionsTotal.WithLabelValues(string(req.Transition), "conflict").Inc()
		return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		logger.Warn("Transition lock unavailable, relying on conditional update", map[string]interface{}{
			"application_id": req.ApplicationID,
			"error":          err.Error(),
		})
	}

	var updated model.Application
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.repos.Applications.WithTx(tx).FindByIDForUpdate(req.ApplicationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return err
		}

		now := s.now()
		in, err := s.loadFacts(tx, app, req, now)
		if err != nil {
			return err
		}

		result, err := workflow.Attempt(app, req.Actor, req.Transition, in)
		if err != nil {
			return err
		}

		next := result.Application
		rows, err := s.repos.Applications.WithTx(tx).ApplyTransition(&next, result.Previous)
		if err != nil {
			return fmt.Errorf("failed to write transition: %w", err)
		}
		if rows == 0 {
			return ErrConcurrencyConflict
		}

		if err := s.repos.Actions.WithTx(tx).Append(result.Actions...); err != nil {
			return fmt.Errorf("failed to append audit rows: %w", err)
		}

		if err := s.applySideEffects(tx, &next, req, in, now); err != nil {
			return err
		}

		if req.also != nil {
			if err := req.also(tx, &next); err != nil {
				return err
			}
		}

		event, err := s.buildEvent(tx, &next, result.Outcome, req, in)
		if err != nil {
			return err
		}
		if err := s.repos.Notifications.WithTx(tx).Create(event); err != nil {
			return fmt.Errorf("failed to write outbox event: %w", err)
		}

		updated = next
		return nil
	})

	if err != nil {
		var rejection *workflow.GuardRejection
		switch {
		case errors.As(err, &rejection):
			metrics.TransitionsTotal.WithLabelValues(string(req.Transition), "rejected").Inc()
			logger.Warn("Workflow transition rejected", map[string]interface{}{
				"application_id": req.ApplicationID,
				"transition":     req.Transition,
				"code":           rejection.Code,
				"field":          rejection.Field,
			})
		case errors.Is(err, ErrConcurrencyConflict):
			metrics.TransitionsTotal.WithLabelValues(string(req.Transition), "conflict").Inc()
			logger.Warn("Workflow transition lost a concurrent update", map[string]interface{}{
				"application_id": req.ApplicationID,
				"transition":     req.Transition,
			})
		case errors.Is(err, ErrApplicationNotFound):
			metrics.TransitionsTotal.WithLabelValues(string(req.Transition), "not_found").Inc()
		default:
			metrics.TransitionsTotal.WithLabelValues(string(req.Transition), "error").Inc()
			logger.Error("Workflow transition failed", err, map[string]interface{}{
				"application_id": req.ApplicationID,
				"transition":     req.Transition,
			})
		}
		return nil, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(req.Transition), "accepted").Inc()
	logger.Info("Workflow transition applied", map[string]interface{}{
		"application_id": updated.ID,
		"transition":     req.Transition,
		"status":         updated.Status,
		"version":        updated.Version,
	})

	if s.outbox != nil {
		s.outbox.Poke()
	}
	return &updated, nil
}

// loadFacts gathers what the guard of this transition needs to read
func (s *workflowService) loadFacts(tx *gorm.DB, app *model.Application, req TransitionRequest, now time.Time) (workflow.Input, error) {
	in := workflow.Input{
		Feedback:       req.Feedback,
		Now:            now,
		InspectionDate: req.InspectionDate,
	}

	switch req.Transition {
	case workflow.TransitionSubmit, workflow.TransitionResubmit:
		if quote, err := s.fees.Quote(app); err == nil {
			in.Fee = quote.Total
		}

	case workflow.TransitionForwardToDTDO:
		docs, err := s.repos.Documents.WithTx(tx).FindByApplication(app.ID)
		if err != nil {
			return in, fmt.Errorf("failed to load documents: %w", err)
		}
		in.Documents = docs

	case workflow.TransitionSubmitInspectionReport:
		if req.Report != nil {
			in.Report = &model.InspectionReport{
				ApplicationID:       app.ID,
				SubmittedBy:         req.Actor.ID,
				Checklist:           req.Report.Checklist,
				RoomCountVerified:   req.Report.RoomCountVerified,
				CategoryVerified:    req.Report.CategoryVerified,
				OverallSatisfactory: req.Report.OverallSatisfactory,
				Findings:            strings.TrimSpace(req.Report.Findings),
				Recommendation:      strings.TrimSpace(req.Report.Recommendation),
				CreatedAt:           now,
			}
		}

	case workflow.TransitionApproveInspection, workflow.TransitionRaiseObjections:
		report, err := s.repos.Inspections.WithTx(tx).FindLatestReport(app.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return in, fmt.Errorf("failed to load inspection report: %w", err)
		}
		in.Report = report

	case workflow.TransitionConfirmPayment:
		in.Certificate = issueCertificate(app, now, s.fees.defaultValidity)
	}
	return in, nil
}

// applySideEffects writes the records a transition owns besides the application row
func (s *workflowService) applySideEffects(tx *gorm.DB, app *model.Application, req TransitionRequest, in workflow.Input, now time.Time) error {
	inspections := s.repos.Inspections.WithTx(tx)

	switch req.Transition {
	case workflow.TransitionResubmit:
		if err := s.repos.Documents.WithTx(tx).ResetVerification(app.ID,
			[]model.DocumentVerificationStatus{model.DocumentNeedsCorrection}); err != nil {
			return fmt.Errorf("failed to reset document verification: %w", err)
		}

	case workflow.TransitionScheduleInspection:
		order := &model.InspectionOrder{
			ApplicationID: app.ID,
			ScheduledBy:   req.Actor.ID,
			ScheduledDate: *in.InspectionDate,
			Instructions:  strings.TrimSpace(req.Instructions),
			Status:        model.InspectionOrderScheduled,
		}
		if err := inspections.CreateOrder(order); err != nil {
			return fmt.Errorf("failed to create inspection order: %w", err)
		}

	case workflow.TransitionSubmitInspectionReport:
		order, err := inspections.FindOpenOrder(app.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.NewRejection(workflow.CodeReportMissing, "inspection_order",
					"no open inspection order for this application", nil)
			}
			return fmt.Errorf("failed to load inspection order: %w", err)
		}
		in.Report.InspectionOrderID = order.ID
		if err := inspections.CreateReport(in.Report); err != nil {
			return fmt.Errorf("failed to save inspection report: %w", err)
		}
		if err := inspections.UpdateOrderStatus(order.ID, model.InspectionOrderCompleted); err != nil {
			return fmt.Errorf("failed to complete inspection order: %w", err)
		}

	case workflow.TransitionRaiseObjections:
		// the inspected order is closed and a fresh one awaits the re-inspection report
		if in.Report != nil {
			if err := inspections.UpdateOrderStatus(in.Report.InspectionOrderID, model.InspectionOrderReopened); err != nil {
				return fmt.Errorf("failed to reopen inspection order: %w", err)
			}
		}
		date := now
		if req.InspectionDate != nil {
			date = *req.InspectionDate
		}
		order := &model.InspectionOrder{
			ApplicationID: app.ID,
			ScheduledBy:   req.Actor.ID,
			ScheduledDate: date,
			Instructions:  strings.TrimSpace(req.Feedback),
			Status:        model.InspectionOrderScheduled,
		}
		if err := inspections.CreateOrder(order); err != nil {
			return fmt.Errorf("failed to create re-inspection order: %w", err)
		}

	case workflow.TransitionApproveInspection:
		if app.Kind == model.KindCancelCertificate {
			return s.cancelParent(tx, app, req.Actor, now)
		}

	case workflow.TransitionConfirmPayment:
		if app.ParentApplicationID != nil {
			return s.supersedeParent(tx, app, now)
		}
	}
	return nil
}

func (s *workflowService) cancelParent(tx *gorm.DB, child *model.Application, actor workflow.Actor, now time.Time) error {
	if child.ParentApplicationID == nil {
		return nil
	}
	parentID := *child.ParentApplicationID
	if err := s.repos.Applications.WithTx(tx).UpdateColumns(parentID, map[string]interface{}{
		"certificate_cancelled_at": now,
		"certificate_cancelled_by": actor.AuditID(),
		"superseded_by_id":         child.ID,
		"superseded_at":            now,
	}); err != nil {
		return fmt.Errorf("failed to cancel parent certificate: %w", err)
	}
	return s.repos.Actions.WithTx(tx).Append(model.ApplicationAction{
		ApplicationID:  parentID,
		ActorID:        actor.AuditID(),
		ActorRole:      actor.Role,
		Action:         model.ActionCertificateCancelled,
		PreviousStatus: model.StatusApproved,
		NewStatus:      model.StatusApproved,
		Feedback:       "Cancelled by " + child.ApplicationNumber,
		CreatedAt:      now,
	})
}

func (s *workflowService) supersedeParent(tx *gorm.DB, child *model.Application, now time.Time) error {
	if err := s.repos.Applications.WithTx(tx).UpdateColumns(*child.ParentApplicationID, map[string]interface{}{
		"superseded_by_id": child.ID,
		"superseded_at":    now,
	}); err != nil {
		return fmt.Errorf("failed to supersede parent application: %w", err)
	}
	return nil
}

// buildEvent renders the outbox row for an accepted transition
func (s *workflowService) buildEvent(tx *gorm.DB, app *model.Application, out workflow.Outcome, req TransitionRequest, in workflow.Input) (*model.NotificationEvent, error) {
	vars := map[string]string{
		"application_number": app.ApplicationNumber,
		"property_name":      app.PropertyName,
		"owner_name":         app.OwnerName,
		"district":           app.District,
		"status":             string(app.Status),
		"transition":         string(req.Transition),
		"correction_count":   strconv.Itoa(app.CorrectionSubmissionCount),
		"total_fee":          strconv.FormatInt(app.TotalFee, 10),
	}
	if reason := strings.TrimSpace(req.Feedback); reason != "" {
		vars["reason"] = reason
	}
	if in.InspectionDate != nil {
		vars["inspection_date"] = in.InspectionDate.Format("02-01-2006")
	}
	if app.CertificateNumber != nil {
		vars["certificate_number"] = *app.CertificateNumber
	}
	if app.CertificateExpiresAt != nil {
		vars["certificate_expiry"] = app.CertificateExpiresAt.Format("02-01-2006")
	}
	if app.ServiceRequest.ParentCertificateNumber != "" {
		vars["parent_certificate_number"] = app.ServiceRequest.ParentCertificateNumber
	}
	if app.Legacy.RCNumber != "" {
		vars["rc_number"] = app.Legacy.RCNumber
	}
	for k, v := range req.extra {
		vars[k] = v
	}

	text, audience := notifier.Render(out.EventID, vars)
	recipient, err := s.recipient(tx, app, audience)
	if err != nil {
		return nil, err
	}

	return &model.NotificationEvent{
		MessageKey:    uuid.NewString(),
		EventID:       out.EventID,
		ApplicationID: app.ID,
		Recipient:     recipient,
		Message:       text,
		Extra:         model.JSONMap(vars),
		Status:        model.NotificationPending,
	}, nil
}

// recipient resolves the delivery address for an audience. Officer audiences fan
// out to every officer of the role in the application's district.
func (s *workflowService) recipient(tx *gorm.DB, app *model.Application, audience notifier.Audience) (string, error) {
	var role model.Role
	switch audience {
	case notifier.AudienceOwner, notifier.AudienceUnknown:
		if app.OwnerMobile != "" {
			return app.OwnerMobile, nil
		}
		return app.OwnerEmail, nil
	case notifier.AudienceDA:
		role = model.RoleDealingAssistant
	case notifier.AudienceDTDO:
		role = model.RoleDTDO
	}

	officers, err := s.repos.Users.WithTx(tx).FindOfficers(role, "")
	if err != nil {
		return "", fmt.Errorf("failed to resolve notification recipients: %w", err)
	}
	var emails []string
	for _, u := range officers {
		if workflow.DistrictMatches(u.District, app.District) {
			emails = append(emails, u.Email)
		}
	}
	if len(emails) == 0 {
		return fmt.Sprintf("%s@%s", role, app.District), nil
	}
	return strings.Join(emails, ","), nil
}

func (s *workflowService) History(actor workflow.Actor, applicationID uint) ([]model.ApplicationAction, error) {
	app, err := s.repos.Applications.FindByID(applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if err := authorizeView(actor, app); err != nil {
		return nil, err
	}
	return s.repos.Actions.FindByApplication(applicationID)
}
