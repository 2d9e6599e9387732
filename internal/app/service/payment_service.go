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
	"github.com/ikkim/homestay-backend/internal/metrics"
	"github.com/ikkim/homestay-backend/pkg/logger"
	"github.com/ikkim/homestay-backend/pkg/payment/himkosh"
)

// Notes recorded on attempts closed outside the normal callback flow
const (
	NoteCancelledByApplicant = "cancelled by applicant"
	NotePaidAfterReset       = "paid after reset"
)

var errAlreadySettled = errors.New("transaction already settled")

// Gateway is the part of the treasury client the settlement flow uses
type Gateway interface {
	GetConfig() himkosh.Config
	BuildRequest(req himkosh.ChallanRequest) (*himkosh.EncodedRequest, error)
	ParseCallback(encData string) (*himkosh.CallbackResponse, error)
	Verify(ctx context.Context, appRefNo string) (*himkosh.CallbackResponse, error)
}

// PaymentOptions are the budget heads and DDO fallback sent with every challan
type PaymentOptions struct {
	Head1       string
	Head2       string
	Amount2     int64
	FallbackDDO string
}

// InitiateResult is what the browser needs to post the challan to the gateway
type InitiateResult struct {
	PaymentURL       string `json:"paymentUrl"`
	MerchantCode     string `json:"merchantCode"`
	EncryptedPayload string `json:"encryptedPayload"`
	Checksum         string `json:"checksum"`
	AppRefNo         string `json:"appRefNo"`
	TotalAmount      int64  `json:"totalAmount"`
	ActualFee        int64  `json:"actualFee"`
	TestMode         bool   `json:"testMode"`
}

// CallbackResult describes what a callback did, for the status page
type CallbackResult struct {
	Transaction      *model.PaymentTransaction
	Application      *model.Application
	Success          bool
	AlreadyProcessed bool
	// LatePayment marks money received for an attempt that had been reset
	LatePayment      bool
	RedirectURL      string
}

// VerifyResult is the outcome of a double verification query
type VerifyResult struct {
	Verified    bool                      `json:"verified"`
	StatusCode  string                    `json:"status_code"`
	Raw         string                    `json:"raw"`
	Transaction *model.PaymentTransaction `json:"transaction"`
}

type PaymentService interface {
	Initiate(ctx context.Context, actor workflow.Actor, applicationID uint, portalBaseURL string) (*InitiateResult, error)
	HandleCallback(ctx context.Context, encData string) (*CallbackResult, error)
	Verify(ctx context.Context, actor workflow.Actor, appRefNo string) (*VerifyResult, error)
	Reset(ctx context.Context, actor workflow.Actor, applicationID uint) (*model.PaymentTransaction, error)
	Reconcile(ctx context.Context, olderThan time.Duration, limit int) (int, error)
	Transactions(actor workflow.Actor, applicationID uint) ([]model.PaymentTransaction, error)
}

type paymentService struct {
	db       *gorm.DB
	repos    Repositories
	gateway  Gateway
	workflow WorkflowService
	ddo      DDODirectory
	settings SettingsService
	options  PaymentOptions
	now      func() time.Time
}

func NewPaymentService(
	db *gorm.DB,
	repos Repositories,
	gateway Gateway,
	workflowService WorkflowService,
	ddo DDODirectory,
	settings SettingsService,
	options PaymentOptions,
	now func() time.Time,
) PaymentService {
	if now == nil {
		now = time.Now
	}
	return &paymentService{
		db:       db,
		repos:    repos,
		gateway:  gateway,
		workflow: workflowService,
		ddo:      ddo,
		settings: settings,
		options:  options,
		now:      now,
	}
}

// Initiate builds and persists a settlement attempt. The transaction row is
// committed before the encrypted payload is returned.
func (s *paymentService) Initiate(ctx context.Context, actor workflow.Actor, applicationID uint, portalBaseURL string) (*InitiateResult, error) {
	app, err := s.findApplication(applicationID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RolePropertyOwner || app.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	if app.Status != model.StatusVerifiedForPayment && app.Status != model.StatusPaymentPending {
		logger.Warn("Payment requested for application not ready for payment", map[string]interface{}{
			"application_id": app.ID,
			"status":         app.Status,
		})
		return nil, ErrNotReadyForPayment
	}
	if app.TotalFee <= 0 {
		return nil, ErrFeeNotCalculated
	}

	ddoCode, fallback, err := s.resolveDDO(app)
	if err != nil {
		return nil, err
	}

	now := s.now()
	mode := s.settings.PaymentMode()
	challan := s.challan(app, ddoCode, now, mode)

	encoded, err := s.gateway.BuildRequest(challan)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}

	txn := &model.PaymentTransaction{
		ApplicationID:     app.ID,
		AppRefNo:          challan.AppRefNo,
		DeptRefNo:         challan.DeptRefNo,
		DDOCode:           ddoCode,
		DDOFallback:       fallback,
		TenderBy:          challan.TenderBy,
		TotalAmount:       challan.TotalAmount,
		Head1:             challan.Head1,
		Amount1:           challan.Amount1,
		Head2:             challan.Head2,
		Amount2:           challan.Amount2,
		ActualFee:         app.TotalFee,
		TestMode:          mode.TestMode,
		RequestChecksum:   encoded.Checksum,
		PortalBaseURL:     strings.TrimRight(strings.TrimSpace(portalBaseURL), "/"),
		TransactionStatus: model.TransactionInitiated,
		CreatedAt:         now,
	}

	createTxn := func(tx *gorm.DB, _ *model.Application) error {
		payments := s.repos.Payments.WithTx(tx)
		if _, err := payments.FindActiveByApplication(app.ID); err == nil {
			return ErrPaymentInProgress
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return payments.Create(txn)
	}

	if app.Status == model.StatusVerifiedForPayment {
		_, err = s.workflow.Attempt(ctx, TransitionRequest{
			ApplicationID: app.ID,
			Actor:         workflow.SystemActor(),
			Transition:    workflow.TransitionMarkPaymentPending,
			also:          createTxn,
			extra:         map[string]string{"amount": strconv.FormatInt(txn.TotalAmount, 10)},
		})
	} else {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, err := s.repos.Applications.WithTx(tx).FindByIDForUpdate(app.ID)
			if err != nil {
				return err
			}
			if locked.Status != model.StatusPaymentPending {
				return ErrNotReadyForPayment
			}
			return createTxn(tx, locked)
		})
	}
	if err != nil {
		if errors.Is(err, ErrPaymentInProgress) {
			logger.Warn("Payment already in progress", map[string]interface{}{
				"application_id": app.ID,
			})
		}
		return nil, err
	}

	modeLabel := "live"
	if mode.TestMode {
		modeLabel = "test"
	}
	metrics.PaymentInitiationsTotal.WithLabelValues(modeLabel).Inc()

	logger.Info("Payment initiated", map[string]interface{}{
		"application_id": app.ID,
		"app_ref_no":     txn.AppRefNo,
		"total_amount":   txn.TotalAmount,
		"actual_fee":     txn.ActualFee,
		"test_mode":      mode.TestMode,
		"ddo_code":       ddoCode,
	})

	return &InitiateResult{
		PaymentURL:       encoded.PaymentURL,
		MerchantCode:     encoded.MerchantCode,
		EncryptedPayload: encoded.EncData,
		Checksum:         encoded.Checksum,
		AppRefNo:         txn.AppRefNo,
		TotalAmount:      txn.TotalAmount,
		ActualFee:        txn.ActualFee,
		TestMode:         mode.TestMode,
	}, nil
}

func (s *paymentService) resolveDDO(app *model.Application) (string, bool, error) {
	code, ok, err := s.ddo.Resolve(app.District, app.SubDivision)
	if err != nil {
		logger.Error("Failed to resolve DDO code", err, map[string]interface{}{
			"application_id": app.ID,
			"district":       app.District,
		})
	}
	if err == nil && ok {
		return code, false, nil
	}
	if s.options.FallbackDDO == "" {
		return "", false, fmt.Errorf("%w: no DDO mapping for district %q", ErrGatewayUnavailable, app.District)
	}
	logger.Warn("No DDO mapping for district, using fallback", map[string]interface{}{
		"application_id": app.ID,
		"district":       app.District,
		"sub_division":   app.SubDivision,
		"fallback_ddo":   s.options.FallbackDDO,
	})
	return s.options.FallbackDDO, true, nil
}

// challan lays out the amounts sent to the gateway. Test mode replaces them with
// the token amount on a single head.
func (s *paymentService) challan(app *model.Application, ddoCode string, now time.Time, mode PaymentMode) himkosh.ChallanRequest {
	req := himkosh.ChallanRequest{
		DeptRefNo:  strings.ReplaceAll(app.ApplicationNumber, "/", "-"),
		TenderBy:   app.OwnerName,
		AppRefNo:   newAppRefNo(now),
		Head1:      s.options.Head1,
		Amount1:    app.TotalFee,
		DDO:        ddoCode,
		PeriodFrom: now,
		PeriodTo:   periodEnd(app, now),
	}
	if s.options.Head2 != "" && s.options.Amount2 > 0 {
		req.Head2 = s.options.Head2
		req.Amount2 = s.options.Amount2
	}
	if mode.TestMode {
		req.Amount1 = mode.TestAmount
		req.Head2 = ""
		req.Amount2 = 0
	}
	req.TotalAmount = req.Amount1 + req.Amount2
	return req
}

func periodEnd(app *model.Application, now time.Time) time.Time {
	if inherited := app.ServiceRequest.InheritedExpiry; inherited != nil &&
		(app.Kind == model.KindAddRooms || app.Kind == model.KindDeleteRooms) && inherited.After(now) {
		return *inherited
	}
	years := app.ValidityYears
	if years <= 0 {
		years = 1
	}
	return now.AddDate(years, 0, -1)
}

// newAppRefNo is unique per attempt: HPT + timestamp + random suffix
func newAppRefNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "HPT" + now.Format("060102150405") + suffix
}

// HandleCallback verifies a gateway payload and settles the matching attempt.
// Replays of an already settled attempt are acknowledged without side effects.
func (s *paymentService) HandleCallback(ctx context.Context, encData string) (*CallbackResult, error) {
	resp, err := s.gateway.ParseCallback(encData)
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("integrity_failure").Inc()
		logger.Warn("Rejected payment callback payload", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	txn, err := s.repos.Payments.FindByAppRefNo(resp.AppRefNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.CallbacksTotal.WithLabelValues("unknown_reference").Inc()
			logger.Warn("Payment callback for unknown reference", map[string]interface{}{
				"app_ref_no": resp.AppRefNo,
				"status_cd":  resp.StatusCode,
			})
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if txn.TransactionStatus == model.TransactionFailed && txn.GRN == "" && resp.Success() {
		late, err := s.recordLatePayment(ctx, txn.AppRefNo, resp)
		if err != nil {
			return nil, err
		}
		metrics.CallbacksTotal.WithLabelValues("late_payment").Inc()
		logger.Warn("Payment received for an abandoned attempt", map[string]interface{}{
			"app_ref_no":     late.AppRefNo,
			"application_id": late.ApplicationID,
			"grn":            late.GRN,
			"amount":         resp.Amount,
		})
		return s.callbackResult(late, true)
	}

	if txn.TransactionStatus.IsTerminal() {
		metrics.CallbacksTotal.WithLabelValues("replay").Inc()
		logger.Info("Payment callback replay acknowledged", map[string]interface{}{
			"app_ref_no": txn.AppRefNo,
			"status":     txn.TransactionStatus,
		})
		return s.callbackResult(txn, true)
	}

	settled, err := s.settle(ctx, txn.AppRefNo, resp)
	if err != nil {
		if errors.Is(err, errAlreadySettled) {
			metrics.CallbacksTotal.WithLabelValues("replay").Inc()
			fresh, findErr := s.repos.Payments.FindByAppRefNo(txn.AppRefNo)
			if findErr != nil {
				return nil, findErr
			}
			return s.callbackResult(fresh, true)
		}
		return nil, err
	}

	outcome := "failed"
	if settled.TransactionStatus == model.TransactionSuccess {
		outcome = "success"
	}
	metrics.CallbacksTotal.WithLabelValues(outcome).Inc()
	return s.callbackResult(settled, false)
}

// settle records a gateway result on an initiated attempt and, for a successful
// payment, issues the certificate in the same database transaction.
func (s *paymentService) settle(ctx context.Context, appRefNo string, resp *himkosh.CallbackResponse) (*model.PaymentTransaction, error) {
	now := s.now()
	var settled model.PaymentTransaction

	record := func(tx *gorm.DB, _ *model.Application) error {
		payments := s.repos.Payments.WithTx(tx)
		txn, err := payments.FindByAppRefNoForUpdate(appRefNo)
		if err != nil {
			return err
		}
		if txn.TransactionStatus.IsTerminal() {
			return errAlreadySettled
		}

		applyResponse(txn, resp, now)
		txn.TransactionStatus = model.TransactionFailed
		if resp.Success() {
			txn.TransactionStatus = model.TransactionSuccess
		}
		if resp.Success() && resp.Amount != txn.TotalAmount {
			txn.TransactionStatus = model.TransactionFailed
			txn.Note = fmt.Sprintf("amount mismatch: sent %d, gateway reported %d", txn.TotalAmount, resp.Amount)
		}
		if err := payments.Save(txn); err != nil {
			return fmt.Errorf("failed to save payment transaction: %w", err)
		}
		settled = *txn
		return nil
	}

	paid := resp.Success() && resp.Amount != 0
	var app *model.Application
	if paid {
		latest, err := s.repos.Payments.FindByAppRefNo(appRefNo)
		if err != nil {
			return nil, err
		}
		paid = resp.Amount == latest.TotalAmount
		app, err = s.findApplication(latest.ApplicationID)
		if err != nil {
			return nil, err
		}
	}

	if paid && (app.Status == model.StatusVerifiedForPayment || app.Status == model.StatusPaymentPending) {
		_, err := s.workflow.Attempt(ctx, TransitionRequest{
			ApplicationID: app.ID,
			Actor:         workflow.SystemActor(),
			Transition:    workflow.TransitionConfirmPayment,
			Feedback:      "Payment received, GRN " + resp.EchTxnID,
			also:          record,
		})
		var rejection *workflow.GuardRejection
		switch {
		case err == nil:
			logger.Info("Payment settled and certificate issued", map[string]interface{}{
				"application_id": app.ID,
				"app_ref_no":     appRefNo,
				"grn":            resp.EchTxnID,
			})
			return &settled, nil
		case errors.As(err, &rejection) && rejection.Code == workflow.CodeInvalidSourceStatus:
			// approved by a concurrent settlement; record this attempt only
		default:
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return record(tx, nil)
	}); err != nil {
		return nil, err
	}

	logger.Info("Payment attempt settled", map[string]interface{}{
		"app_ref_no": appRefNo,
		"status":     settled.TransactionStatus,
		"status_cd":  resp.StatusCode,
		"note":       settled.Note,
	})
	return &settled, nil
}

// applyResponse copies the gateway's answer onto an attempt without touching its status
func applyResponse(txn *model.PaymentTransaction, resp *himkosh.CallbackResponse, at time.Time) {
	txn.StatusCode = resp.StatusCode
	txn.StatusMessage = resp.Status
	txn.GRN = resp.EchTxnID
	txn.BankCIN = resp.BankCIN
	txn.BankName = firstNonEmpty(resp.BankName, resp.Bank)
	txn.PaymentDate = resp.PaymentDate
	txn.ResponseChecksum = resp.Checksum
	txn.ResponseRaw = resp.PlainText
	txn.RespondedAt = &at
}

// recordLatePayment keeps the bank's receipt for an attempt that was reset
// before the gateway confirmed it. The attempt stays failed and the application
// is left alone; support refunds or settles it by hand.
func (s *paymentService) recordLatePayment(ctx context.Context, appRefNo string, resp *himkosh.CallbackResponse) (*model.PaymentTransaction, error) {
	now := s.now()
	var saved model.PaymentTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.repos.Payments.WithTx(tx)
		txn, err := payments.FindByAppRefNoForUpdate(appRefNo)
		if err != nil {
			return err
		}
		if txn.TransactionStatus == model.TransactionFailed && txn.GRN == "" {
			applyResponse(txn, resp, now)
			txn.Note = NotePaidAfterReset
			if err := payments.Save(txn); err != nil {
				return fmt.Errorf("failed to save late payment: %w", err)
			}
		}
		saved = *txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *paymentService) callbackResult(txn *model.PaymentTransaction, replay bool) (*CallbackResult, error) {
	app, err := s.findApplication(txn.ApplicationID)
	if err != nil && !errors.Is(err, ErrApplicationNotFound) {
		return nil, err
	}
	success := txn.TransactionStatus == model.TransactionSuccess || txn.TransactionStatus == model.TransactionVerified
	return &CallbackResult{
		Transaction:      txn,
		Application:      app,
		Success:          success,
		AlreadyProcessed: replay,
		LatePayment:      txn.Note == NotePaidAfterReset,
		RedirectURL:      s.redirectURL(txn, success),
	}, nil
}

// redirectURL points back to the portal that started the payment. Without a
// captured base url there is nowhere safe to send the browser.
func (s *paymentService) redirectURL(txn *model.PaymentTransaction, success bool) string {
	if txn.PortalBaseURL == "" {
		logger.Error("Cannot build payment redirect", ErrPortalBaseURLMissing, map[string]interface{}{
			"app_ref_no":     txn.AppRefNo,
			"application_id": txn.ApplicationID,
		})
		return ""
	}
	status := "failed"
	if success {
		status = "success"
	}
	return fmt.Sprintf("%s/applications/%d/payment?status=%s", txn.PortalBaseURL, txn.ApplicationID, status)
}

// Verify asks the gateway for the authoritative result of an attempt and records
// it. It never moves the application.
func (s *paymentService) Verify(ctx context.Context, actor workflow.Actor, appRefNo string) (*VerifyResult, error) {
	txn, err := s.repos.Payments.FindByAppRefNo(appRefNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	app, err := s.findApplication(txn.ApplicationID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, app); err != nil {
		return nil, err
	}

	resp, err := s.query(ctx, txn)
	if err != nil {
		return nil, err
	}

	saved, verified, err := s.recordVerification(ctx, txn, resp)
	if err != nil {
		return nil, err
	}

	outcome := "unverified"
	if verified {
		outcome = "verified"
	}
	metrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	logger.Info("Payment double verification recorded", map[string]interface{}{
		"app_ref_no":  appRefNo,
		"verified":    verified,
		"status_cd":   resp.StatusCode,
		"actor_id":    actor.ID,
		"actor_role":  actor.Role,
		"txn_status":  saved.TransactionStatus,
		"grn":         resp.EchTxnID,
		"application": app.ApplicationNumber,
	})

	return &VerifyResult{
		Verified:    verified,
		StatusCode:  resp.StatusCode,
		Raw:         resp.PlainText,
		Transaction: saved,
	}, nil
}

// recordVerification stores the gateway's authoritative answer on the attempt.
// Only the transaction row changes; the application is never touched.
func (s *paymentService) recordVerification(ctx context.Context, txn *model.PaymentTransaction, resp *himkosh.CallbackResponse) (*model.PaymentTransaction, bool, error) {
	verified := resp.Success() && resp.AppRefNo == txn.AppRefNo && resp.Amount == txn.TotalAmount
	now := s.now()
	var saved model.PaymentTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.repos.Payments.WithTx(tx)
		locked, err := payments.FindByAppRefNoForUpdate(txn.AppRefNo)
		if err != nil {
			return err
		}
		locked.IsDoubleVerified = verified
		locked.VerifiedStatusCode = resp.StatusCode
		locked.VerificationRaw = resp.PlainText
		locked.VerifiedAt = &now
		if verified && locked.TransactionStatus == model.TransactionSuccess {
			locked.TransactionStatus = model.TransactionVerified
		}
		if err := payments.Save(locked); err != nil {
			return err
		}
		saved = *locked
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to record verification: %w", err)
	}
	return &saved, verified, nil
}

func (s *paymentService) query(ctx context.Context, txn *model.PaymentTransaction) (*himkosh.CallbackResponse, error) {
	resp, err := s.gateway.Verify(ctx, txn.AppRefNo)
	if err != nil {
		if errors.Is(err, himkosh.ErrPayloadIntegrity) {
			metrics.VerificationsTotal.WithLabelValues("integrity_failure").Inc()
			return nil, err
		}
		metrics.VerificationsTotal.WithLabelValues("unavailable").Inc()
		logger.Error("Double verification request failed", err, map[string]interface{}{
			"app_ref_no": txn.AppRefNo,
		})
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return resp, nil
}

// Reset abandons the latest attempt when it is stuck in initiated, so the owner
// can start again
func (s *paymentService) Reset(ctx context.Context, actor workflow.Actor, applicationID uint) (*model.PaymentTransaction, error) {
	app, err := s.findApplication(applicationID)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role == model.RolePropertyOwner && actor.ID == app.OwnerID:
	case actor.Role.DistrictScoped() && workflow.DistrictMatches(actor.District, app.District):
	default:
		return nil, ErrForbidden
	}

	latest, err := s.repos.Payments.FindLatestByApplication(applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if latest.TransactionStatus.IsTerminal() {
		return nil, ErrNoActiveTransaction
	}

	var reset model.PaymentTransaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.repos.Payments.WithTx(tx)
		txn, err := payments.FindByAppRefNoForUpdate(latest.AppRefNo)
		if err != nil {
			return err
		}
		if txn.TransactionStatus.IsTerminal() {
			return ErrNoActiveTransaction
		}
		txn.TransactionStatus = model.TransactionFailed
		txn.Note = NoteCancelledByApplicant
		if err := payments.Save(txn); err != nil {
			return err
		}
		reset = *txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Stuck payment attempt reset", map[string]interface{}{
		"application_id": applicationID,
		"app_ref_no":     reset.AppRefNo,
		"actor_id":       actor.ID,
		"actor_role":     actor.Role,
	})
	return &reset, nil
}

// Reconcile double-verifies attempts stuck in initiated longer than olderThan
// and records the gateway's answer on each. It never settles an attempt or
// moves an application; the callback remains the only settlement path.
// Returns the number of attempts whose verification was recorded.
func (s *paymentService) Reconcile(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	stale, err := s.repos.Payments.FindStaleInitiated(s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load stale payment attempts: %w", err)
	}

	recorded := 0
	for i := range stale {
		if ctx.Err() != nil {
			return recorded, ctx.Err()
		}
		txn := &stale[i]

		resp, err := s.query(ctx, txn)
		if err != nil {
			metrics.ReconcileTotal.WithLabelValues("error").Inc()
			logger.Warn("Reconciliation query failed", map[string]interface{}{
				"app_ref_no": txn.AppRefNo,
				"error":      err.Error(),
			})
			continue
		}

		saved, verified, err := s.recordVerification(ctx, txn, resp)
		if err != nil {
			metrics.ReconcileTotal.WithLabelValues("error").Inc()
			logger.Error("Failed to record reconciliation result", err, map[string]interface{}{
				"app_ref_no": txn.AppRefNo,
			})
			continue
		}

		outcome := "unverified"
		if verified {
			outcome = "verified"
			logger.Warn("Payment confirmed by gateway but callback never arrived", map[string]interface{}{
				"app_ref_no":     saved.AppRefNo,
				"application_id": saved.ApplicationID,
				"status_cd":      resp.StatusCode,
				"grn":            resp.EchTxnID,
			})
		}
		metrics.ReconcileTotal.WithLabelValues(outcome).Inc()
		recorded++
	}
	return recorded, nil
}

func (s *paymentService) Transactions(actor workflow.Actor, applicationID uint) ([]model.PaymentTransaction, error) {
	app, err := s.findApplication(applicationID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, app); err != nil {
		return nil, err
	}
	return s.repos.Payments.FindByApplication(applicationID)
}

func (s *paymentService) findApplication(id uint) (*model.Application, error) {
	app, err := s.repos.Applications.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
