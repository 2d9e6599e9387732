package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	"github.com/ikkim/homestay-backend/internal/cache"
	"github.com/ikkim/homestay-backend/internal/db"
	"github.com/ikkim/homestay-backend/internal/lock"
	"github.com/ikkim/homestay-backend/pkg/payment/himkosh"
)

var testNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

const testPortal = "https://portal.test"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type countingPoker struct {
	n atomic.Int32
}

func (p *countingPoker) Poke() { p.n.Add(1) }

type fixture struct {
	t     *testing.T
	db    *gorm.DB
	repos Repositories
	clock *testClock
	poker *countingPoker

	gateway  *himkosh.Client
	verifyMu sync.Mutex
	verifyFn func(appRefNo string) string

	engine   WorkflowService
	apps     ApplicationService
	docs     DocumentService
	requests ServiceRequestService
	settings SettingsService
	payments PaymentService

	owner    workflow.Actor
	stranger workflow.Actor
	da       workflow.Actor
	dtdo     workflow.Actor
	state    workflow.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	require.NoError(t, db.SeedReferenceData(testDB))

	f := &fixture{
		t:     t,
		db:    testDB,
		repos: NewRepositories(testDB),
		clock: &testClock{t: testNow},
		poker: &countingPoker{},
	}

	f.owner = f.user("Asha Devi", "asha@example.org", model.RolePropertyOwner, "")
	f.stranger = f.user("Ravi Kumar", "ravi@example.org", model.RolePropertyOwner, "")
	f.da = f.user("DA Shimla", "da.shimla@hp.gov.in", model.RoleDealingAssistant, "Shimla")
	f.dtdo = f.user("DTDO Shimla", "dtdo.shimla@hp.gov.in", model.RoleDTDO, "Shimla Division")
	f.state = f.user("State Officer", "state@hp.gov.in", model.RoleStateOfficer, "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		plain, err := f.gateway.Codec().Decrypt(r.PostForm.Get("encdata"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		parsed, err := himkosh.ParsePayload(plain)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.verifyMu.Lock()
		fn := f.verifyFn
		f.verifyMu.Unlock()
		if fn == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(fn(parsed.AppRefNo)))
	}))
	t.Cleanup(server.Close)

	f.gateway, err = himkosh.NewClient(himkosh.Config{
		PaymentURL:   "https://gateway.test/pay",
		VerifyURL:    server.URL,
		MerchantCode: "HIMKOSH230",
		ServiceCode:  "TSM",
		DeptID:       "230",
		ReturnURL:    "https://portal.test/api/v1/payment/callback",
		Key:          []byte("0123456789abcdef"),
	})
	require.NoError(t, err)

	fees := NewFeeSchedule(1)
	f.engine = NewWorkflowService(testDB, f.repos, fees, lock.NewLocal(), f.poker, f.clock.Now)
	f.apps = NewApplicationService(testDB, f.repos, fees, 6)
	f.docs = NewDocumentService(f.repos, nil, f.clock.Now)
	f.requests = NewServiceRequestService(testDB, f.repos, 6, 90, f.clock.Now)
	f.settings = NewSettingsService(f.repos.Settings, cache.NewTTL[string](time.Minute, f.clock.Now), PaymentMode{TestAmount: 1}, f.clock.Now)
	f.payments = NewPaymentService(testDB, f.repos, f.gateway, f.engine, NewDDODirectory(f.repos.DDOs), f.settings,
		PaymentOptions{Head1: "1452-00-800-01", FallbackDDO: "SML00-532"}, f.clock.Now)
	return f
}

func (f *fixture) user(name, email string, role model.Role, district string) workflow.Actor {
	u := &model.User{Name: name, Email: email, Role: role, District: district, Mobile: "98160" + fmt.Sprint(len(email))}
	require.NoError(f.t, f.repos.Users.Create(u))
	return workflow.Actor{ID: u.ID, Role: role, District: district}
}

func defaultDraft() DraftInput {
	return DraftInput{
		OwnerName:      "Asha Devi",
		OwnerMobile:    "9816000001",
		OwnerEmail:     "asha@example.org",
		PropertyName:   "Deodar View Homestay",
		Address:        "Ward 3, Mashobra",
		District:       "Shimla",
		SubDivision:    "Shimla Rural",
		Pincode:        "171007",
		Category:       model.CategoryGold,
		LocationType:   model.LocationGP,
		ValidityYears:  1,
		SingleBedRooms: 2,
		DoubleBedRooms: 1,
	}
}

func (f *fixture) draft(mutate func(*DraftInput)) *model.Application {
	input := defaultDraft()
	if mutate != nil {
		mutate(&input)
	}
	app, err := f.apps.CreateDraft(f.owner, input)
	require.NoError(f.t, err)
	return app
}

func (f *fixture) attempt(id uint, actor workflow.Actor, name workflow.Transition, mutate func(*TransitionRequest)) (*model.Application, error) {
	req := TransitionRequest{ApplicationID: id, Actor: actor, Transition: name}
	if mutate != nil {
		mutate(&req)
	}
	return f.engine.Attempt(context.Background(), req)
}

func (f *fixture) must(id uint, actor workflow.Actor, name workflow.Transition, mutate func(*TransitionRequest)) *model.Application {
	f.t.Helper()
	app, err := f.attempt(id, actor, name, mutate)
	require.NoError(f.t, err, "transition %s", name)
	return app
}

func withFeedback(text string) func(*TransitionRequest) {
	return func(r *TransitionRequest) { r.Feedback = text }
}

func fullReport() func(*TransitionRequest) {
	return func(r *TransitionRequest) {
		r.Report = &ReportInput{
			Checklist:           workflow.FullChecklist(),
			RoomCountVerified:   true,
			CategoryVerified:    true,
			OverallSatisfactory: true,
			Findings:            "Premises match the application",
		}
	}
}

func inspectionIn(days int) func(*TransitionRequest) {
	return func(r *TransitionRequest) {
		date := testNow.AddDate(0, 0, days)
		r.InspectionDate = &date
		r.Instructions = "Verify fire safety equipment"
	}
}

// toInspectionReview drives a fresh application to inspection_under_review
func (f *fixture) toInspectionReview(app *model.Application) *model.Application {
	f.t.Helper()
	if app.Kind == model.KindNewRegistration {
		_, err := f.docs.Register(f.owner, app.ID, DocumentInput{
			DocumentType: "ownership_proof",
			FileName:     "deed.pdf",
			FileURL:      "https://files.test/deed.pdf",
		})
		require.NoError(f.t, err)
	}
	f.must(app.ID, f.owner, workflow.TransitionSubmit, nil)
	f.must(app.ID, f.da, workflow.TransitionStartScrutiny, nil)

	docs, err := f.docs.List(f.da, app.ID)
	require.NoError(f.t, err)
	for _, d := range docs {
		_, err := f.docs.Verify(f.da, d.ID, model.DocumentVerified, "")
		require.NoError(f.t, err)
	}

	f.must(app.ID, f.da, workflow.TransitionForwardToDTDO, nil)
	f.must(app.ID, f.dtdo, workflow.TransitionStartDTDOReview, nil)
	f.must(app.ID, f.dtdo, workflow.TransitionScheduleInspection, inspectionIn(3))
	return f.must(app.ID, f.da, workflow.TransitionSubmitInspectionReport, fullReport())
}

// readyForPayment places an application directly in verified_for_payment
func (f *fixture) readyForPayment(fee int64) *model.Application {
	f.t.Helper()
	app := f.draft(nil)
	require.NoError(f.t, f.repos.Applications.UpdateColumns(app.ID, map[string]interface{}{
		"status":    model.StatusVerifiedForPayment,
		"total_fee": fee,
	}))
	return f.reload(app.ID)
}

// approvedParent places an approved registration with a certificate expiring at expires
func (f *fixture) approvedParent(single, double, suites int, expires time.Time) *model.Application {
	f.t.Helper()
	app := f.draft(func(in *DraftInput) {
		in.SingleBedRooms, in.DoubleBedRooms, in.FamilySuites = single, double, suites
	})
	require.NoError(f.t, f.repos.Applications.UpdateColumns(app.ID, map[string]interface{}{
		"status":                 model.StatusApproved,
		"certificate_number":     fmt.Sprintf("HSC/SML/2025/%06d", app.ID),
		"certificate_issued_at":  expires.AddDate(-1, 0, 0),
		"certificate_expires_at": expires,
	}))
	return f.reload(app.ID)
}

func (f *fixture) reload(id uint) *model.Application {
	f.t.Helper()
	app, err := f.repos.Applications.FindByID(id)
	require.NoError(f.t, err)
	return app
}

func (f *fixture) actions(id uint) []model.ApplicationAction {
	f.t.Helper()
	actions, err := f.repos.Actions.FindByApplication(id)
	require.NoError(f.t, err)
	return actions
}

func (f *fixture) events(id uint) []model.NotificationEvent {
	f.t.Helper()
	events, err := f.repos.Notifications.FindByApplication(id)
	require.NoError(f.t, err)
	return events
}

// callback builds the encrypted payload the gateway posts back
func (f *fixture) callback(appRefNo, statusCd string, amount int64) string {
	status := "Success"
	if statusCd != "1" {
		status = "Failed"
	}
	body := fmt.Sprintf("EchTxnId=GRN%s|BankCIN=CIN0001|Bank=SBI|BankName=State Bank of India|Status=%s|StatusCd=%s|AppRefNo=%s|TotalAmount=%d|PaymentDate=18-10-2026 10:05:00",
		appRefNo[len(appRefNo)-6:], status, statusCd, appRefNo, amount)
	return f.gateway.Codec().EncodePayload(body)
}

func (f *fixture) setVerifyResponse(fn func(appRefNo string) string) {
	f.verifyMu.Lock()
	defer f.verifyMu.Unlock()
	f.verifyFn = fn
}
