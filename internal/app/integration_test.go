package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikkim/homestay-backend/config"
	"github.com/ikkim/homestay-backend/internal/app/controller"
	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/service"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	"github.com/ikkim/homestay-backend/internal/cache"
	"github.com/ikkim/homestay-backend/internal/db"
	"github.com/ikkim/homestay-backend/internal/lock"
	"github.com/ikkim/homestay-backend/internal/middleware"
	"github.com/ikkim/homestay-backend/internal/notifier"
	"github.com/ikkim/homestay-backend/internal/router"
	"github.com/ikkim/homestay-backend/internal/storage"
	"github.com/ikkim/homestay-backend/pkg/payment/himkosh"
	"github.com/ikkim/homestay-backend/pkg/util"
)

const (
	testSecret = "test-secret"
	testPortal = "https://portal.test"
)

type captureNotifier struct {
	mu       sync.Mutex
	messages []notifier.Message
}

func (n *captureNotifier) Notify(_ context.Context, msg notifier.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

type TestServer struct {
	Router     *gin.Engine
	Repos      service.Repositories
	Gateway    *himkosh.Client
	Dispatcher *notifier.Dispatcher
	Sink       *captureNotifier
	Tokens     map[model.Role]string
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	require.NoError(t, db.SeedReferenceData(testDB))

	repos := service.NewRepositories(testDB)
	ts := &TestServer{Repos: repos, Sink: &captureNotifier{}, Tokens: map[model.Role]string{}}

	staff := []model.User{
		{Name: "Asha Devi", Email: "asha@example.org", Mobile: "9816000001", Role: model.RolePropertyOwner},
		{Name: "DA Shimla", Email: "da.shimla@hp.gov.in", Role: model.RoleDealingAssistant, District: "Shimla"},
		{Name: "DTDO Shimla", Email: "dtdo.shimla@hp.gov.in", Role: model.RoleDTDO, District: "Shimla Division"},
		{Name: "State Officer", Email: "state@hp.gov.in", Role: model.RoleStateOfficer},
	}
	for i := range staff {
		u := &staff[i]
		require.NoError(t, repos.Users.Create(u))
		token, err := util.GenerateToken(u.ID, u.Email, string(u.Role), u.District, testSecret, time.Hour)
		require.NoError(t, err)
		ts.Tokens[u.Role] = token
	}

	ts.Gateway, err = himkosh.NewClient(himkosh.Config{
		PaymentURL:   "https://gateway.test/pay",
		MerchantCode: "HIMKOSH230",
		ServiceCode:  "TSM",
		DeptID:       "230",
		ReturnURL:    testPortal + "/api/v1/payment/callback",
		Key:          []byte("0123456789abcdef"),
	})
	require.NoError(t, err)

	ts.Dispatcher = notifier.NewDispatcher(repos.Notifications, ts.Sink, 100, time.Hour)

	now := time.Now
	fees := service.NewFeeSchedule(1)
	settings := service.NewSettingsService(repos.Settings, cache.NewTTL[string](time.Minute, now), service.PaymentMode{TestAmount: 1}, now)
	engine := service.NewWorkflowService(testDB, repos, fees, lock.NewLocal(), ts.Dispatcher, now)
	payments := service.NewPaymentService(testDB, repos, ts.Gateway, engine, service.NewDDODirectory(repos.DDOs), settings,
		service.PaymentOptions{Head1: "1452-00-800-01", FallbackDDO: "SML00-532"}, now)

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode, PortalBaseURL: testPortal},
		CORS:   config.CORSConfig{AllowedOrigins: []string{testPortal}},
	}
	r := router.NewRouter(
		controller.NewApplicationController(
			service.NewApplicationService(testDB, repos, fees, 6),
			engine,
			service.NewServiceRequestService(testDB, repos, 6, 90, now),
		),
		controller.NewTransitionController(engine),
		controller.NewDocumentController(service.NewDocumentService(repos, storage.Disabled{}, now)),
		controller.NewPaymentController(payments, cfg.Server.PortalBaseURL, cfg.CORS.AllowedOrigins),
		controller.NewSettingsController(settings),
		middleware.NewAuthMiddleware(testSecret),
		cfg,
	)
	ts.Router = r.Setup()
	return ts
}

func (ts *TestServer) request(t *testing.T, method, path string, role model.Role, body interface{}) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+ts.Tokens[role])
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	require.Less(t, w.Code, 300, "%s %s: %s", method, path, w.Body.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (ts *TestServer) transition(t *testing.T, id uint, name workflow.Transition, role model.Role, body interface{}) string {
	t.Helper()
	out := ts.request(t, http.MethodPost, fmt.Sprintf("/api/v1/applications/%d/transitions/%s", id, name), role, body)
	return out["application"].(map[string]interface{})["status"].(string)
}

func TestIntegration_HealthAndMetrics(t *testing.T) {
	ts := setupIntegrationTest(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "homestay_http_request_duration_seconds")
}

func TestIntegration_RoleGates(t *testing.T) {
	ts := setupIntegrationTest(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   model.Role
		status int
	}{
		{"officer cannot create drafts", http.MethodPost, "/api/v1/applications", model.RoleDealingAssistant, http.StatusForbidden},
		{"owner cannot verify documents", http.MethodPut, "/api/v1/documents/1/verification", model.RolePropertyOwner, http.StatusForbidden},
		{"dtdo cannot change settings", http.MethodPut, "/api/v1/admin/settings/payment_test_mode", model.RoleDTDO, http.StatusForbidden},
		{"dtdo cannot start payments", http.MethodPost, "/api/v1/payment/initiate", model.RoleDTDO, http.StatusForbidden},
		{"anonymous list", http.MethodGet, "/api/v1/applications", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			req.Header.Set("Content-Type", "application/json")
			if tt.role != "" {
				req.Header.Set("Authorization", "Bearer "+ts.Tokens[tt.role])
			}
			w := httptest.NewRecorder()
			ts.Router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestIntegration_RegistrationToCertificate(t *testing.T) {
	ts := setupIntegrationTest(t)
	owner, da, dtdo := model.RolePropertyOwner, model.RoleDealingAssistant, model.RoleDTDO

	created := ts.request(t, http.MethodPost, "/api/v1/applications", owner, service.DraftInput{
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
	})
	id := uint(created["application"].(map[string]interface{})["id"].(float64))

	doc := ts.request(t, http.MethodPost, fmt.Sprintf("/api/v1/applications/%d/documents", id), owner, service.DocumentInput{
		DocumentType: "ownership_proof",
		FileName:     "deed.pdf",
		FileURL:      "https://files.test/deed.pdf",
	})
	docID := uint(doc["document"].(map[string]interface{})["id"].(float64))

	assert.Equal(t, "submitted", ts.transition(t, id, workflow.TransitionSubmit, owner, nil))
	assert.Equal(t, "under_scrutiny", ts.transition(t, id, workflow.TransitionStartScrutiny, da, nil))
	ts.request(t, http.MethodPut, fmt.Sprintf("/api/v1/documents/%d/verification", docID), da,
		controller.VerifyDocumentRequest{Status: model.DocumentVerified})
	assert.Equal(t, "forwarded_to_dtdo", ts.transition(t, id, workflow.TransitionForwardToDTDO, da, nil))
	assert.Equal(t, "dtdo_review", ts.transition(t, id, workflow.TransitionStartDTDOReview, dtdo, nil))

	inspection := time.Now().Add(72 * time.Hour)
	assert.Equal(t, "inspection_scheduled", ts.transition(t, id, workflow.TransitionScheduleInspection, dtdo,
		controller.TransitionRequest{InspectionDate: &inspection, Instructions: "Check fire safety"}))
	assert.Equal(t, "inspection_under_review", ts.transition(t, id, workflow.TransitionSubmitInspectionReport, da,
		controller.TransitionRequest{Report: &service.ReportInput{
			Checklist:           workflow.FullChecklist(),
			RoomCountVerified:   true,
			CategoryVerified:    true,
			OverallSatisfactory: true,
			Findings:            "Premises match the application",
		}}))
	assert.Equal(t, "verified_for_payment", ts.transition(t, id, workflow.TransitionApproveInspection, dtdo, nil))

	initiated := ts.request(t, http.MethodPost, "/api/v1/payment/initiate", owner, controller.InitiatePaymentRequest{ApplicationID: id})
	assert.Equal(t, float64(6000), initiated["totalAmount"])
	appRefNo := initiated["appRefNo"].(string)

	form := url.Values{"encdata": {ts.Gateway.Codec().EncodePayload(fmt.Sprintf(
		"EchTxnId=GRN000777|BankCIN=CIN0001|Bank=SBI|BankName=State Bank of India|Status=Success|StatusCd=1|AppRefNo=%s|TotalAmount=6000|PaymentDate=18-10-2026 10:05:00",
		appRefNo))}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Payment successful")

	final := ts.request(t, http.MethodGet, fmt.Sprintf("/api/v1/applications/%d", id), owner, nil)["application"].(map[string]interface{})
	assert.Equal(t, "approved", final["status"])
	assert.Regexp(t, `^HSC/SML/\d{4}/\d{6}$`, final["certificate_number"])

	history := ts.request(t, http.MethodGet, fmt.Sprintf("/api/v1/applications/%d/actions", id), model.RoleStateOfficer, nil)
	assert.Equal(t, float64(10), history["count"])

	sent := ts.Dispatcher.DispatchOnce(context.Background())
	assert.Equal(t, 9, sent)

	ts.Sink.mu.Lock()
	defer ts.Sink.mu.Unlock()
	recipients := map[string]string{}
	for _, msg := range ts.Sink.messages {
		recipients[msg.EventID] = msg.Recipient
	}
	assert.Equal(t, "da.shimla@hp.gov.in", recipients[workflow.EventApplicationSubmitted])
	assert.Equal(t, "dtdo.shimla@hp.gov.in", recipients[workflow.EventForwardedToDTDO])
	assert.Equal(t, "9816000001", recipients[workflow.EventPaymentConfirmed])
}
