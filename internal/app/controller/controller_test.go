package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/service"
	"github.com/ikkim/homestay-backend/internal/cache"
	"github.com/ikkim/homestay-backend/internal/db"
	"github.com/ikkim/homestay-backend/internal/lock"
	"github.com/ikkim/homestay-backend/internal/middleware"
	"github.com/ikkim/homestay-backend/internal/storage"
	"github.com/ikkim/homestay-backend/pkg/payment/himkosh"
	"github.com/ikkim/homestay-backend/pkg/util"
)

const (
	testSecret = "test-secret"
	testPortal = "https://portal.test"
)

type noopPoker struct{}

func (noopPoker) Poke() {}

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	repos   service.Repositories
	gateway *himkosh.Client

	owner    string
	stranger string
	da       string
	dtdo     string
	state    string
}

func setupControllerTest(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	require.NoError(t, db.SeedReferenceData(testDB))

	s := &testServer{t: t, repos: service.NewRepositories(testDB)}
	s.owner = s.token("Asha Devi", "asha@example.org", model.RolePropertyOwner, "")
	s.stranger = s.token("Ravi Kumar", "ravi@example.org", model.RolePropertyOwner, "")
	s.da = s.token("DA Shimla", "da.shimla@hp.gov.in", model.RoleDealingAssistant, "Shimla")
	s.dtdo = s.token("DTDO Shimla", "dtdo.shimla@hp.gov.in", model.RoleDTDO, "Shimla")
	s.state = s.token("State Officer", "state@hp.gov.in", model.RoleStateOfficer, "")

	s.gateway, err = himkosh.NewClient(himkosh.Config{
		PaymentURL:   "https://gateway.test/pay",
		MerchantCode: "HIMKOSH230",
		ServiceCode:  "TSM",
		DeptID:       "230",
		ReturnURL:    testPortal + "/api/v1/payment/callback",
		Key:          []byte("0123456789abcdef"),
	})
	require.NoError(t, err)

	now := time.Now
	fees := service.NewFeeSchedule(1)
	settings := service.NewSettingsService(s.repos.Settings, cache.NewTTL[string](time.Minute, now), service.PaymentMode{TestAmount: 1}, now)
	engine := service.NewWorkflowService(testDB, s.repos, fees, lock.NewLocal(), noopPoker{}, now)
	apps := service.NewApplicationService(testDB, s.repos, fees, 6)
	docs := service.NewDocumentService(s.repos, storage.Disabled{}, now)
	requests := service.NewServiceRequestService(testDB, s.repos, 6, 90, now)
	payments := service.NewPaymentService(testDB, s.repos, s.gateway, engine, service.NewDDODirectory(s.repos.DDOs), settings,
		service.PaymentOptions{Head1: "1452-00-800-01", FallbackDDO: "SML00-532"}, now)

	applicationController := NewApplicationController(apps, engine, requests)
	transitionController := NewTransitionController(engine)
	documentController := NewDocumentController(docs)
	paymentController := NewPaymentController(payments, testPortal, []string{"https://other-portal.test"})
	settingsController := NewSettingsController(settings)
	auth := middleware.NewAuthMiddleware(testSecret)

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	api := router.Group("/api/v1")

	applications := api.Group("/applications", auth.Authenticate())
	applications.GET("", applicationController.ListApplications)
	applications.POST("", applicationController.CreateApplication)
	applications.GET("/:id", applicationController.GetApplication)
	applications.PUT("/:id", applicationController.UpdateApplication)
	applications.GET("/:id/fee", applicationController.GetFee)
	applications.GET("/:id/actions", applicationController.GetHistory)
	applications.POST("/:id/transitions/:transition", transitionController.Apply)
	applications.POST("/:id/service-requests", applicationController.CreateServiceRequest)
	applications.GET("/:id/documents", documentController.ListDocuments)
	applications.POST("/:id/documents", documentController.RegisterDocument)
	applications.POST("/:id/documents/upload-url", documentController.RequestUploadURL)
	applications.GET("/:id/payments", paymentController.ListTransactions)
	api.PUT("/documents/:id/verification", auth.Authenticate(), documentController.VerifyDocument)

	api.GET("/payment/callback", paymentController.CallbackHoldingPage)
	api.POST("/payment/callback", paymentController.Callback)
	api.POST("/payment/initiate", auth.Authenticate(), paymentController.InitiatePayment)
	api.POST("/payment/reset/:applicationId", auth.Authenticate(), paymentController.ResetPayment)

	api.GET("/admin/settings", auth.Authenticate(), settingsController.ListSettings)
	api.PUT("/admin/settings/:key", auth.Authenticate(), settingsController.UpdateSetting)

	s.router = router
	return s
}

func (s *testServer) token(name, email string, role model.Role, district string) string {
	u := &model.User{Name: name, Email: email, Role: role, District: district, Mobile: "9816000000"}
	require.NoError(s.t, s.repos.Users.Create(u))
	token, err := util.GenerateToken(u.ID, email, string(role), district, testSecret, time.Hour)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func draftBody() service.DraftInput {
	return service.DraftInput{
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

// createDraft posts a draft as the owner and returns its id
func (s *testServer) createDraft() uint {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/applications", s.owner, draftBody())
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	app := decode(s.t, w)["application"].(map[string]interface{})
	return uint(app["id"].(float64))
}

func appPath(id uint, suffix string) string {
	return fmt.Sprintf("/api/v1/applications/%d%s", id, suffix)
}

func TestApplicationController_DraftLifecycle(t *testing.T) {
	s := setupControllerTest(t)
	id := s.createDraft()

	w := s.do(http.MethodGet, appPath(id, ""), s.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	app := decode(t, w)["application"].(map[string]interface{})
	assert.Equal(t, "draft", app["status"])
	assert.Regexp(t, `^HS/\d{4}/\d{6}$`, app["application_number"])

	update := draftBody()
	update.FamilySuites = 1
	w = s.do(http.MethodPut, appPath(id, ""), s.owner, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(4), decode(t, w)["application"].(map[string]interface{})["total_rooms"])

	w = s.do(http.MethodGet, appPath(id, "/fee"), s.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fee := decode(t, w)["fee"].(map[string]interface{})
	assert.Equal(t, float64(6000), fee["total"])

	w = s.do(http.MethodGet, "/api/v1/applications?status=draft", s.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = s.do(http.MethodGet, "/api/v1/applications?status=bogus", s.owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplicationController_AccessErrors(t *testing.T) {
	s := setupControllerTest(t)
	id := s.createDraft()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"no token", http.MethodGet, appPath(id, ""), "", nil, http.StatusUnauthorized, "AUTH_UNAUTHORIZED"},
		{"stranger", http.MethodGet, appPath(id, ""), s.stranger, nil, http.StatusForbidden, "AUTHZ_FORBIDDEN"},
		{"missing", http.MethodGet, appPath(999, ""), s.owner, nil, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"bad id", http.MethodGet, "/api/v1/applications/abc", s.owner, nil, http.StatusBadRequest, "VALIDATION_INVALID_ID"},
		{"officer cannot create", http.MethodPost, "/api/v1/applications", s.da, draftBody(), http.StatusForbidden, "AUTHZ_FORBIDDEN"},
		{"invalid draft", http.MethodPost, "/api/v1/applications", s.owner, service.DraftInput{}, http.StatusBadRequest, "VALIDATION_INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode(t, w)["error"])
		})
	}
}

func TestTransitionController_GuardRejectionShape(t *testing.T) {
	s := setupControllerTest(t)
	id := s.createDraft()

	w := s.do(http.MethodPost, appPath(id, "/documents"), s.owner, service.DocumentInput{
		DocumentType: "ownership_proof",
		FileName:     "deed.pdf",
		FileURL:      "https://files.test/deed.pdf",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	docID := uint(decode(t, w)["document"].(map[string]interface{})["id"].(float64))

	w = s.do(http.MethodPost, appPath(id, "/transitions/submit"), s.owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "submitted", decode(t, w)["application"].(map[string]interface{})["status"])

	w = s.do(http.MethodPost, appPath(id, "/transitions/start_scrutiny"), s.da, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, appPath(id, "/transitions/forward_to_dtdo"), s.da, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "WORKFLOW_TRANSITION_REJECTED", body["error"])
	assert.Equal(t, "documents", body["field"])
	assert.Equal(t, "documents_pending", body["details"].(map[string]interface{})["code"])

	w = s.do(http.MethodPost, appPath(id, "/transitions/send_back"), s.da, TransitionRequest{Remarks: "Fix it"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body = decode(t, w)
	assert.Equal(t, "remarks", body["field"])
	assert.Equal(t, "feedback_too_short", body["details"].(map[string]interface{})["code"])

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/documents/%d/verification", docID), s.da, VerifyDocumentRequest{Status: model.DocumentVerified})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, appPath(id, "/transitions/forward_to_dtdo"), s.da, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "forwarded_to_dtdo", decode(t, w)["application"].(map[string]interface{})["status"])

	w = s.do(http.MethodGet, appPath(id, "/actions"), s.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["count"])
}

func TestTransitionController_UnknownAndReservedTransitions(t *testing.T) {
	s := setupControllerTest(t)
	id := s.createDraft()

	for _, name := range []string{"teleport", "confirm_payment"} {
		w := s.do(http.MethodPost, appPath(id, "/transitions/"+name), s.state, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, name)
		assert.Equal(t, "WORKFLOW_UNKNOWN_TRANSITION", decode(t, w)["error"])
	}
}

func TestDocumentController_UploadURLWithoutStorage(t *testing.T) {
	s := setupControllerTest(t)
	id := s.createDraft()

	w := s.do(http.MethodPost, appPath(id, "/documents/upload-url"), s.owner, UploadURLRequest{
		FileName:    "deed.pdf",
		ContentType: "application/pdf",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "UPLOAD_DISABLED", decode(t, w)["error"])
}

// readyForPayment moves a draft straight to verified_for_payment with a fee
func (s *testServer) readyForPayment(fee int64) uint {
	id := s.createDraft()
	require.NoError(s.t, s.repos.Applications.UpdateColumns(id, map[string]interface{}{
		"status":    model.StatusVerifiedForPayment,
		"total_fee": fee,
	}))
	return id
}

func (s *testServer) postCallback(encData string) *httptest.ResponseRecorder {
	form := url.Values{"encdata": {encData}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestPaymentController_InitiateAndCallback(t *testing.T) {
	s := setupControllerTest(t)
	id := s.readyForPayment(6000)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/initiate", strings.NewReader(fmt.Sprintf(`{"applicationId":%d}`, id)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.owner)
	req.Header.Set("Origin", "https://evil.test")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	initiated := decode(t, w)
	assert.Equal(t, "https://gateway.test/pay", initiated["paymentUrl"])
	assert.Equal(t, "HIMKOSH230", initiated["merchantCode"])
	assert.NotEmpty(t, initiated["encryptedPayload"])
	assert.NotEmpty(t, initiated["checksum"])
	appRefNo := initiated["appRefNo"].(string)

	w = s.do(http.MethodPost, "/api/v1/payment/initiate", s.owner, InitiatePaymentRequest{ApplicationID: id})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PAYMENT_IN_PROGRESS", decode(t, w)["error"])

	payload := s.gateway.Codec().EncodePayload(fmt.Sprintf(
		"EchTxnId=GRN000123|BankCIN=CIN0001|Bank=SBI|BankName=State Bank of India|Status=Success|StatusCd=1|AppRefNo=%s|TotalAmount=6000|PaymentDate=18-10-2026 10:05:00",
		appRefNo))

	w = s.postCallback(payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Payment successful")
	assert.Contains(t, w.Body.String(), "HSC/SML/")
	// untrusted Origin falls back to the configured portal
	assert.Contains(t, w.Body.String(), fmt.Sprintf("%s/applications/%d/payment?status=success", testPortal, id))

	// replay renders the same outcome without settling twice
	w = s.postCallback(payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Payment successful")

	w = s.do(http.MethodGet, appPath(id, "/payments"), s.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(http.MethodGet, appPath(id, ""), s.owner, nil)
	assert.Equal(t, "approved", decode(t, w)["application"].(map[string]interface{})["status"])
}

func TestPaymentController_CallbackRejectsTamperedPayload(t *testing.T) {
	s := setupControllerTest(t)

	w := s.postCallback("not-a-valid-payload")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Payment response rejected")
	assert.NotContains(t, w.Body.String(), "checksum")

	w = s.postCallback(s.gateway.Codec().EncodePayload("StatusCd=1|AppRefNo=HPT000000000000XXXXXX|TotalAmount=6000.50"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Payment response rejected")

	w = s.postCallback(s.gateway.Codec().EncodePayload("StatusCd=1|AppRefNo=HPT000000000000XXXXXX|TotalAmount=10"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Payment not recognised")

	w = s.do(http.MethodGet, "/api/v1/payment/callback", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Processing payment")
}

func TestPaymentController_ResetAndTrustedOrigin(t *testing.T) {
	s := setupControllerTest(t)
	id := s.readyForPayment(6000)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/payment/reset/%d", id), s.owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/initiate", strings.NewReader(fmt.Sprintf(`{"applicationId":%d}`, id)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.owner)
	req.Header.Set("Origin", "https://other-portal.test")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	appRefNo := decode(t, w)["appRefNo"].(string)

	txn, err := s.repos.Payments.FindByAppRefNo(appRefNo)
	require.NoError(t, err)
	assert.Equal(t, "https://other-portal.test", txn.PortalBaseURL)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/payment/reset/%d", id), s.owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "failed", decode(t, w)["transaction"].(map[string]interface{})["transaction_status"])

	w = s.postCallback(s.gateway.Codec().EncodePayload(fmt.Sprintf(
		"EchTxnId=GRN000999|BankCIN=CIN0002|Status=Success|StatusCd=1|AppRefNo=%s|TotalAmount=6000", appRefNo)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Payment received")
	assert.Contains(t, w.Body.String(), appRefNo)

	txn, err = s.repos.Payments.FindByAppRefNo(appRefNo)
	require.NoError(t, err)
	assert.Equal(t, "GRN000999", txn.GRN)
	assert.Equal(t, model.TransactionFailed, txn.TransactionStatus)
}

func TestSettingsController_Update(t *testing.T) {
	s := setupControllerTest(t)

	w := s.do(http.MethodPut, "/api/v1/admin/settings/"+model.SettingPaymentTestMode, s.owner, UpdateSettingRequest{Value: "true"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, "/api/v1/admin/settings/"+model.SettingPaymentTestMode, s.state, UpdateSettingRequest{Value: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/admin/settings/unknown_flag", s.state, UpdateSettingRequest{Value: "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "WORKFLOW_UNKNOWN_SETTING", decode(t, w)["error"])

	w = s.do(http.MethodPut, "/api/v1/admin/settings/"+model.SettingPaymentTestMode, s.state, UpdateSettingRequest{Value: "true"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "true", decode(t, w)["setting"].(map[string]interface{})["value"])

	w = s.do(http.MethodGet, "/api/v1/admin/settings", s.state, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["settings"], 2)
}
