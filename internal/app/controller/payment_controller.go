package controller

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/service"
	apperrors "github.com/ikkim/homestay-backend/internal/errors"
	"github.com/ikkim/homestay-backend/internal/middleware"
)

type PaymentController struct {
	paymentService service.PaymentService
	portalBaseURL  string
	trustedOrigins []string
}

// NewPaymentController takes the default portal url and the origins the browser
// may be returned to instead of it
func NewPaymentController(paymentService service.PaymentService, portalBaseURL string, trustedOrigins []string) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		portalBaseURL:  strings.TrimRight(portalBaseURL, "/"),
		trustedOrigins: trustedOrigins,
	}
}

// InitiatePaymentRequest represents the request to initiate a payment
type InitiatePaymentRequest struct {
	ApplicationID uint `json:"applicationId" binding:"required"`
}

// InitiatePayment builds an encrypted challan for the browser to post to the gateway
// POST /api/v1/payment/initiate
func (ctrl *PaymentController) InitiatePayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationRequired, "applicationId is required")
		return
	}

	result, err := ctrl.paymentService.Initiate(c.Request.Context(), actor, req.ApplicationID, ctrl.portalURL(c))
	if err != nil {
		respondServiceError(c, err, "initiate payment")
		return
	}

	log.Info("Payment initiated", map[string]interface{}{
		"application_id": req.ApplicationID,
		"app_ref_no":     result.AppRefNo,
		"test_mode":      result.TestMode,
	})

	c.JSON(http.StatusOK, result)
}

// portalURL is the origin the browser should return to after payment.
// Untrusted origins fall back to the configured portal.
func (ctrl *PaymentController) portalURL(c *gin.Context) string {
	origin := strings.TrimRight(c.GetHeader("Origin"), "/")
	if origin != "" && slices.Contains(ctrl.trustedOrigins, origin) {
		return origin
	}
	return ctrl.portalBaseURL
}

// CallbackHoldingPage is shown if the gateway redirects with GET before posting the result
// GET /api/v1/payment/callback
func (ctrl *PaymentController) CallbackHoldingPage(c *gin.Context) {
	renderPaymentPage(c, http.StatusOK, paymentPageData{
		Title:   "Processing payment",
		Message: "We are waiting for the treasury to confirm your payment. Do not close this window.",
	})
}

// Callback settles the attempt named in the gateway's encrypted response
// POST /api/v1/payment/callback
func (ctrl *PaymentController) Callback(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	encData := c.PostForm("encdata")
	result, err := ctrl.paymentService.HandleCallback(c.Request.Context(), encData)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayloadIntegrity):
			renderPaymentPage(c, http.StatusBadRequest, paymentPageData{
				Title:   "Payment response rejected",
				Message: "The payment response could not be verified. If money was debited it will be checked with the treasury.",
			})
		case errors.Is(err, service.ErrTransactionNotFound):
			renderPaymentPage(c, http.StatusNotFound, paymentPageData{
				Title:   "Payment not recognised",
				Message: "We could not match this payment to an application. Please contact the helpdesk.",
			})
		default:
			log.Error("Payment callback failed", err, nil)
			renderPaymentPage(c, http.StatusInternalServerError, paymentPageData{
				Title:   "Payment is being processed",
				Message: "We could not record your payment right now. It will be checked with the treasury.",
			})
		}
		return
	}

	data := paymentPageData{
		Reference:   result.Transaction.AppRefNo,
		RedirectURL: result.RedirectURL,
	}
	switch {
	case result.LatePayment:
		data.Title = "Payment received"
		data.Message = "This payment attempt had already been cancelled, so your application was not updated. " +
			"Please contact the helpdesk with the reference below."
	case result.Success:
		data.Title = "Payment successful"
		data.Message = "Your registration fee has been received."
		if result.Application != nil && result.Application.CertificateNumber != nil {
			data.Message += " Certificate " + *result.Application.CertificateNumber + " has been issued."
		}
	default:
		data.Title = "Payment failed"
		data.Message = "The treasury reported that the payment did not go through. You can try again from your application."
	}

	log.Info("Payment callback handled", map[string]interface{}{
		"app_ref_no":        result.Transaction.AppRefNo,
		"success":           result.Success,
		"late_payment":      result.LatePayment,
		"already_processed": result.AlreadyProcessed,
	})

	renderPaymentPage(c, http.StatusOK, data)
}

// VerifyPayment runs double verification for one attempt
// POST /api/v1/payment/verify/:appRefNo
func (ctrl *PaymentController) VerifyPayment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	result, err := ctrl.paymentService.Verify(c.Request.Context(), actor, c.Param("appRefNo"))
	if err != nil {
		respondServiceError(c, err, "verify payment")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ResetPayment abandons a stuck attempt so the owner can pay again
// POST /api/v1/payment/reset/:applicationId
func (ctrl *PaymentController) ResetPayment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "applicationId")
	if !ok {
		return
	}

	txn, err := ctrl.paymentService.Reset(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err, "reset payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction": txn,
	})
}

// ListTransactions returns all payment attempts of an application, newest first
// GET /api/v1/applications/:id/payments
func (ctrl *PaymentController) ListTransactions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	txns, err := ctrl.paymentService.Transactions(actor, id)
	if err != nil {
		respondServiceError(c, err, "list payment transactions")
		return
	}
	if txns == nil {
		txns = []model.PaymentTransaction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"count":        len(txns),
	})
}
