package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/homestay-backend/internal/app/service"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	apperrors "github.com/ikkim/homestay-backend/internal/errors"
	"github.com/ikkim/homestay-backend/internal/middleware"
	"github.com/ikkim/homestay-backend/internal/storage"
)

// requireActor returns the authenticated actor or writes a 401
func requireActor(c *gin.Context) (workflow.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Warn("Unauthenticated request reached a protected handler", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apperrors.Unauthorized(c, "")
		return workflow.Actor{}, false
	}
	return actor, true
}

// parseID reads a numeric path parameter or writes a 400
func parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// respondServiceError maps service and workflow errors onto HTTP responses.
// context names the operation for logs and fallback messages.
func respondServiceError(c *gin.Context, err error, context string) {
	log := middleware.GetLoggerFromContext(c)

	var rejection *workflow.GuardRejection
	if errors.As(err, &rejection) {
		details := map[string]interface{}{"code": rejection.Code}
		for k, v := range rejection.Details {
			details[k] = v
		}
		log.Info("Request rejected by workflow guard", map[string]interface{}{
			"context": context,
			"code":    rejection.Code,
			"field":   rejection.Field,
		})
		apperrors.RespondWithDetails(c, http.StatusUnprocessableEntity, apperrors.WorkflowTransitionRejected,
			rejection.Message, rejection.Field, details)
		return
	}

	status, code, message := http.StatusInternalServerError, "", ""
	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		status, code, message = http.StatusNotFound, apperrors.ResourceNotFound, "Application not found"
	case errors.Is(err, service.ErrDocumentNotFound):
		status, code, message = http.StatusNotFound, apperrors.ResourceNotFound, "Document not found"
	case errors.Is(err, service.ErrTransactionNotFound):
		status, code, message = http.StatusNotFound, apperrors.PaymentTransactionMissing, "Payment transaction not found"
	case errors.Is(err, service.ErrForbidden):
		status, code, message = http.StatusForbidden, apperrors.AuthzForbidden, "You do not have access to this application"
	case errors.Is(err, service.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, apperrors.ValidationInvalidInput, err.Error()
	case errors.Is(err, service.ErrNotEditable):
		status, code, message = http.StatusConflict, apperrors.ResourceNotEditable, "Application cannot be edited in its current status"
	case errors.Is(err, service.ErrConcurrencyConflict):
		status, code, message = http.StatusConflict, apperrors.WorkflowConcurrentUpdate, "Application was updated by someone else. Reload and try again"
	case errors.Is(err, service.ErrNotReadyForPayment):
		status, code, message = http.StatusConflict, apperrors.PaymentNotReady, "Application is not awaiting payment"
	case errors.Is(err, service.ErrFeeNotCalculated):
		status, code, message = http.StatusConflict, apperrors.PaymentFeeNotCalculated, "Registration fee has not been calculated"
	case errors.Is(err, service.ErrPaymentInProgress):
		status, code, message = http.StatusConflict, apperrors.PaymentInProgress, "A payment attempt is already in progress"
	case errors.Is(err, service.ErrNoActiveTransaction):
		status, code, message = http.StatusConflict, apperrors.PaymentNoActiveAttempt, "There is no open payment attempt to reset"
	case errors.Is(err, service.ErrPayloadIntegrity):
		status, code, message = http.StatusBadRequest, apperrors.PaymentPayloadInvalid, "Payment response could not be verified"
	case errors.Is(err, service.ErrGatewayUnavailable):
		status, code, message = http.StatusServiceUnavailable, apperrors.PaymentGatewayUnavailable, "Treasury gateway is unavailable. Please try again later"
	case errors.Is(err, service.ErrUnknownSetting):
		status, code, message = http.StatusNotFound, apperrors.WorkflowUnknownSetting, "Unknown setting"
	case errors.Is(err, storage.ErrStorageDisabled):
		status, code, message = http.StatusServiceUnavailable, apperrors.UploadDisabled, "Direct uploads are not configured"
	case errors.Is(err, storage.ErrContentTypeRejected):
		status, code, message = http.StatusBadRequest, apperrors.UploadInvalidFileType, "Only PDF, JPEG and PNG files are accepted"
	}

	if code != "" {
		log.Warn("Request failed", map[string]interface{}{
			"context": context,
			"status":  status,
			"error":   err.Error(),
		})
		apperrors.RespondWithError(c, status, code, message)
		return
	}

	log.Error("Unexpected error", err, map[string]interface{}{
		"context": context,
	})
	apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
}
