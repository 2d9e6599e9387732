package service

import (
	"errors"

	"github.com/ikkim/homestay-backend/pkg/payment/himkosh"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrTransactionNotFound = errors.New("payment transaction not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrForbidden           = errors.New("not allowed to access this application")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotEditable         = errors.New("application cannot be edited in its current status")

	// ErrConcurrencyConflict means the status changed under the caller; re-fetch and retry
	ErrConcurrencyConflict = errors.New("application was modified by another request")

	ErrNotReadyForPayment   = errors.New("not ready for payment")
	ErrFeeNotCalculated     = errors.New("fee not calculated")
	ErrPaymentInProgress    = errors.New("a payment attempt is already in progress")
	ErrNoActiveTransaction  = errors.New("latest payment attempt is already final")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrPortalBaseURLMissing = errors.New("portal base url was not captured at initiation")

	ErrUnknownSetting = errors.New("unknown setting")

	// ErrPayloadIntegrity covers malformed and tampered gateway payloads
	ErrPayloadIntegrity = himkosh.ErrPayloadIntegrity
)
