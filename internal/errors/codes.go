package errors

// Error code constants
// Format: CATEGORY_SPECIFIC_DETAIL
// The portal maps these codes to localized messages

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // login required
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // token expired
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // malformed or unsigned token

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // no access to the resource
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // identity carries no role
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"     // only the applicant may do this

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"
	ResourceNotEditable   = "RESOURCE_NOT_EDITABLE"

	// ==================== Workflow (WORKFLOW_) ====================
	WorkflowTransitionRejected = "WORKFLOW_TRANSITION_REJECTED" // guard refused; see field and details
	WorkflowConcurrentUpdate   = "WORKFLOW_CONCURRENT_UPDATE"   // re-fetch and retry
	WorkflowUnknownTransition  = "WORKFLOW_UNKNOWN_TRANSITION"
	WorkflowUnknownSetting     = "WORKFLOW_UNKNOWN_SETTING"

	// ==================== Payment (PAYMENT_) ====================
	PaymentNotReady           = "PAYMENT_NOT_READY"
	PaymentFeeNotCalculated   = "PAYMENT_FEE_NOT_CALCULATED"
	PaymentInProgress         = "PAYMENT_IN_PROGRESS"
	PaymentNoActiveAttempt    = "PAYMENT_NO_ACTIVE_ATTEMPT"
	PaymentTransactionMissing = "PAYMENT_TRANSACTION_NOT_FOUND"
	PaymentPayloadInvalid     = "PAYMENT_PAYLOAD_INVALID"
	PaymentGatewayUnavailable = "PAYMENT_GATEWAY_UNAVAILABLE"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadDisabled        = "UPLOAD_DISABLED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
