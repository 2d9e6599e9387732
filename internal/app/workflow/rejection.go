package workflow

import "fmt"

// Rejection codes
const (
	CodeUnknownTransition   = "unknown_transition"
	CodeInvalidSourceStatus = "invalid_source_status"
	CodeRoleNotPermitted    = "role_not_permitted"
	CodeDistrictMismatch    = "district_mismatch"
	CodeNotOwner            = "not_owner"
	CodeFeedbackTooShort    = "feedback_too_short"
	CodeDocumentsMissing    = "documents_missing"
	CodeDocumentsPending    = "documents_pending"
	CodeReportMissing       = "inspection_report_missing"
	CodeChecklistIncomplete = "checklist_incomplete"
	CodeInspectionDate      = "inspection_date_invalid"
	CodeCertificateMissing  = "certificate_missing"
	CodeLegacyDetails       = "legacy_details_missing"
	CodeRoomsInvalid        = "rooms_invalid"
	CodeFeeNotCalculated    = "fee_not_calculated"
	CodeIncompleteDraft     = "incomplete_draft"
	CodeRenewalWindow       = "renewal_window"
	CodeActiveServiceReq    = "active_service_request"
	CodeParentNotEligible   = "parent_not_eligible"
)

// GuardRejection is a user-correctable precondition failure. Message is shown verbatim.
type GuardRejection struct {
	Code    string                 `json:"code"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (r *GuardRejection) Error() string {
	if r.Field != "" {
		return fmt.Sprintf("%s (%s): %s", r.Code, r.Field, r.Message)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code, field, format string, args ...interface{}) *GuardRejection {
	return &GuardRejection{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewRejection builds a rejection outside the transition table, e.g. for service requests
func NewRejection(code, field, message string, details map[string]interface{}) *GuardRejection {
	return &GuardRejection{Code: code, Field: field, Message: message, Details: details}
}
