package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a code and message safe to show to the caller
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns storage and network errors into a user facing code and message.
// Driver details are never echoed back.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	errLower := strings.ToLower(err.Error())

	// 1. gorm sentinels
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. constraint violations (postgres wording first, sqlite second)
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}
	if strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist"}
	}
	if strings.Contains(errLower, "violates not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	// 3. network and connection errors
	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "An upstream service could not be reached. Please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "inspection_order_id"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "A report was already submitted for this inspection"}
	case strings.Contains(errLower, "certificate_number"):
		return ErrorInfo{Code: ResourceConflict, Message: "This certificate number is already registered"}
	case strings.Contains(errLower, "app_ref_no"):
		return ErrorInfo{Code: ResourceConflict, Message: "Payment reference collision. Please try again"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This email is already registered"}
	}
	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "This record already exists",
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "document"):
		return "Document not found"
	case strings.Contains(contextLower, "payment"), strings.Contains(contextLower, "transaction"):
		return "Payment transaction not found"
	case strings.Contains(contextLower, "setting"):
		return "Setting not found"
	case strings.Contains(contextLower, "application"):
		return "Application not found"
	}
	return "The requested record was not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"), strings.Contains(contextLower, "register"):
		return "Could not save. Please try again later"
	case strings.Contains(contextLower, "update"):
		return "Could not update. Please try again later"
	case strings.Contains(contextLower, "payment"):
		return "Payment could not be processed. Please try again later"
	}
	return "Something went wrong. Please try again later"
}

// ParseAndRespond parses err and writes it with the given status
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
