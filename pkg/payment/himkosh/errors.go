package himkosh

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid himkosh config")

	// ErrInvalidRequest is returned when challan fields are missing or inconsistent
	ErrInvalidRequest = errors.New("invalid challan request")

	// ErrFractionalAmount is returned when an amount is not a whole rupee value.
	// The gateway rejects such payloads outright.
	ErrFractionalAmount = errors.New("amount must be a whole rupee value")

	// ErrPayloadIntegrity is the parent of every inbound payload failure
	ErrPayloadIntegrity = errors.New("payload integrity failure")

	// ErrMalformedPayload is returned when the checksum marker is absent or fields cannot be parsed
	ErrMalformedPayload = fmt.Errorf("%w: malformed payload", ErrPayloadIntegrity)

	// ErrChecksumMismatch is returned when the checksum does not match the payload body
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", ErrPayloadIntegrity)

	// ErrDecryptFailed is returned when the payload cannot be decrypted with the shared key
	ErrDecryptFailed = fmt.Errorf("%w: decrypt failed", ErrPayloadIntegrity)

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrVerificationFailed is returned when the verify endpoint answers with a non-200 status
	ErrVerificationFailed = errors.New("double verification failed")
)
