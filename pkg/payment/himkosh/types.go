package himkosh

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodLayout is the dd-MM-yyyy layout the gateway expects for PeriodFrom and PeriodTo
const PeriodLayout = "02-01-2006"

// ChallanRequest holds the fields of one treasury challan.
// Amounts are whole rupees.
type ChallanRequest struct {
	DeptRefNo   string
	TotalAmount int64
	TenderBy    string
	AppRefNo    string
	Head1       string
	Amount1     int64
	DDO         string
	PeriodFrom  time.Time
	PeriodTo    time.Time

	// Head2 is only emitted when Amount2 > 0
	Head2   string
	Amount2 int64
}

// Validate checks the challan for missing fields and inconsistent totals
func (r *ChallanRequest) Validate() error {
	switch {
	case r.DeptRefNo == "":
		return fmt.Errorf("%w: dept ref no is required", ErrInvalidRequest)
	case r.AppRefNo == "":
		return fmt.Errorf("%w: app ref no is required", ErrInvalidRequest)
	case r.TenderBy == "":
		return fmt.Errorf("%w: tender by is required", ErrInvalidRequest)
	case r.Head1 == "":
		return fmt.Errorf("%w: head1 is required", ErrInvalidRequest)
	case r.DDO == "":
		return fmt.Errorf("%w: ddo is required", ErrInvalidRequest)
	case r.Amount1 <= 0:
		return fmt.Errorf("%w: amount1 must be positive", ErrInvalidRequest)
	case r.Amount2 < 0:
		return fmt.Errorf("%w: amount2 must not be negative", ErrInvalidRequest)
	case r.Amount2 > 0 && r.Head2 == "":
		return fmt.Errorf("%w: head2 is required when amount2 is set", ErrInvalidRequest)
	case r.TotalAmount != r.Amount1+r.Amount2:
		return fmt.Errorf("%w: total %d does not equal head amounts", ErrInvalidRequest, r.TotalAmount)
	case r.PeriodTo.Before(r.PeriodFrom):
		return fmt.Errorf("%w: period ends before it starts", ErrInvalidRequest)
	}
	return nil
}

// EncodedRequest is what the browser form posts to the gateway
type EncodedRequest struct {
	// CoreString is the checksummed portion
	CoreString string
	// Checksum is the lowercase MD5 hex digest of CoreString
	Checksum string
	// PlainText is the full string before encryption, safe to persist
	PlainText string
	// EncData is the base64 ciphertext posted as the encdata form field
	EncData string
	// MerchantCode is posted alongside encdata
	MerchantCode string
	// PaymentURL is the form action
	PaymentURL string
}

// CallbackResponse is a decrypted and checksum-verified gateway payload.
// The same shape is returned by the double verification endpoint.
type CallbackResponse struct {
	EchTxnID    string
	BankCIN     string
	Bank        string
	BankName    string
	Status      string
	StatusCode  string
	AppRefNo    string
	DeptRefNo   string
	Amount      int64
	PaymentDate string
	Checksum    string

	// Fields holds every key=value pair in the payload body
	Fields map[string]string
	// PlainText is the decrypted payload, kept for audit
	PlainText string
}

// Success reports whether the gateway status code denotes a successful payment
func (r *CallbackResponse) Success() bool {
	return r.StatusCode == "1"
}

// AmountFromDecimal converts a rupee amount into the integer form the gateway accepts.
func AmountFromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrFractionalAmount, d.String())
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidRequest, d.String())
	}
	return d.IntPart(), nil
}

// parseAmount accepts "1500" and "1500.00" but rejects "1500.50" as a malformed payload
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: negative amount %d", ErrMalformedPayload, n)
		}
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrMalformedPayload, s)
	}
	amount, err := AmountFromDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return amount, nil
}
