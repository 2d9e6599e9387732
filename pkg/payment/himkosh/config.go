package himkosh

import "fmt"

// Config represents the configuration for the HimKosh treasury gateway client
type Config struct {
	// PaymentURL is the gateway page the payer's browser is posted to
	PaymentURL string

	// VerifyURL is the server-to-server double verification endpoint
	VerifyURL string

	// MerchantCode identifies the department on the gateway
	MerchantCode string

	// ServiceCode is appended after the checksummed core string
	ServiceCode string

	// DeptID is the first field of every core string
	DeptID string

	// ReturnURL is where the gateway posts the encrypted callback
	ReturnURL string

	// Key is the shared secret provisioned by the treasury
	Key []byte
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch {
	case c.PaymentURL == "":
		return fmt.Errorf("%w: payment url is required", ErrInvalidConfig)
	case c.MerchantCode == "":
		return fmt.Errorf("%w: merchant code is required", ErrInvalidConfig)
	case c.ServiceCode == "":
		return fmt.Errorf("%w: service code is required", ErrInvalidConfig)
	case c.DeptID == "":
		return fmt.Errorf("%w: department id is required", ErrInvalidConfig)
	case c.ReturnURL == "":
		return fmt.Errorf("%w: return url is required", ErrInvalidConfig)
	case len(c.Key) < keySize:
		return fmt.Errorf("%w: key must be at least %d bytes", ErrInvalidConfig, keySize)
	}
	return nil
}
