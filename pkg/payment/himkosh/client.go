package himkosh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client represents a HimKosh treasury gateway client
type Client struct {
	config     Config
	codec      *Codec
	httpClient *http.Client
}

// NewClient creates a new HimKosh client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	codec, err := NewCodec(config.Key)
	if err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		codec:  codec,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// Codec exposes the payload codec
func (c *Client) Codec() *Codec {
	return c.codec
}

// BuildRequest renders, checksums and encrypts a challan.
// The checksum covers the core string only; service code and return url are
// appended after it and before the checksum field.
func (c *Client) BuildRequest(req ChallanRequest) (*EncodedRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	core := BuildCoreString(c.config.DeptID, req)
	sum := Checksum(core)

	var b strings.Builder
	b.WriteString(core)
	b.WriteString("|Service_code=")
	b.WriteString(c.config.ServiceCode)
	b.WriteString("|return_url=")
	b.WriteString(c.config.ReturnURL)
	b.WriteString(checksumMarker)
	b.WriteString(sum)
	plain := b.String()

	return &EncodedRequest{
		CoreString:   core,
		Checksum:     sum,
		PlainText:    plain,
		EncData:      c.codec.Encrypt(plain),
		MerchantCode: c.config.MerchantCode,
		PaymentURL:   c.config.PaymentURL,
	}, nil
}

// ParseCallback decrypts and verifies an encdata value posted back by the gateway
func (c *Client) ParseCallback(encData string) (*CallbackResponse, error) {
	if strings.TrimSpace(encData) == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}
	plain, err := c.codec.Decrypt(encData)
	if err != nil {
		return nil, err
	}
	return ParsePayload(plain)
}

// Verify asks the gateway for the authoritative status of an application reference
func (c *Client) Verify(ctx context.Context, appRefNo string) (*CallbackResponse, error) {
	if c.config.VerifyURL == "" {
		return nil, fmt.Errorf("%w: verify url is not configured", ErrInvalidConfig)
	}

	body := fmt.Sprintf("AppRefNo=%s|Service_code=%s|merchant_code=%s",
		appRefNo, c.config.ServiceCode, c.config.MerchantCode)

	resp, err := c.doRequest(ctx, c.config.VerifyURL, url.Values{
		"encdata":       {c.codec.EncodePayload(body)},
		"merchant_code": {c.config.MerchantCode},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to make verify request: %w", err)
	}

	return c.ParseCallback(string(resp))
}

// doRequest performs a form POST to the gateway
func (c *Client) doRequest(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrVerificationFailed, resp.StatusCode)
	}

	return body, nil
}
