package himkosh

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	keySize        = 16
	checksumMarker = "|checkSum="
)

// BuildCoreString renders the checksummed portion of a challan in the fixed
// field order the gateway expects.
func BuildCoreString(deptID string, r ChallanRequest) string {
	var b strings.Builder
	writeField(&b, "DeptID", deptID)
	writeField(&b, "DeptRefNo", r.DeptRefNo)
	writeField(&b, "TotalAmount", strconv.FormatInt(r.TotalAmount, 10))
	writeField(&b, "TenderBy", r.TenderBy)
	writeField(&b, "AppRefNo", r.AppRefNo)
	writeField(&b, "Head1", r.Head1)
	writeField(&b, "Amount1", strconv.FormatInt(r.Amount1, 10))
	writeField(&b, "Ddo", r.DDO)
	writeField(&b, "PeriodFrom", r.PeriodFrom.Format(PeriodLayout))
	writeField(&b, "PeriodTo", r.PeriodTo.Format(PeriodLayout))
	if r.Amount2 > 0 {
		writeField(&b, "Head2", r.Head2)
		writeField(&b, "Amount2", strconv.FormatInt(r.Amount2, 10))
	}
	return b.String()
}

func writeField(b *strings.Builder, key, value string) {
	if b.Len() > 0 {
		b.WriteByte('|')
	}
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
}

// Checksum returns the lowercase MD5 hex digest of s
func Checksum(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum compares the digest of body against sum, ignoring hex case
func VerifyChecksum(body, sum string) bool {
	expected := Checksum(body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(sum)))) == 1
}

// Codec encrypts and decrypts gateway payloads with the shared key.
// AES-128-CBC, PKCS7 padding, IV equal to the key, base64 transport.
type Codec struct {
	block cipher.Block
	iv    []byte
}

// NewCodec builds a codec from the shared secret; only the first 16 bytes are used
func NewCodec(key []byte) (*Codec, error) {
	if len(key) < keySize {
		return nil, fmt.Errorf("%w: key must be at least %d bytes", ErrInvalidConfig, keySize)
	}
	k := make([]byte, keySize)
	copy(k, key[:keySize])
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &Codec{block: block, iv: k}, nil
}

// Encrypt returns the base64 ciphertext of plain
func (c *Codec) Encrypt(plain string) string {
	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt
func (c *Codec) Decrypt(encoded string) (string, error) {
	// form posts sometimes turn '+' into ' '
	encoded = strings.ReplaceAll(strings.TrimSpace(encoded), " ", "+")
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrDecryptFailed)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)
	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryptFailed)
	}
	for _, p := range data[len(data)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecryptFailed)
		}
	}
	return data[:len(data)-n], nil
}

// ParsePayload splits a decrypted payload at the checksum marker, verifies the
// checksum over everything before it and parses the key=value pairs.
func ParsePayload(plain string) (*CallbackResponse, error) {
	idx := strings.LastIndex(plain, checksumMarker)
	if idx < 0 {
		return nil, fmt.Errorf("%w: checksum marker not found", ErrMalformedPayload)
	}
	body := plain[:idx]
	sum := plain[idx+len(checksumMarker):]
	if !VerifyChecksum(body, sum) {
		return nil, ErrChecksumMismatch
	}

	fields := make(map[string]string)
	for _, part := range strings.Split(body, "|") {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: field %q has no value", ErrMalformedPayload, part)
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	amount, err := parseAmount(lookup(fields, "TotalAmount", "Amount"))
	if err != nil {
		return nil, err
	}

	return &CallbackResponse{
		EchTxnID:    lookup(fields, "EchTxnId", "EchTxnID"),
		BankCIN:     lookup(fields, "BankCIN"),
		Bank:        lookup(fields, "Bank"),
		BankName:    lookup(fields, "BankName"),
		Status:      lookup(fields, "Status"),
		StatusCode:  lookup(fields, "StatusCd", "StatusCode"),
		AppRefNo:    lookup(fields, "AppRefNo"),
		DeptRefNo:   lookup(fields, "DeptRefNo"),
		Amount:      amount,
		PaymentDate: lookup(fields, "PaymentDate", "PayDate"),
		Checksum:    strings.ToLower(strings.TrimSpace(sum)),
		Fields:      fields,
		PlainText:   plain,
	}, nil
}

// lookup returns the first non-empty value among the given keys
func lookup(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}

// EncodePayload appends the checksum of body and encrypts the result.
// Used for verification requests and by gateway stubs in tests.
func (c *Codec) EncodePayload(body string) string {
	return c.Encrypt(body + checksumMarker + Checksum(body))
}
