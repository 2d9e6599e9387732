package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrStorageDisabled     = errors.New("document storage is not configured")
	ErrContentTypeRejected = errors.New("content type is not allowed")
)

// AllowedContentTypes are the formats accepted for application documents
var AllowedContentTypes = []string{"application/pdf", "image/jpeg", "image/png"}

// UploadTarget is where the browser puts a document and where it can be read back
type UploadTarget struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"key"`
}

// DocumentStore hands out upload locations for application documents.
// The workflow only keeps the resulting file URL.
type DocumentStore interface {
	PresignUpload(ctx context.Context, applicationID uint, fileName, contentType string) (*UploadTarget, error)
}

// Disabled is used when no bucket is configured; owners then register
// documents by URL only.
type Disabled struct{}

func (Disabled) PresignUpload(context.Context, uint, string, string) (*UploadTarget, error) {
	return nil, ErrStorageDisabled
}

// ValidateContentType checks a content type against AllowedContentTypes
func ValidateContentType(contentType string) error {
	for _, allowed := range AllowedContentTypes {
		if strings.EqualFold(contentType, allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrContentTypeRejected, contentType)
}

func objectKey(applicationID uint, name, fileName string) string {
	return fmt.Sprintf("applications/%d/%s%s", applicationID, name, strings.ToLower(filepath.Ext(fileName)))
}
