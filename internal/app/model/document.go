package model

import "time"

type DocumentVerificationStatus string

const (
	DocumentPending         DocumentVerificationStatus = "pending"
	DocumentVerified        DocumentVerificationStatus = "verified"
	DocumentNeedsCorrection DocumentVerificationStatus = "needs_correction"
	DocumentRejected        DocumentVerificationStatus = "rejected"
)

func (s DocumentVerificationStatus) Valid() bool {
	switch s {
	case DocumentPending, DocumentVerified, DocumentNeedsCorrection, DocumentRejected:
		return true
	}
	return false
}

// ApplicationDocument references an uploaded file; the bytes live in an external store
type ApplicationDocument struct {
	ID                 uint                       `gorm:"primarykey" json:"id"`
	ApplicationID      uint                       `gorm:"not null;index" json:"application_id"`
	DocumentType       string                     `gorm:"type:varchar(60);not null" json:"document_type"`
	FileName           string                     `gorm:"type:varchar(255)" json:"file_name"`
	FileURL            string                     `gorm:"type:text;not null" json:"file_url"`
	VerificationStatus DocumentVerificationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"verification_status"`
	VerifiedBy         *uint                      `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time                 `json:"verified_at,omitempty"`
	Remarks            string                     `gorm:"type:text" json:"remarks,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

func (ApplicationDocument) TableName() string {
	return "application_documents"
}
