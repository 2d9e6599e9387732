package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	"github.com/ikkim/homestay-backend/internal/storage"
	"github.com/ikkim/homestay-backend/pkg/logger"
)

// reviewStatuses are the states in which the dealing assistant verifies documents
var reviewStatuses = []model.ApplicationStatus{
	model.StatusUnderScrutiny,
	model.StatusRevertedByDTDO,
}

// DocumentInput registers an uploaded file against an application
type DocumentInput struct {
	DocumentType string `json:"document_type"`
	FileName     string `json:"file_name"`
	FileURL      string `json:"file_url"`
}

type DocumentService interface {
	RequestUpload(ctx context.Context, actor workflow.Actor, applicationID uint, fileName, contentType string) (*storage.UploadTarget, error)
	Register(actor workflow.Actor, applicationID uint, input DocumentInput) (*model.ApplicationDocument, error)
	Verify(actor workflow.Actor, documentID uint, status model.DocumentVerificationStatus, remarks string) (*model.ApplicationDocument, error)
	List(actor workflow.Actor, applicationID uint) ([]model.ApplicationDocument, error)
}

type documentService struct {
	repos Repositories
	store storage.DocumentStore
	now   func() time.Time
}

func NewDocumentService(repos Repositories, store storage.DocumentStore, now func() time.Time) DocumentService {
	if store == nil {
		store = storage.Disabled{}
	}
	if now == nil {
		now = time.Now
	}
	return &documentService{repos: repos, store: store, now: now}
}

func (s *documentService) ownedEditable(actor workflow.Actor, applicationID uint) (*model.Application, error) {
	app, err := s.repos.Applications.FindByID(applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if actor.Role != model.RolePropertyOwner || app.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	if !containsApplicationStatus(editableStatuses, app.Status) {
		return nil, ErrNotEditable
	}
	return app, nil
}

func (s *documentService) RequestUpload(ctx context.Context, actor workflow.Actor, applicationID uint, fileName, contentType string) (*storage.UploadTarget, error) {
	if _, err := s.ownedEditable(actor, applicationID); err != nil {
		return nil, err
	}
	target, err := s.store.PresignUpload(ctx, applicationID, fileName, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrContentTypeRejected) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}
	return target, nil
}

func (s *documentService) Register(actor workflow.Actor, applicationID uint, input DocumentInput) (*model.ApplicationDocument, error) {
	if strings.TrimSpace(input.DocumentType) == "" || strings.TrimSpace(input.FileURL) == "" {
		return nil, fmt.Errorf("%w: document type and file url are required", ErrInvalidInput)
	}
	if _, err := s.ownedEditable(actor, applicationID); err != nil {
		return nil, err
	}

	doc := &model.ApplicationDocument{
		ApplicationID:      applicationID,
		DocumentType:       strings.TrimSpace(input.DocumentType),
		FileName:           strings.TrimSpace(input.FileName),
		FileURL:            strings.TrimSpace(input.FileURL),
		VerificationStatus: model.DocumentPending,
	}
	if err := s.repos.Documents.Create(doc); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	logger.Info("Document registered", map[string]interface{}{
		"application_id": applicationID,
		"document_id":    doc.ID,
		"document_type":  doc.DocumentType,
	})
	return doc, nil
}

// Verify records the dealing assistant's decision on one document.
// Anything other than verified needs remarks the owner can act on.
func (s *documentService) Verify(actor workflow.Actor, documentID uint, status model.DocumentVerificationStatus, remarks string) (*model.ApplicationDocument, error) {
	if actor.Role != model.RoleDealingAssistant {
		return nil, ErrForbidden
	}
	if !status.Valid() || status == model.DocumentPending {
		return nil, fmt.Errorf("%w: verification status must be verified, needs_correction or rejected", ErrInvalidInput)
	}
	remarks = strings.TrimSpace(remarks)
	if status != model.DocumentVerified && remarks == "" {
		return nil, fmt.Errorf("%w: remarks are required when a document is not verified", ErrInvalidInput)
	}

	doc, err := s.repos.Documents.FindByID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	app, err := s.repos.Applications.FindByID(doc.ApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if !workflow.DistrictMatches(actor.District, app.District) {
		return nil, ErrForbidden
	}
	if !containsApplicationStatus(reviewStatuses, app.Status) {
		return nil, fmt.Errorf("%w: documents are verified during scrutiny only", ErrNotEditable)
	}

	now := s.now()
	verifier := actor.ID
	doc.VerificationStatus = status
	doc.VerifiedBy = &verifier
	doc.VerifiedAt = &now
	doc.Remarks = remarks
	if err := s.repos.Documents.UpdateVerification(doc); err != nil {
		return nil, fmt.Errorf("failed to save verification: %w", err)
	}

	logger.Info("Document verification recorded", map[string]interface{}{
		"document_id":    doc.ID,
		"application_id": app.ID,
		"status":         status,
		"verified_by":    actor.ID,
	})
	return doc, nil
}

func (s *documentService) List(actor workflow.Actor, applicationID uint) ([]model.ApplicationDocument, error) {
	app, err := s.repos.Applications.FindByID(applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if err := authorizeView(actor, app); err != nil {
		return nil, err
	}
	return s.repos.Documents.FindByApplication(applicationID)
}
