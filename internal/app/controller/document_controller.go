package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/service"
	apperrors "github.com/ikkim/homestay-backend/internal/errors"
)

type DocumentController struct {
	documentService service.DocumentService
}

func NewDocumentController(documentService service.DocumentService) *DocumentController {
	return &DocumentController{
		documentService: documentService,
	}
}

type UploadURLRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

type VerifyDocumentRequest struct {
	Status  model.DocumentVerificationStatus `json:"status" binding:"required"`
	Remarks string                           `json:"remarks"`
}

// RequestUploadURL hands out a presigned upload location
// POST /api/v1/applications/:id/documents/upload-url
func (ctrl *DocumentController) RequestUploadURL(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "file_name and content_type are required")
		return
	}

	target, err := ctrl.documentService.RequestUpload(c.Request.Context(), actor, id, req.FileName, req.ContentType)
	if err != nil {
		respondServiceError(c, err, "request document upload")
		return
	}

	c.JSON(http.StatusOK, target)
}

// RegisterDocument attaches an uploaded file to the application
// POST /api/v1/applications/:id/documents
func (ctrl *DocumentController) RegisterDocument(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input service.DocumentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	doc, err := ctrl.documentService.Register(actor, id, input)
	if err != nil {
		respondServiceError(c, err, "register document")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document": doc,
	})
}

// ListDocuments returns the documents of one application
// GET /api/v1/applications/:id/documents
func (ctrl *DocumentController) ListDocuments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	docs, err := ctrl.documentService.List(actor, id)
	if err != nil {
		respondServiceError(c, err, "list documents")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

// VerifyDocument records the dealing assistant's verdict on a document
// PUT /api/v1/documents/:id/verification
func (ctrl *DocumentController) VerifyDocument(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req VerifyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "status is required")
		return
	}

	doc, err := ctrl.documentService.Verify(actor, id, req.Status, req.Remarks)
	if err != nil {
		respondServiceError(c, err, "verify document")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document": doc,
	})
}
