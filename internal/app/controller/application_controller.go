package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/service"
	apperrors "github.com/ikkim/homestay-backend/internal/errors"
	"github.com/ikkim/homestay-backend/internal/middleware"
)

const maxPageSize = 100

type ApplicationController struct {
	applicationService    service.ApplicationService
	workflowService       service.WorkflowService
	serviceRequestService service.ServiceRequestService
}

func NewApplicationController(
	applicationService service.ApplicationService,
	workflowService service.WorkflowService,
	serviceRequestService service.ServiceRequestService,
) *ApplicationController {
	return &ApplicationController{
		applicationService:    applicationService,
		workflowService:       workflowService,
		serviceRequestService: serviceRequestService,
	}
}

// CreateApplication creates a draft for the calling owner
// POST /api/v1/applications
func (ctrl *ApplicationController) CreateApplication(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var input service.DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid draft payload", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	app, err := ctrl.applicationService.CreateDraft(actor, input)
	if err != nil {
		respondServiceError(c, err, "create application")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"application": app,
	})
}

// GetApplication returns one application the caller may see
// GET /api/v1/applications/:id
func (ctrl *ApplicationController) GetApplication(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	app, err := ctrl.applicationService.Get(actor, id)
	if err != nil {
		respondServiceError(c, err, "get application")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app,
	})
}

// ListApplications lists applications visible to the caller
// GET /api/v1/applications?status=submitted,under_scrutiny&limit=20&offset=0
func (ctrl *ApplicationController) ListApplications(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	query := service.ListQuery{Limit: 20}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := model.ApplicationStatus(strings.TrimSpace(s))
			if !status.Valid() {
				apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Unknown status "+string(status))
				return
			}
			query.Statuses = append(query.Statuses, status)
		}
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		query.Limit = min(n, maxPageSize)
	}
	if n, err := strconv.Atoi(c.Query("offset")); err == nil && n > 0 {
		query.Offset = n
	}

	apps, total, err := ctrl.applicationService.List(actor, query)
	if err != nil {
		respondServiceError(c, err, "list applications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"count":        len(apps),
		"total":        total,
	})
}

// UpdateApplication edits a draft or an application returned for corrections
// PUT /api/v1/applications/:id
func (ctrl *ApplicationController) UpdateApplication(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input service.DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	app, err := ctrl.applicationService.UpdateDraft(actor, id, input)
	if err != nil {
		respondServiceError(c, err, "update application")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app,
	})
}

// GetFee quotes the registration fee for the current draft
// GET /api/v1/applications/:id/fee
func (ctrl *ApplicationController) GetFee(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	quote, err := ctrl.applicationService.QuoteFee(actor, id)
	if err != nil {
		respondServiceError(c, err, "quote fee")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fee": quote,
	})
}

// GetHistory returns the audit trail, oldest first
// GET /api/v1/applications/:id/actions
func (ctrl *ApplicationController) GetHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	actions, err := ctrl.workflowService.History(actor, id)
	if err != nil {
		respondServiceError(c, err, "get application history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actions": actions,
		"count":   len(actions),
	})
}

// CreateServiceRequest derives a renewal, room change or cancellation from an approved application
// POST /api/v1/applications/:id/service-requests
func (ctrl *ApplicationController) CreateServiceRequest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	parentID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input service.ServiceRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	child, err := ctrl.serviceRequestService.Create(actor, parentID, input)
	if err != nil {
		respondServiceError(c, err, "create service request")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Service request created", map[string]interface{}{
		"parent_id":      parentID,
		"application_id": child.ID,
		"kind":           child.Kind,
	})

	c.JSON(http.StatusCreated, gin.H{
		"application": child,
	})
}
