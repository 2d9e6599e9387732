package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/homestay-backend/internal/app/service"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
	apperrors "github.com/ikkim/homestay-backend/internal/errors"
	"github.com/ikkim/homestay-backend/internal/middleware"
)

type TransitionController struct {
	workflowService service.WorkflowService
}

func NewTransitionController(workflowService service.WorkflowService) *TransitionController {
	return &TransitionController{
		workflowService: workflowService,
	}
}

// TransitionRequest carries the optional inputs a transition may need.
// Which ones are required depends on the transition.
type TransitionRequest struct {
	Remarks        string               `json:"remarks"`
	Reason         string               `json:"reason"`
	InspectionDate *time.Time           `json:"inspection_date"`
	Instructions   string               `json:"instructions"`
	Report         *service.ReportInput `json:"report"`
}

func (r TransitionRequest) feedback() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Remarks
}

// Apply runs one workflow transition
// POST /api/v1/applications/:id/transitions/:transition
func (ctrl *TransitionController) Apply(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	name := workflow.Transition(c.Param("transition"))
	// confirm_payment is only reachable through the settlement flow
	if _, known := workflow.Lookup(name); !known || name == workflow.TransitionConfirmPayment {
		log.Warn("Unknown transition requested", map[string]interface{}{
			"application_id": id,
			"transition":     name,
		})
		apperrors.NotFound(c, apperrors.WorkflowUnknownTransition, "Unknown transition")
		return
	}

	var body TransitionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
			return
		}
	}

	app, err := ctrl.workflowService.Attempt(c.Request.Context(), service.TransitionRequest{
		ApplicationID:  id,
		Actor:          actor,
		Transition:     name,
		Feedback:       body.feedback(),
		InspectionDate: body.InspectionDate,
		Instructions:   body.Instructions,
		Report:         body.Report,
	})
	if err != nil {
		respondServiceError(c, err, "apply transition "+string(name))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app,
	})
}
