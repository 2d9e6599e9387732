package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/homestay-backend/internal/app/service"
	apperrors "github.com/ikkim/homestay-backend/internal/errors"
)

type SettingsController struct {
	settingsService service.SettingsService
}

func NewSettingsController(settingsService service.SettingsService) *SettingsController {
	return &SettingsController{
		settingsService: settingsService,
	}
}

type UpdateSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

// ListSettings returns all runtime flags
// GET /api/v1/admin/settings
func (ctrl *SettingsController) ListSettings(c *gin.Context) {
	settings, err := ctrl.settingsService.List()
	if err != nil {
		respondServiceError(c, err, "list settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

// UpdateSetting changes one runtime flag
// PUT /api/v1/admin/settings/:key
func (ctrl *SettingsController) UpdateSetting(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "value is required")
		return
	}

	setting, err := ctrl.settingsService.Update(actor, c.Param("key"), req.Value)
	if err != nil {
		respondServiceError(c, err, "update setting")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"setting": setting,
	})
}
