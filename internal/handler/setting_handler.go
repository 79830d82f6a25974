package handler

import (
	"net/http"

	"salesdesk/internal/middleware"
	"salesdesk/internal/service"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingHandler struct {
	settingService service.SettingService
	auth           *middleware.Auth
}

func NewSettingHandler(settingService service.SettingService, auth *middleware.Auth) *SettingHandler {
	return &SettingHandler{settingService: settingService, auth: auth}
}

func (h *SettingHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/settings")
	group.Use(h.auth.Authenticated())
	{
		group.GET("", h.ListSettings)
		group.PUT("", h.auth.AdminOnly(), h.UpsertSetting)
		group.DELETE("/:key", h.auth.AdminOnly(), h.DeleteSetting)
	}
}

// ListSettings
// @Summary      List settings
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Setting}
// @Router       /api/settings [get]
func (h *SettingHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// UpsertSetting creates or replaces one setting
// @Summary      Create or update a setting
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpsertSettingRequest  true  "Setting"
// @Success      200      {object}  response.Response{data=model.Setting}
// @Failure      400      {object}  response.Response
// @Router       /api/settings [put]
func (h *SettingHandler) UpsertSetting(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req service.UpsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	setting, err := h.settingService.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, setting))
}

// DeleteSetting
// @Summary      Delete a setting
// @Description  Built-in settings cannot be deleted.
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Param        key  path      string  true  "Setting key"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/settings/{key} [delete]
func (h *SettingHandler) DeleteSetting(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	if err := h.settingService.Delete(c.Request.Context(), actor, c.Param("key")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Setting deleted successfully"))
}
