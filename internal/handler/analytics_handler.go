package handler

import (
	"net/http"
	"strconv"

	"salesdesk/internal/middleware"
	"salesdesk/internal/service"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	auth             *middleware.Auth
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService, auth *middleware.Auth) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, auth: auth}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/analytics")
	group.Use(h.auth.Authenticated())
	{
		group.GET("/dashboard", h.GetDashboard)
		group.GET("/trend", h.GetTrend)
		group.GET("/breakdown", h.GetBreakdown)
		group.GET("/leaderboard", h.auth.AdminOnly(), h.GetLeaderboard)
		group.GET("/top-clients", h.auth.AdminOnly(), h.GetTopClients)
	}
}

// intQuery returns 0 for a missing value.
func intQuery(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// @Summary      Dashboard summary
// @Description  Sale counts, approved revenue and commission figures. Scoped to the caller for journalists.
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.DashboardSummary}
// @Router       /api/analytics/dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	summary, err := h.analyticsService.Dashboard(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// @Summary      Revenue trend
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        bucket  query     string  false  "day, week or month (default day)"
// @Param        days    query     int     false  "Window length in days"
// @Success      200     {object}  response.Response{data=[]model.TrendPoint}
// @Failure      400     {object}  response.Response
// @Router       /api/analytics/trend [get]
func (h *AnalyticsHandler) GetTrend(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}

	points, err := h.analyticsService.Trend(c.Request.Context(), actor, service.TrendRequest{
		Bucket: c.Query("bucket"),
		Days:   days,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}

// @Summary      Revenue by ad type and payment method
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.Breakdown}
// @Router       /api/analytics/breakdown [get]
func (h *AnalyticsHandler) GetBreakdown(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	breakdown, err := h.analyticsService.Breakdown(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, breakdown))
}

// @Summary      Journalist leaderboard
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Rows (default 10, max 100)"
// @Success      200    {object}  response.Response{data=[]model.JournalistRanking}
// @Router       /api/analytics/leaderboard [get]
func (h *AnalyticsHandler) GetLeaderboard(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	rankings, err := h.analyticsService.Leaderboard(c.Request.Context(), actor, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rankings))
}

// @Summary      Top clients by approved revenue
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Rows (default 10, max 100)"
// @Success      200    {object}  response.Response{data=[]model.ClientRanking}
// @Router       /api/analytics/top-clients [get]
func (h *AnalyticsHandler) GetTopClients(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	rankings, err := h.analyticsService.TopClients(c.Request.Context(), actor, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rankings))
}
