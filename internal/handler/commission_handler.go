package handler

import (
	"net/http"

	"salesdesk/internal/middleware"
	"salesdesk/internal/service"
	"salesdesk/pkg/pagination"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type CommissionHandler struct {
	commissionService service.CommissionService
	auth              *middleware.Auth
}

func NewCommissionHandler(commissionService service.CommissionService, auth *middleware.Auth) *CommissionHandler {
	return &CommissionHandler{commissionService: commissionService, auth: auth}
}

func (h *CommissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/commissions")
	group.Use(h.auth.Authenticated())
	{
		group.GET("/payments", h.ListPayments)
		group.POST("/payments", h.auth.AdminOnly(), h.CreatePayment)
		group.GET("/payments/:id", h.GetPayment)
		group.PUT("/payments/:id", h.auth.AdminOnly(), h.UpdatePayment)
		group.DELETE("/payments/:id", h.auth.AdminOnly(), h.DeletePayment)
		group.GET("/balance", h.GetBalance)
		group.GET("/summary", h.auth.AdminOnly(), h.GetSummary)
	}
}

// CreatePayment records a commission payout to a journalist
// @Summary      Record commission payment
// @Tags         commissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCommissionPaymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=model.CommissionPayment}
// @Failure      400      {object}  response.Response
// @Router       /api/commissions/payments [post]
func (h *CommissionHandler) CreatePayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req service.CreateCommissionPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	payment, err := h.commissionService.CreatePayment(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListPayments
// @Summary      List commission payments
// @Description  Journalists only see their own payments.
// @Tags         commissions
// @Security     BearerAuth
// @Produce      json
// @Param        journalist_id  query     string  false  "Admin only"
// @Param        date_from      query     string  false  "YYYY-MM-DD"
// @Param        date_to        query     string  false  "YYYY-MM-DD"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Success      200            {object}  response.Response{data=pagination.Page}
// @Router       /api/commissions/payments [get]
func (h *CommissionHandler) ListPayments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	payments, total, err := h.commissionService.ListPayments(c.Request.Context(), actor, service.CommissionPaymentFilter{
		JournalistID: c.Query("journalist_id"),
		DateFrom:     c.Query("date_from"),
		DateTo:       c.Query("date_to"),
		Page:         p.Page,
		Limit:        p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(payments, total, p)))
}

// GetPayment
// @Summary      Get commission payment
// @Tags         commissions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=model.CommissionPayment}
// @Failure      404  {object}  response.Response
// @Router       /api/commissions/payments/{id} [get]
func (h *CommissionHandler) GetPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	payment, err := h.commissionService.GetPayment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// UpdatePayment
// @Summary      Update commission payment
// @Tags         commissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                                  true  "Payment ID"
// @Param        payload  body      service.UpdateCommissionPaymentRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.CommissionPayment}
// @Failure      400      {object}  response.Response
// @Router       /api/commissions/payments/{id} [put]
func (h *CommissionHandler) UpdatePayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req service.UpdateCommissionPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	payment, err := h.commissionService.UpdatePayment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// DeletePayment
// @Summary      Delete commission payment
// @Tags         commissions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/commissions/payments/{id} [delete]
func (h *CommissionHandler) DeletePayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	if err := h.commissionService.DeletePayment(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Payment deleted successfully"))
}

// GetBalance returns earned, paid and outstanding commission
// @Summary      Commission balance
// @Description  Journalists get their own balance. Admins may pass journalist_id or get the organization total.
// @Tags         commissions
// @Security     BearerAuth
// @Produce      json
// @Param        journalist_id  query     string  false  "Admin only"
// @Success      200            {object}  response.Response{data=model.CommissionBalance}
// @Router       /api/commissions/balance [get]
func (h *CommissionHandler) GetBalance(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	balance, err := h.commissionService.Balance(c.Request.Context(), actor, c.Query("journalist_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// GetSummary
// @Summary      Commission summary per journalist
// @Tags         commissions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.CommissionSummary}
// @Router       /api/commissions/summary [get]
func (h *CommissionHandler) GetSummary(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	summary, err := h.commissionService.Summary(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
