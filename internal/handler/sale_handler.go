package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"salesdesk/internal/middleware"
	"salesdesk/internal/service"
	"salesdesk/pkg/pagination"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

const proofField = "proof_of_payment"

// multipartOverhead leaves room for form fields around the uploaded file.
const multipartOverhead = 1 << 20

type SaleHandler struct {
	saleService    service.SaleService
	auth           *middleware.Auth
	maxUploadBytes int64
}

func NewSaleHandler(saleService service.SaleService, auth *middleware.Auth, maxUploadBytes int64) *SaleHandler {
	return &SaleHandler{saleService: saleService, auth: auth, maxUploadBytes: maxUploadBytes}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/api/sales")
	sales.Use(h.auth.Authenticated())
	{
		sales.GET("", h.ListSales)
		sales.POST("", h.CreateSale)
		sales.GET("/:id", h.GetSale)
		sales.PUT("/:id", h.UpdateSale)
		sales.DELETE("/:id", h.DeleteSale)
		sales.GET("/:id/proof", h.DownloadProof)
		sales.PUT("/:id/approve", h.auth.AdminOnly(), h.ApproveSale)
		sales.PUT("/:id/reject", h.auth.AdminOnly(), h.RejectSale)
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// bindSale binds req from a multipart form or a JSON body. The returned
// reader is nil when no proof file was attached; close must always be called.
func (h *SaleHandler) bindSale(c *gin.Context, req interface{}) (io.Reader, func(), error) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, c.ShouldBindJSON(req)
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	if err := c.ShouldBind(req); err != nil {
		return nil, noop, err
	}

	header, err := c.FormFile(proofField)
	if err == http.ErrMissingFile {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, noop, err
	}
	return file, func() { closeFile(file) }, nil
}

func closeFile(f multipart.File) { _ = f.Close() }

// CreateSale logs a new pending sale
// @Summary      Create sale
// @Description  Accepts JSON or multipart/form-data. The optional proof_of_payment file must be JPEG, PNG or PDF.
// @Tags         sales
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        payload           body      service.CreateSaleRequest  false  "Sale (JSON)"
// @Param        proof_of_payment  formData  file                       false  "Proof of payment"
// @Success      201               {object}  response.Response{data=model.Sale}
// @Failure      400               {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.CreateSaleRequest
	proof, closeProof, err := h.bindSale(c, &req)
	defer closeProof()
	if err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	sale, err := h.saleService.CreateSale(c.Request.Context(), actor, req, proof)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// ListSales returns sales newest payment date first
// @Summary      List sales
// @Description  Journalists only see their own sales.
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        status         query     string  false  "pending, approved or rejected"
// @Param        journalist_id  query     string  false  "Admin only"
// @Param        client_id      query     string  false  "Client ID"
// @Param        date_from      query     string  false  "YYYY-MM-DD"
// @Param        date_to        query     string  false  "YYYY-MM-DD"
// @Param        search         query     string  false  "Client name or description contains"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Success      200            {object}  response.Response{data=pagination.Page}
// @Router       /api/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	sales, total, err := h.saleService.ListSales(c.Request.Context(), actor, saleFilterFromQuery(c, p))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(sales, total, p)))
}

func saleFilterFromQuery(c *gin.Context, p pagination.Params) service.SaleFilter {
	return service.SaleFilter{
		Status:       c.Query("status"),
		JournalistID: c.Query("journalist_id"),
		ClientID:     c.Query("client_id"),
		DateFrom:     c.Query("date_from"),
		DateTo:       c.Query("date_to"),
		Search:       c.Query("search"),
		Page:         p.Page,
		Limit:        p.Limit,
	}
}

// GetSale
// @Summary      Get sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=model.Sale}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// UpdateSale edits a pending sale
// @Summary      Update sale
// @Description  Only pending sales can be edited. A new proof_of_payment replaces the old file.
// @Tags         sales
// @Security     BearerAuth
// @Accept       json,mpfd
// @Produce      json
// @Param        id                path      string                     true   "Sale ID"
// @Param        payload           body      service.UpdateSaleRequest  false  "Fields to change (JSON)"
// @Param        proof_of_payment  formData  file                       false  "Replacement proof"
// @Success      200               {object}  response.Response{data=model.Sale}
// @Failure      400               {object}  response.Response
// @Failure      403               {object}  response.Response
// @Router       /api/sales/{id} [put]
func (h *SaleHandler) UpdateSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.UpdateSaleRequest
	proof, closeProof, err := h.bindSale(c, &req)
	defer closeProof()
	if err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	sale, err := h.saleService.UpdateSale(c.Request.Context(), actor, c.Param("id"), req, proof)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// ApproveSale moves a pending sale to approved
// @Summary      Approve sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=model.Sale}
// @Failure      400  {object}  response.Response
// @Router       /api/sales/{id}/approve [put]
func (h *SaleHandler) ApproveSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	sale, err := h.saleService.ApproveSale(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// RejectSale moves a pending sale to rejected with a reason
// @Summary      Reject sale
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Sale ID"
// @Param        payload  body      service.RejectSaleRequest  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=model.Sale}
// @Failure      400      {object}  response.Response
// @Router       /api/sales/{id}/reject [put]
func (h *SaleHandler) RejectSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req service.RejectSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	sale, err := h.saleService.RejectSale(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// DeleteSale removes a pending sale
// @Summary      Delete sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) DeleteSale(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	if err := h.saleService.DeleteSale(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Sale deleted successfully"))
}

// DownloadProof streams the stored proof of payment
// @Summary      Download proof of payment
// @Tags         sales
// @Security     BearerAuth
// @Produce      octet-stream
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {file}    file
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id}/proof [get]
func (h *SaleHandler) DownloadProof(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	f, name, err := h.saleService.OpenProof(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	serveFile(c, f, name, "inline")
}
