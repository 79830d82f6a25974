package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"salesdesk/internal/middleware"
	"salesdesk/internal/service"
	"salesdesk/pkg/pagination"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	exportService service.ExportService
	auth          *middleware.Auth
}

func NewExportHandler(exportService service.ExportService, auth *middleware.Auth) *ExportHandler {
	return &ExportHandler{exportService: exportService, auth: auth}
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/exports")
	group.Use(h.auth.AdminOnly())
	{
		group.GET("/sales.csv", h.ExportSalesCSV)
		group.GET("/sales.xlsx", h.ExportSalesXLSX)
	}
}

// ExportSalesCSV
// @Summary      Export sales as CSV
// @Description  Accepts the same filters as the sales list; returns every matching row.
// @Tags         exports
// @Security     BearerAuth
// @Produce      text/csv
// @Param        status         query     string  false  "pending, approved or rejected"
// @Param        journalist_id  query     string  false  "Journalist ID"
// @Param        client_id      query     string  false  "Client ID"
// @Param        date_from      query     string  false  "YYYY-MM-DD"
// @Param        date_to        query     string  false  "YYYY-MM-DD"
// @Param        search         query     string  false  "Client name or description contains"
// @Success      200            {file}    file
// @Failure      400            {object}  response.Response
// @Router       /api/exports/sales.csv [get]
func (h *ExportHandler) ExportSalesCSV(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.WriteSalesCSV(c.Request.Context(), actor, saleFilterFromQuery(c, pagination.Params{}), &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName("csv")))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportSalesXLSX
// @Summary      Export sales as an Excel workbook
// @Tags         exports
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status         query     string  false  "pending, approved or rejected"
// @Param        journalist_id  query     string  false  "Journalist ID"
// @Param        client_id      query     string  false  "Client ID"
// @Param        date_from      query     string  false  "YYYY-MM-DD"
// @Param        date_to        query     string  false  "YYYY-MM-DD"
// @Param        search         query     string  false  "Client name or description contains"
// @Success      200            {file}    file
// @Failure      400            {object}  response.Response
// @Router       /api/exports/sales.xlsx [get]
func (h *ExportHandler) ExportSalesXLSX(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.WriteSalesXLSX(c.Request.Context(), actor, saleFilterFromQuery(c, pagination.Params{}), &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName("xlsx")))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func exportName(ext string) string {
	return "sales-" + time.Now().UTC().Format("20060102") + "." + ext
}
