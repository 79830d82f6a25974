package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/xuri/excelize/v2"
)

// SalesExportHeader is the column order of every sales export.
var SalesExportHeader = []string{
	"Sale ID", "Date", "Client", "Journalist", "Ad Type", "Payment Method",
	"Amount", "Commission Rate", "Commission Amount", "Status", "Description", "Approved At",
}

type ExportService interface {
	WriteSalesCSV(ctx context.Context, actor model.Actor, filter SaleFilter, w io.Writer) error
	WriteSalesXLSX(ctx context.Context, actor model.Actor, filter SaleFilter, w io.Writer) error
}

type exportService struct {
	saleRepo repository.SaleRepository
}

func NewExportService(saleRepo repository.SaleRepository) ExportService {
	return &exportService{saleRepo: saleRepo}
}

// rows loads every sale matching filter, flattened in export column order.
func (s *exportService) rows(ctx context.Context, actor model.Actor, filter SaleFilter) ([][]string, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	filter.Page, filter.Limit = 1, 0
	repoFilter, err := toRepoFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	sales, _, err := s.saleRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, apperror.FromDB(err, "sale")
	}

	rows := make([][]string, 0, len(sales))
	for i := range sales {
		rows = append(rows, saleRow(&sales[i]))
	}
	return rows, nil
}

func saleRow(sale *model.Sale) []string {
	client, journalist, approvedAt := "", "", ""
	if sale.Client != nil {
		client = sale.Client.Name
	}
	if sale.Journalist != nil {
		journalist = sale.Journalist.Name
	}
	if sale.ApprovedAt != nil && sale.Status == model.SaleStatusApproved {
		approvedAt = sale.ApprovedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		sale.ID.String(),
		sale.PaymentDate.Format(dateLayout),
		client,
		journalist,
		sale.AdType,
		sale.PaymentMethod,
		sale.Amount.StringFixed(2),
		sale.CommissionRate.StringFixed(2),
		sale.CommissionAmount.StringFixed(2),
		sale.Status,
		sale.Description,
		approvedAt,
	}
}

// WriteSalesCSV writes RFC 4180 CSV: fields with commas, quotes or newlines
// are wrapped in double quotes and inner quotes are doubled.
func (s *exportService) WriteSalesCSV(ctx context.Context, actor model.Actor, filter SaleFilter, w io.Writer) error {
	rows, err := s.rows(ctx, actor, filter)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(SalesExportHeader); err != nil {
		return apperror.Internal("failed to write export", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return apperror.Internal("failed to write export", err)
	}
	return nil
}

func (s *exportService) WriteSalesXLSX(ctx context.Context, actor model.Actor, filter SaleFilter, w io.Writer) error {
	rows, err := s.rows(ctx, actor, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Sales"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return apperror.Internal("failed to create worksheet", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := write(1, SalesExportHeader); err != nil {
		return apperror.Internal("failed to write export", err)
	}
	for i, r := range rows {
		if err := write(i+2, r); err != nil {
			return apperror.Internal("failed to write export", err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "J", 16)
	_ = f.SetColWidth(sheet, "K", "K", 40)
	_ = f.SetColWidth(sheet, "L", "L", 22)
	if err := f.AutoFilter(sheet, fmt.Sprintf("A1:L%d", len(rows)+1), nil); err != nil {
		return apperror.Internal("failed to write export", err)
	}

	if err := f.Write(w); err != nil {
		return apperror.Internal("failed to write export", err)
	}
	return nil
}
