package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"

	"github.com/xuri/excelize/v2"
)

func TestExportSalesCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, `Smith, "Big" Co`)

	sale, err := env.sales.CreateSale(ctx, j, CreateSaleRequest{
		ClientID:      c.ID.String(),
		Amount:        "100",
		PaymentMethod: model.PaymentCash,
		PaymentDate:   "2024-01-15",
		AdType:        model.AdPrint,
		Description:   "line one\nline two",
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.approve(t, sale)
	env.sale(t, j, c, "40", "2024-01-16")

	var buf bytes.Buffer
	assertKind(t, env.exports.WriteSalesCSV(ctx, j, SaleFilter{}, &buf), apperror.KindForbidden)

	buf.Reset()
	if err := env.exports.WriteSalesCSV(ctx, env.admin, SaleFilter{Status: model.SaleStatusApproved}, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), `"Smith, ""Big"" Co"`) {
		t.Fatalf("client name not quoted:\n%s", buf.String())
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(SalesExportHeader, ",") {
		t.Fatalf("header = %v", records[0])
	}
	row := records[1]
	if row[0] != sale.ID.String() || row[1] != "2024-01-15" || row[2] != `Smith, "Big" Co` || row[6] != "100.00" || row[8] != "10.00" || row[10] != "line one\nline two" {
		t.Fatalf("row = %q", row)
	}
	if row[9] != model.SaleStatusApproved || row[11] == "" {
		t.Fatalf("status/approved_at = %q/%q", row[9], row[11])
	}

	assertKind(t, env.exports.WriteSalesCSV(ctx, env.admin, SaleFilter{Status: "archived"}, &buf), apperror.KindValidation)
}

func TestExportSalesXLSX(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")
	env.sale(t, j, c, "12.5", "2024-02-01")
	env.sale(t, j, c, "30", "2024-02-02")

	var buf bytes.Buffer
	if err := env.exports.WriteSalesXLSX(ctx, env.admin, SaleFilter{}, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sales")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "Sale ID" || rows[1][1] != "2024-02-02" || rows[2][6] != "12.50" {
		t.Fatalf("unexpected content: %v", rows)
	}
}
