package pdf

import (
	"bytes"
	"testing"
	"time"

	"salesdesk/internal/model"

	"github.com/shopspring/decimal"
)

func TestRenderInvoiceProducesPDF(t *testing.T) {
	inv := &model.Invoice{
		InvoiceNumber:  "INV-2024-001",
		ClientName:     "Acme Media",
		ClientPhone:    "+263 77 000 0000",
		ClientAddress:  "12 Main Street\nHarare",
		JournalistName: "Jane Reporter",
		Amount:         decimal.RequireFromString("100.00"),
		PaymentMethod:  model.PaymentEcocash,
		PaymentDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		AdType:         model.AdRadio,
		Description:    "Morning slot, two weeks",
		GeneratedAt:    time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := RenderInvoice(&buf, inv, Organization{Name: "Media Sales Desk", Email: "sales@example.com"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:16])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdefghijkl", 8); got != "abcde..." {
		t.Fatalf("got %q", got)
	}
}
