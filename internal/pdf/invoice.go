// Package pdf renders invoice documents.
package pdf

import (
	"fmt"
	"io"

	"salesdesk/internal/model"

	"github.com/phpdave11/gofpdf"
)

// Organization is the letterhead printed at the top of every invoice.
type Organization struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

const (
	pageWidth = 190.0
	lineH     = 6.0
	currency  = "USD"
)

// RenderInvoice writes the invoice as a single-page A4 PDF.
func RenderInvoice(w io.Writer, inv *model.Invoice, org Organization) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Invoice "+inv.InvoiceNumber, true)
	doc.SetAuthor(org.Name, true)
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(120, 120, 120)
		doc.CellFormat(0, 10, tr(fmt.Sprintf("Thank you for your business. %s", org.Name)), "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	// Letterhead
	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(pageWidth/2, 10, tr(org.Name), "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(pageWidth/2, 10, "INVOICE", "", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, line := range []string{org.Address, org.Phone, org.Email} {
		if line != "" {
			doc.CellFormat(pageWidth, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 10)
	keyValue(doc, tr, "Invoice No:", inv.InvoiceNumber)
	keyValue(doc, tr, "Invoice Date:", inv.GeneratedAt.Format("02 Jan 2006"))
	doc.Ln(4)

	// Bill to
	sectionTitle(doc, "BILL TO")
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(pageWidth, lineH, tr(inv.ClientName), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	if inv.ClientAddress != "" {
		doc.MultiCell(pageWidth, 5, tr(inv.ClientAddress), "", "L", false)
	}
	if inv.ClientPhone != "" {
		keyValue(doc, tr, "Phone:", inv.ClientPhone)
	}
	if inv.ClientEmail != "" {
		keyValue(doc, tr, "Email:", inv.ClientEmail)
	}
	doc.Ln(4)

	// Payment details
	sectionTitle(doc, "PAYMENT DETAILS")
	doc.SetFont("Helvetica", "", 10)
	keyValue(doc, tr, "Payment Method:", inv.PaymentMethod)
	keyValue(doc, tr, "Payment Date:", inv.PaymentDate.Format("02 Jan 2006"))
	keyValue(doc, tr, "Sales Representative:", inv.JournalistName)
	doc.Ln(6)

	// Line items
	cols := []float64{pageWidth * 0.30, pageWidth * 0.50, pageWidth * 0.20}
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(230, 230, 230)
	for i, h := range []string{"Advertisement", "Description", "Amount"} {
		align := "L"
		if i == 2 {
			align = "R"
		}
		doc.CellFormat(cols[i], 8, h, "1", 0, align, true, 0, "")
	}
	doc.Ln(-1)

	description := inv.Description
	if description == "" {
		description = "-"
	}
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(cols[0], 8, tr(inv.AdType), "1", 0, "L", false, 0, "")
	doc.CellFormat(cols[1], 8, tr(truncate(description, 60)), "1", 0, "L", false, 0, "")
	doc.CellFormat(cols[2], 8, money(inv), "1", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(cols[0]+cols[1], 9, "TOTAL", "1", 0, "R", true, 0, "")
	doc.CellFormat(cols[2], 9, money(inv), "1", 1, "R", true, 0, "")

	if doc.Err() {
		return fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, doc.Error())
	}
	return doc.Output(w)
}

func sectionTitle(doc *gofpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 11)
	doc.SetTextColor(60, 60, 60)
	doc.CellFormat(pageWidth, 7, title, "B", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(1)
}

func keyValue(doc *gofpdf.Fpdf, tr func(string) string, key, value string) {
	doc.CellFormat(45, 5, key, "", 0, "L", false, 0, "")
	doc.CellFormat(pageWidth-45, 5, tr(value), "", 1, "L", false, 0, "")
}

func money(inv *model.Invoice) string {
	return currency + " " + inv.Amount.StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
