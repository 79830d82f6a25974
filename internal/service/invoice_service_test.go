package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"
	"salesdesk/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestNextInvoiceNumber(t *testing.T) {
	tests := []struct {
		prefix string
		year   int
		last   string
		want   string
	}{
		{"INV", 2024, "", "INV-2024-001"},
		{"INV", 2024, "INV-2024-001", "INV-2024-002"},
		{"INV", 2024, "INV-2024-099", "INV-2024-100"},
		{"INV", 2024, "INV-2024-999", "INV-2024-1000"},
		{"INV", 2025, "INV-2024-017", "INV-2025-001"},
		{"ADV", 2024, "INV-2024-005", "ADV-2024-001"},
		{"INV", 2024, "INV-2024-abc", "INV-2024-001"},
	}
	for _, tt := range tests {
		if got := NextInvoiceNumber(tt.prefix, tt.year, tt.last); got != tt.want {
			t.Errorf("NextInvoiceNumber(%q, %d, %q) = %q, want %q", tt.prefix, tt.year, tt.last, got, tt.want)
		}
	}
}

func fixedInvoiceClock(env *testEnv, at time.Time) {
	env.invoices.(*invoiceService).now = func() time.Time { return at }
}

func TestGenerateInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fixedInvoiceClock(env, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme Motors")
	first := env.approve(t, env.sale(t, j, c, "500", "2024-03-01"))
	second := env.approve(t, env.sale(t, j, c, "120.50", "2024-03-02"))

	inv, err := env.invoices.GenerateInvoice(ctx, env.admin, first.ID.String())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inv.InvoiceNumber != "INV-2024-001" {
		t.Fatalf("number = %q, want INV-2024-001", inv.InvoiceNumber)
	}
	if inv.ClientName != "Acme Motors" || inv.JournalistName != "Jane" || inv.Amount.StringFixed(2) != "500.00" {
		t.Fatalf("snapshot = %+v", inv)
	}
	if inv.PDFPath == "" || !env.store.Exists(inv.PDFPath) {
		t.Fatalf("pdf not written: %q", inv.PDFPath)
	}
	if last := env.events.events[len(env.events.events)-1]; last.Type != EventInvoiceGenerated || last.Owner != j.ID {
		t.Fatalf("last event = %s for %s, want %s for %s", last.Type, last.Owner, EventInvoiceGenerated, j.ID)
	}

	_, err = env.invoices.GenerateInvoice(ctx, env.admin, first.ID.String())
	assertKind(t, err, apperror.KindConflict)

	next, err := env.invoices.GenerateInvoice(ctx, env.admin, second.ID.String())
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}
	if next.InvoiceNumber != "INV-2024-002" {
		t.Fatalf("number = %q, want INV-2024-002", next.InvoiceNumber)
	}

	var rows int64
	env.db.Model(&model.Invoice{}).Where("sale_id = ?", first.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("invoices for first sale = %d, want 1", rows)
	}
	if n, _ := env.store.Count(storage.InvoicesDir); n != 2 {
		t.Fatalf("pdf files = %d, want 2", n)
	}
}

func TestGenerateInvoiceRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	pending := env.sale(t, j, c, "80", "2024-03-01")
	_, err := env.invoices.GenerateInvoice(ctx, env.admin, pending.ID.String())
	assertKind(t, err, apperror.KindInvalidState)

	approved := env.approve(t, pending)
	_, err = env.invoices.GenerateInvoice(ctx, j, approved.ID.String())
	assertKind(t, err, apperror.KindForbidden)

	_, err = env.invoices.GenerateInvoice(ctx, env.admin, "not-a-uuid")
	assertKind(t, err, apperror.KindValidation)

	if n, _ := env.store.Count(storage.InvoicesDir); n != 0 {
		t.Fatalf("pdf files = %d, want 0", n)
	}
}

func TestInvoicePrefixAndYearRollover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	if _, err := env.settings.Upsert(ctx, env.admin, UpsertSettingRequest{Key: model.SettingInvoicePrefix, Value: "adv"}); err != nil {
		t.Fatalf("set prefix: %v", err)
	}

	fixedInvoiceClock(env, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	a, err := env.invoices.GenerateInvoice(ctx, env.admin, env.approve(t, env.sale(t, j, c, "10", "2024-12-30")).ID.String())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	fixedInvoiceClock(env, time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))
	b, err := env.invoices.GenerateInvoice(ctx, env.admin, env.approve(t, env.sale(t, j, c, "10", "2025-01-01")).ID.String())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if a.InvoiceNumber != "ADV-2024-001" || b.InvoiceNumber != "ADV-2025-001" {
		t.Fatalf("numbers = %q, %q", a.InvoiceNumber, b.InvoiceNumber)
	}
}

func TestInvoiceVisibilityAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jane := env.journalist(t, "Jane", "jane@example.com")
	john := env.journalist(t, "John", "john@example.com")
	c := env.client(t, jane, "Acme")

	inv, err := env.invoices.GenerateInvoice(ctx, env.admin, env.approve(t, env.sale(t, jane, c, "60", "2024-03-01")).ID.String())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := env.invoices.GetInvoice(ctx, jane, inv.ID.String()); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	_, err = env.invoices.GetInvoice(ctx, john, inv.ID.String())
	assertKind(t, err, apperror.KindForbidden)

	list, total, err := env.invoices.ListInvoices(ctx, john, InvoiceFilter{})
	if err != nil || total != 0 || len(list) != 0 {
		t.Fatalf("other journalist list: total=%d err=%v", total, err)
	}

	// a missing artifact is rendered again on download
	if err := env.store.Remove(inv.PDFPath); err != nil {
		t.Fatalf("remove pdf: %v", err)
	}
	f, name, err := env.invoices.OpenPDF(ctx, jane, inv.ID.String())
	if err != nil {
		t.Fatalf("open pdf: %v", err)
	}
	f.Close()
	if name != inv.InvoiceNumber+".pdf" {
		t.Fatalf("download name = %q", name)
	}

	assertKind(t, env.invoices.DeleteInvoice(ctx, jane, inv.ID.String()), apperror.KindForbidden)
	if err := env.invoices.DeleteInvoice(ctx, env.admin, inv.ID.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := env.store.Count(storage.InvoicesDir); n != 0 {
		t.Fatalf("pdf files after delete = %d, want 0", n)
	}
}

// contendedInvoiceRepo simulates concurrent generators racing for the same
// invoice number or the same sale.
type contendedInvoiceRepo struct {
	repository.InvoiceRepository
	collisions  int  // Create calls that fail with a duplicate key
	saleClaimed bool // after a collision, another request owns the sale's invoice
	pdfPathErr  error
	collided    bool
}

func (r *contendedInvoiceRepo) Create(ctx context.Context, invoice *model.Invoice) error {
	if r.collisions > 0 {
		r.collisions--
		r.collided = true
		return fmt.Errorf("insert invoice: %w", gorm.ErrDuplicatedKey)
	}
	return r.InvoiceRepository.Create(ctx, invoice)
}

func (r *contendedInvoiceRepo) ExistsForSale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	if r.collided && r.saleClaimed {
		return true, nil
	}
	return r.InvoiceRepository.ExistsForSale(ctx, saleID)
}

func (r *contendedInvoiceRepo) UpdatePDFPath(ctx context.Context, id uuid.UUID, path string) error {
	if r.pdfPathErr != nil {
		return r.pdfPathErr
	}
	return r.InvoiceRepository.UpdatePDFPath(ctx, id, path)
}

func (e *testEnv) invoicesWith(repo repository.InvoiceRepository, at time.Time) InvoiceService {
	svc := NewInvoiceService(repo, repository.NewSaleRepository(e.db), repository.NewAuditRepository(e.db),
		repository.NewTransactionManager(e.db), e.settings, e.store, nil)
	svc.(*invoiceService).now = func() time.Time { return at }
	return svc
}

func TestGenerateInvoiceNumberContention(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		repo     func(base repository.InvoiceRepository) *contendedInvoiceRepo
		wantKind apperror.Kind
		wantRows int64 // 1 means the invoice is generated
	}{
		{
			name: "retries after a number collision",
			repo: func(base repository.InvoiceRepository) *contendedInvoiceRepo {
				return &contendedInvoiceRepo{InvoiceRepository: base, collisions: 2}
			},
			wantRows: 1,
		},
		{
			name: "gives up after repeated collisions",
			repo: func(base repository.InvoiceRepository) *contendedInvoiceRepo {
				return &contendedInvoiceRepo{InvoiceRepository: base, collisions: maxNumberAttempts}
			},
			wantKind: apperror.KindConflict,
		},
		{
			name: "sale invoiced by a concurrent request",
			repo: func(base repository.InvoiceRepository) *contendedInvoiceRepo {
				return &contendedInvoiceRepo{InvoiceRepository: base, collisions: 1, saleClaimed: true}
			},
			wantKind: apperror.KindConflict,
		},
		{
			name: "PDF removed when the attempt fails after rendering",
			repo: func(base repository.InvoiceRepository) *contendedInvoiceRepo {
				return &contendedInvoiceRepo{InvoiceRepository: base, pdfPathErr: errors.New("connection reset")}
			},
			wantKind: apperror.KindInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			j := env.journalist(t, "Jane", "jane@example.com")
			sale := env.approve(t, env.sale(t, j, env.client(t, j, "Acme"), "100", "2024-04-30"))

			invoices := env.invoicesWith(tt.repo(repository.NewInvoiceRepository(env.db)), at)
			inv, err := invoices.GenerateInvoice(context.Background(), env.admin, sale.ID.String())
			if tt.wantRows == 1 {
				if err != nil {
					t.Fatalf("generate: %v", err)
				}
				if inv.InvoiceNumber != "INV-2024-001" {
					t.Fatalf("number = %q, want INV-2024-001", inv.InvoiceNumber)
				}
			} else {
				assertKind(t, err, tt.wantKind)
			}

			var rows int64
			if err := env.db.Model(&model.Invoice{}).Count(&rows).Error; err != nil {
				t.Fatalf("count: %v", err)
			}
			if rows != tt.wantRows {
				t.Fatalf("invoice rows = %d, want %d", rows, tt.wantRows)
			}
			if n, _ := env.store.Count(storage.InvoicesDir); int64(n) != tt.wantRows {
				t.Fatalf("invoice PDFs = %d, want %d", n, tt.wantRows)
			}
		})
	}
}
