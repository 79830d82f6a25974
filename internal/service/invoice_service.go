package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/pdf"
	"salesdesk/internal/repository"
	"salesdesk/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type GenerateInvoiceRequest struct {
	SaleID string `json:"sale_id" binding:"required"`
}

type InvoiceFilter struct {
	InvoiceNumber string // partial match on invoice_number
	Page          int
	Limit         int
}

// --- Interface ---

type InvoiceService interface {
	GenerateInvoice(ctx context.Context, actor model.Actor, saleID string) (*model.Invoice, error)
	GetInvoice(ctx context.Context, actor model.Actor, id string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, actor model.Actor, filter InvoiceFilter) ([]model.Invoice, int64, error)
	DeleteInvoice(ctx context.Context, actor model.Actor, id string) error
	OpenPDF(ctx context.Context, actor model.Actor, id string) (*os.File, string, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	saleRepo    repository.SaleRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	settings    SettingService
	store       *storage.Store
	hub         EventPublisher
	now         func() time.Time
}

// maxNumberAttempts bounds retries when a concurrent request takes the same invoice number.
const maxNumberAttempts = 5

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	saleRepo repository.SaleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	settings SettingService,
	store *storage.Store,
	hub EventPublisher,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		saleRepo:    saleRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		settings:    settings,
		store:       store,
		hub:         publisherOrNoop(hub),
		now:         time.Now,
	}
}

// NextInvoiceNumber returns the number following last within prefix and year.
// last may be empty or belong to another year, in which case the sequence starts at 1.
func NextInvoiceNumber(prefix string, year int, last string) string {
	base := fmt.Sprintf("%s-%d-", prefix, year)
	seq := 0
	if strings.HasPrefix(last, base) {
		if n, err := strconv.Atoi(strings.TrimPrefix(last, base)); err == nil && n > 0 {
			seq = n
		}
	}
	return fmt.Sprintf("%s%03d", base, seq+1)
}

func invoicePDFPath(number string) string {
	return storage.InvoicesDir + "/" + number + ".pdf"
}

// --- Implementation ---

func (s *invoiceService) GenerateInvoice(ctx context.Context, actor model.Actor, saleID string) (*model.Invoice, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	sid, err := parseID(saleID, "sale_id")
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		invoice, err := s.tryGenerate(ctx, actor, sid)
		if err == nil {
			s.hub.Publish(EventInvoiceGenerated, invoiceOwner(invoice), invoice)
			return invoice, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// either the number was taken or another request invoiced this sale first
		exists, existsErr := s.invoiceRepo.ExistsForSale(ctx, sid)
		if existsErr != nil {
			return nil, apperror.FromDB(existsErr, "invoice")
		}
		if exists {
			return nil, apperror.Conflict("an invoice already exists for this sale")
		}
		log.Printf("invoice number collision for sale %s (attempt %d), retrying", sid, attempt)
	}
	return nil, apperror.Conflict("could not allocate an invoice number, please retry")
}

// tryGenerate performs one numbering attempt. Any failure rolls back the row
// and removes the PDF written during the attempt.
func (s *invoiceService) tryGenerate(ctx context.Context, actor model.Actor, sid uuid.UUID) (invoice *model.Invoice, err error) {
	var written string
	defer func() {
		if err != nil && written != "" {
			if rmErr := s.store.Remove(written); rmErr != nil {
				log.Printf("failed to remove invoice file %s: %v", written, rmErr)
			}
		}
	}()

	org := s.settings.Organization(ctx)
	prefix := s.settings.InvoicePrefix(ctx)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.saleRepo.FindByIDForUpdate(txCtx, sid)
		if err != nil {
			return apperror.FromDB(err, "sale")
		}
		if locked.Status != model.SaleStatusApproved {
			return apperror.InvalidState("only approved sales can be invoiced; sale is %s", locked.Status)
		}
		exists, err := s.invoiceRepo.ExistsForSale(txCtx, sid)
		if err != nil {
			return apperror.FromDB(err, "invoice")
		}
		if exists {
			return apperror.Conflict("an invoice already exists for this sale")
		}

		sale, err := s.saleRepo.FindByIDWithRelations(txCtx, sid)
		if err != nil {
			return apperror.FromDB(err, "sale")
		}

		now := s.now().UTC()
		last, err := s.invoiceRepo.LastNumberWithPrefix(txCtx, fmt.Sprintf("%s-%d-", prefix, now.Year()))
		if err != nil {
			return apperror.FromDB(err, "invoice")
		}

		generator := actor.ID
		invoice = snapshotInvoice(sale)
		invoice.InvoiceNumber = NextInvoiceNumber(prefix, now.Year(), last)
		invoice.GeneratedBy = &generator
		invoice.GeneratedAt = now

		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			return apperror.FromDB(err, "invoice")
		}
		invoice.Sale = sale

		rel := invoicePDFPath(invoice.InvoiceNumber)
		if err := s.store.Write(rel, func(w io.Writer) error {
			return pdf.RenderInvoice(w, invoice, org)
		}); err != nil {
			return apperror.Internal("failed to render invoice PDF", err)
		}
		written = rel

		if err := s.invoiceRepo.UpdatePDFPath(txCtx, invoice.ID, rel); err != nil {
			return apperror.FromDB(err, "invoice")
		}
		invoice.PDFPath = rel

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionGenerateInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"sale_id": sid,
			"amount":  invoice.Amount.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// invoiceOwner is the journalist whose sale the invoice bills.
func invoiceOwner(inv *model.Invoice) uuid.UUID {
	if inv.Sale == nil {
		return uuid.Nil
	}
	return inv.Sale.JournalistID
}

// snapshotInvoice copies the sale, client and journalist fields an invoice freezes.
func snapshotInvoice(sale *model.Sale) *model.Invoice {
	inv := &model.Invoice{
		SaleID:        sale.ID,
		Amount:        sale.Amount,
		PaymentMethod: sale.PaymentMethod,
		PaymentDate:   sale.PaymentDate,
		AdType:        sale.AdType,
		Description:   sale.Description,
	}
	if sale.Client != nil {
		inv.ClientName = sale.Client.Name
		inv.ClientPhone = sale.Client.Phone
		inv.ClientEmail = sale.Client.Email
		inv.ClientAddress = sale.Client.Address
	}
	if sale.Journalist != nil {
		inv.JournalistName = sale.Journalist.Name
	}
	return inv
}

// loadAccessible fetches an invoice the actor may see: admins see all,
// journalists only invoices of their own sales.
func (s *invoiceService) loadAccessible(ctx context.Context, actor model.Actor, id string) (*model.Invoice, error) {
	iid, err := parseID(id, "invoice id")
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, iid)
	if err != nil {
		return nil, apperror.FromDB(err, "invoice")
	}
	if actor.Role.IsAdmin() {
		return invoice, nil
	}
	if invoice.Sale == nil || !actor.CanActOn(invoice.Sale.JournalistID) {
		return nil, apperror.Forbidden("you do not have access to this invoice")
	}
	return invoice, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, actor model.Actor, id string) (*model.Invoice, error) {
	return s.loadAccessible(ctx, actor, id)
}

func (s *invoiceService) ListInvoices(ctx context.Context, actor model.Actor, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)
	repoFilter := repository.InvoiceListFilter{InvoiceNumber: filter.InvoiceNumber, Page: page, Limit: limit}

	switch actor.Role {
	case model.RoleJournalist:
		id := actor.ID
		repoFilter.JournalistID = &id
	case model.RoleAdmin:
	default:
		return nil, 0, apperror.Forbidden("unknown role")
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperror.FromDB(err, "invoice")
	}
	return invoices, total, nil
}

// DeleteInvoice removes the row and then its PDF. Admin only.
func (s *invoiceService) DeleteInvoice(ctx context.Context, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	iid, err := parseID(id, "invoice id")
	if err != nil {
		return err
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err = s.invoiceRepo.FindByID(txCtx, iid)
		if err != nil {
			return apperror.FromDB(err, "invoice")
		}
		if err := s.invoiceRepo.Delete(txCtx, iid); err != nil {
			return apperror.FromDB(err, "invoice")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteInvoice, iid.String(), invoice.InvoiceNumber, map[string]interface{}{
			"sale_id": invoice.SaleID,
		})
	})
	if err != nil {
		return err
	}

	if invoice.PDFPath != "" {
		if err := s.store.Remove(invoice.PDFPath); err != nil {
			log.Printf("failed to remove invoice file %s: %v", invoice.PDFPath, err)
		}
	}
	s.hub.Publish(EventInvoiceDeleted, invoiceOwner(invoice), map[string]interface{}{"id": iid, "invoice_number": invoice.InvoiceNumber})
	return nil
}

// OpenPDF returns the invoice artifact and its download name, re-rendering it
// from the stored snapshot when the file is missing.
func (s *invoiceService) OpenPDF(ctx context.Context, actor model.Actor, id string) (*os.File, string, error) {
	invoice, err := s.loadAccessible(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	filename := invoice.InvoiceNumber + ".pdf"

	rel := invoice.PDFPath
	if rel == "" || !s.store.Exists(rel) {
		rel = invoicePDFPath(invoice.InvoiceNumber)
		org := s.settings.Organization(ctx)
		if err := s.store.Write(rel, func(w io.Writer) error {
			return pdf.RenderInvoice(w, invoice, org)
		}); err != nil {
			return nil, "", apperror.Internal("failed to render invoice PDF", err)
		}
		if rel != invoice.PDFPath {
			if err := s.invoiceRepo.UpdatePDFPath(ctx, invoice.ID, rel); err != nil {
				return nil, "", apperror.FromDB(err, "invoice")
			}
		}
	}

	f, err := s.store.Open(rel)
	if err != nil {
		return nil, "", apperror.Internal("failed to open invoice PDF", err)
	}
	return f, filename, nil
}
