package repository

import (
	"context"
	"errors"
	"strings"

	"salesdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceListFilter struct {
	JournalistID  *uuid.UUID // restrict to invoices of this journalist's sales
	InvoiceNumber string     // partial match
	Page          int
	Limit         int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindBySaleID(ctx context.Context, saleID uuid.UUID) (*model.Invoice, error)
	ExistsForSale(ctx context.Context, saleID uuid.UUID) (bool, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	UpdatePDFPath(ctx context.Context, id uuid.UUID, path string) error
	Delete(ctx context.Context, id uuid.UUID) error
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit("Sale", "Generator").Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Sale").Preload("Generator").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).First(&invoice, "sale_id = ?", saleID).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) ExistsForSale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	_, err := r.FindBySaleID(ctx, saleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	scoped := func() *gorm.DB {
		q := db.Model(&model.Invoice{})
		if filter.JournalistID != nil {
			q = q.Joins("JOIN sales ON sales.id = invoices.sale_id").
				Where("sales.journalist_id = ?", *filter.JournalistID)
		}
		if s := strings.TrimSpace(filter.InvoiceNumber); s != "" {
			q = q.Where("LOWER(invoices.invoice_number) LIKE ? "+likeEscape, containsPattern(s))
		}
		return q
	}

	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := scoped().Preload("Generator").
		Order("invoices.generated_at desc").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *invoiceRepository) UpdatePDFPath(ctx context.Context, id uuid.UUID, path string) error {
	return GetDB(ctx, r.db).Model(&model.Invoice{}).Where("id = ?", id).UpdateColumn("pdf_path", path).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Invoice{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LastNumberWithPrefix returns the highest invoice number starting with prefix,
// or "" when none exist. Longer numbers sort first so sequences past 999 stay ordered.
func (r *invoiceRepository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("invoice_number LIKE ? "+likeEscape, prefixPattern(prefix)).
		Order("LENGTH(invoice_number) desc").
		Order("invoice_number desc").
		Limit(1).
		Pluck("invoice_number", &numbers).Error; err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}
