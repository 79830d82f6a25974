package repository

import (
	"context"
	"strings"
	"time"

	"salesdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleListFilter narrows sale listings and exports. Limit <= 0 returns every row.
type SaleListFilter struct {
	Status       string
	JournalistID *uuid.UUID
	ClientID     *uuid.UUID
	DateFrom     *time.Time // payment_date lower bound, inclusive
	DateTo       *time.Time // payment_date upper bound, inclusive
	Search       string     // client name or description
	Page         int
	Limit        int
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, filter SaleListFilter) ([]model.Sale, int64, error)
	UpdatePending(ctx context.Context, sale *model.Sale) (bool, error)
	Transition(ctx context.Context, id uuid.UUID, from string, updates map[string]interface{}) (bool, error)
	DeletePending(ctx context.Context, id uuid.UUID) (bool, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	CountByJournalist(ctx context.Context, journalistID uuid.UUID) (int64, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit("Client", "Journalist", "Approver").Create(sale).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	db := lockForUpdate(ctx, GetDB(ctx, r.db))
	if err := db.First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).
		Preload("Client").Preload("Journalist").Preload("Approver").
		First(&sale, "sales.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) applyFilter(query *gorm.DB, filter SaleListFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("sales.status = ?", filter.Status)
	}
	if filter.JournalistID != nil {
		query = query.Where("sales.journalist_id = ?", *filter.JournalistID)
	}
	if filter.ClientID != nil {
		query = query.Where("sales.client_id = ?", *filter.ClientID)
	}
	if filter.DateFrom != nil {
		query = query.Where("sales.payment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("sales.payment_date <= ?", *filter.DateTo)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := containsPattern(s)
		query = query.Joins("JOIN clients ON clients.id = sales.client_id").
			Where("LOWER(clients.name) LIKE ? "+likeEscape+" OR LOWER(sales.description) LIKE ? "+likeEscape, like, like)
	}
	return query
}

func (r *saleRepository) List(ctx context.Context, filter SaleListFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db)
	if err := r.applyFilter(db.Model(&model.Sale{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := r.applyFilter(db.Model(&model.Sale{}), filter).
		Preload("Client").Preload("Journalist").Preload("Approver").
		Order("sales.payment_date desc, sales.created_at desc")
	if filter.Limit > 0 {
		fetch = fetch.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
	}
	if err := fetch.Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

// UpdatePending writes the editable fields only while the row is still pending.
// It returns false when the row has already left the pending state.
func (r *saleRepository) UpdatePending(ctx context.Context, sale *model.Sale) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Sale{}).
		Where("id = ? AND status = ?", sale.ID, model.SaleStatusPending).
		Updates(map[string]interface{}{
			"client_id":         sale.ClientID,
			"amount":            sale.Amount,
			"payment_method":    sale.PaymentMethod,
			"payment_date":      sale.PaymentDate,
			"ad_type":           sale.AdType,
			"description":       sale.Description,
			"proof_of_payment":  sale.ProofOfPayment,
			"commission_rate":   sale.CommissionRate,
			"commission_amount": sale.CommissionAmount,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Transition applies updates only if the sale is still in the from state.
func (r *saleRepository) Transition(ctx context.Context, id uuid.UUID, from string, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = time.Now()
	res := GetDB(ctx, r.db).Model(&model.Sale{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *saleRepository) DeletePending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Where("id = ? AND status = ?", id, model.SaleStatusPending).Delete(&model.Sale{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *saleRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Sale{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}

func (r *saleRepository) CountByJournalist(ctx context.Context, journalistID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Sale{}).Where("journalist_id = ?", journalistID).Count(&count).Error
	return count, err
}
