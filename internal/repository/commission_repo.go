package repository

import (
	"context"
	"time"

	"salesdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionPaymentFilter struct {
	JournalistID *uuid.UUID
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	Limit        int
}

type CommissionRepository interface {
	Create(ctx context.Context, payment *model.CommissionPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CommissionPayment, error)
	List(ctx context.Context, filter CommissionPaymentFilter) ([]model.CommissionPayment, int64, error)
	Update(ctx context.Context, payment *model.CommissionPayment) error
	Delete(ctx context.Context, id uuid.UUID) error
	SumEarned(ctx context.Context, journalistID *uuid.UUID) (decimal.Decimal, error)
	SumPaid(ctx context.Context, journalistID *uuid.UUID) (decimal.Decimal, error)
	Balances(ctx context.Context) ([]model.CommissionBalance, error)
}

type commissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

func (r *commissionRepository) Create(ctx context.Context, payment *model.CommissionPayment) error {
	return GetDB(ctx, r.db).Omit("Journalist", "Payer").Create(payment).Error
}

func (r *commissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CommissionPayment, error) {
	var payment model.CommissionPayment
	if err := GetDB(ctx, r.db).Preload("Journalist").Preload("Payer").First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *commissionRepository) List(ctx context.Context, filter CommissionPaymentFilter) ([]model.CommissionPayment, int64, error) {
	var payments []model.CommissionPayment
	var total int64

	query := GetDB(ctx, r.db).Model(&model.CommissionPayment{})
	if filter.JournalistID != nil {
		query = query.Where("journalist_id = ?", *filter.JournalistID)
	}
	if filter.DateFrom != nil {
		query = query.Where("payment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("payment_date <= ?", *filter.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Journalist").Preload("Payer").
		Order("payment_date desc, created_at desc").
		Offset(offset).Limit(filter.Limit).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *commissionRepository) Update(ctx context.Context, payment *model.CommissionPayment) error {
	return GetDB(ctx, r.db).Omit("Journalist", "Payer").Save(payment).Error
}

func (r *commissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.CommissionPayment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SumEarned totals commission over approved sales; nil journalistID sums
// every user with the journalist role.
func (r *commissionRepository) SumEarned(ctx context.Context, journalistID *uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	query := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("COALESCE(SUM(sales.commission_amount), 0) AS total").
		Where("sales.status = ?", model.SaleStatusApproved)
	if journalistID != nil {
		query = query.Where("sales.journalist_id = ?", *journalistID)
	} else {
		query = query.Joins("JOIN users ON users.id = sales.journalist_id").
			Where("users.role = ?", model.RoleJournalist)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total.Round(2), nil
}

// SumPaid totals commission payments; nil journalistID sums every user with
// the journalist role.
func (r *commissionRepository) SumPaid(ctx context.Context, journalistID *uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	query := GetDB(ctx, r.db).Model(&model.CommissionPayment{}).
		Select("COALESCE(SUM(commission_payments.amount), 0) AS total")
	if journalistID != nil {
		query = query.Where("commission_payments.journalist_id = ?", *journalistID)
	} else {
		query = query.Joins("JOIN users ON users.id = commission_payments.journalist_id").
			Where("users.role = ?", model.RoleJournalist)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total.Round(2), nil
}

// Balances returns earned and paid totals for every journalist with at least one approved sale.
func (r *commissionRepository) Balances(ctx context.Context) ([]model.CommissionBalance, error) {
	type row struct {
		JournalistID   string          `gorm:"column:journalist_id"`
		JournalistName string          `gorm:"column:journalist_name"`
		Earned         decimal.Decimal `gorm:"column:earned"`
		Paid           decimal.Decimal `gorm:"column:paid"`
	}
	var rows []row
	err := GetDB(ctx, r.db).Raw(`
		SELECT u.id AS journalist_id, u.name AS journalist_name,
			COALESCE(e.earned, 0) AS earned,
			COALESCE(p.paid, 0) AS paid
		FROM users u
		JOIN (
			SELECT journalist_id, SUM(commission_amount) AS earned
			FROM sales WHERE status = ?
			GROUP BY journalist_id
		) e ON e.journalist_id = u.id
		LEFT JOIN (
			SELECT journalist_id, SUM(amount) AS paid
			FROM commission_payments
			GROUP BY journalist_id
		) p ON p.journalist_id = u.id
		WHERE u.role = ?
		ORDER BY u.name
	`, model.SaleStatusApproved, model.RoleJournalist).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	balances := make([]model.CommissionBalance, 0, len(rows))
	for _, r := range rows {
		earned := r.Earned.Round(2)
		paid := r.Paid.Round(2)
		balances = append(balances, model.CommissionBalance{
			JournalistID:   r.JournalistID,
			JournalistName: r.JournalistName,
			Earned:         earned,
			Paid:           paid,
			Balance:        earned.Sub(paid),
		})
	}
	return balances, nil
}
