package repository

import (
	"context"
	"fmt"
	"time"

	"salesdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bucket is the granularity of a revenue trend.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// ParseBucket defaults to day for an empty value.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case "", BucketDay:
		return BucketDay, nil
	case BucketWeek:
		return BucketWeek, nil
	case BucketMonth:
		return BucketMonth, nil
	}
	return "", fmt.Errorf("invalid bucket %q: must be day, week or month", s)
}

// Breakdown dimensions allowed in GROUP BY.
const (
	DimensionAdType        = "ad_type"
	DimensionPaymentMethod = "payment_method"
)

// AnalyticsScope restricts aggregates to one journalist; nil means organization-wide.
type AnalyticsScope struct {
	JournalistID *uuid.UUID
}

type ApprovedTotals struct {
	Count      int64
	Revenue    decimal.Decimal
	Commission decimal.Decimal
}

type AnalyticsRepository interface {
	StatusCounts(ctx context.Context, scope AnalyticsScope) (map[string]int64, error)
	ApprovedTotals(ctx context.Context, scope AnalyticsScope) (ApprovedTotals, error)
	ClientCount(ctx context.Context, scope AnalyticsScope) (int64, error)
	Trend(ctx context.Context, scope AnalyticsScope, bucket Bucket, since time.Time) ([]model.TrendPoint, error)
	Breakdown(ctx context.Context, scope AnalyticsScope, dimension string) ([]model.CategoryTotal, error)
	Leaderboard(ctx context.Context, limit int) ([]model.JournalistRanking, error)
	TopClients(ctx context.Context, limit int) ([]model.ClientRanking, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) sales(ctx context.Context, scope AnalyticsScope) *gorm.DB {
	q := GetDB(ctx, r.db).Table("sales")
	if scope.JournalistID != nil {
		q = q.Where("sales.journalist_id = ?", *scope.JournalistID)
	}
	return q
}

func (r *analyticsRepository) StatusCounts(ctx context.Context, scope AnalyticsScope) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.sales(ctx, scope).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count sales by status: %w", err)
	}

	counts := map[string]int64{
		model.SaleStatusPending:  0,
		model.SaleStatusApproved: 0,
		model.SaleStatusRejected: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *analyticsRepository) ApprovedTotals(ctx context.Context, scope AnalyticsScope) (ApprovedTotals, error) {
	var result struct {
		Count      int64
		Revenue    decimal.Decimal
		Commission decimal.Decimal
	}
	if err := r.sales(ctx, scope).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS revenue, COALESCE(SUM(commission_amount), 0) AS commission").
		Where("status = ?", model.SaleStatusApproved).
		Scan(&result).Error; err != nil {
		return ApprovedTotals{}, fmt.Errorf("failed to total approved sales: %w", err)
	}
	return ApprovedTotals{
		Count:      result.Count,
		Revenue:    result.Revenue.Round(2),
		Commission: result.Commission.Round(2),
	}, nil
}

// ClientCount counts all clients, or for a journalist the clients they created
// or sold to.
func (r *analyticsRepository) ClientCount(ctx context.Context, scope AnalyticsScope) (int64, error) {
	var count int64
	q := GetDB(ctx, r.db).Model(&model.Client{})
	if scope.JournalistID != nil {
		q = q.Where("created_by = ? OR id IN (?)", *scope.JournalistID,
			GetDB(ctx, r.db).Table("sales").Select("client_id").Where("journalist_id = ?", *scope.JournalistID))
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}

// bucketExpr returns a SQL expression yielding the bucket start as YYYY-MM-DD.
// Weeks start on Monday in both dialects.
func bucketExpr(db *gorm.DB, bucket Bucket) string {
	if isSQLite(db) {
		switch bucket {
		case BucketWeek:
			return "date(substr(sales.payment_date, 1, 10), 'weekday 0', '-6 days')"
		case BucketMonth:
			return "substr(sales.payment_date, 1, 7) || '-01'"
		case BucketDay:
			return "substr(sales.payment_date, 1, 10)"
		}
		return "substr(sales.payment_date, 1, 10)"
	}
	switch bucket {
	case BucketWeek:
		return "TO_CHAR(DATE_TRUNC('week', sales.payment_date), 'YYYY-MM-DD')"
	case BucketMonth:
		return "TO_CHAR(DATE_TRUNC('month', sales.payment_date), 'YYYY-MM-DD')"
	case BucketDay:
		return "TO_CHAR(sales.payment_date, 'YYYY-MM-DD')"
	}
	return "TO_CHAR(sales.payment_date, 'YYYY-MM-DD')"
}

// Trend groups approved sales on or after since into buckets, most recent first.
func (r *analyticsRepository) Trend(ctx context.Context, scope AnalyticsScope, bucket Bucket, since time.Time) ([]model.TrendPoint, error) {
	q := r.sales(ctx, scope)
	expr := bucketExpr(q, bucket)

	var points []model.TrendPoint
	if err := q.
		Select(expr+" AS period, COUNT(*) AS sales_count, COALESCE(SUM(amount), 0) AS revenue, COALESCE(SUM(commission_amount), 0) AS commission").
		Where("status = ? AND payment_date >= ?", model.SaleStatusApproved, since).
		Group("period").
		Order("period DESC").
		Scan(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to query revenue trend: %w", err)
	}
	for i := range points {
		points[i].Revenue = points[i].Revenue.Round(2)
		points[i].Commission = points[i].Commission.Round(2)
	}
	return points, nil
}

func (r *analyticsRepository) Breakdown(ctx context.Context, scope AnalyticsScope, dimension string) ([]model.CategoryTotal, error) {
	switch dimension {
	case DimensionAdType, DimensionPaymentMethod:
	default:
		return nil, fmt.Errorf("unsupported breakdown dimension %q", dimension)
	}

	var totals []model.CategoryTotal
	if err := r.sales(ctx, scope).
		Select(dimension+" AS category, COUNT(*) AS sales_count, COALESCE(SUM(amount), 0) AS revenue").
		Where("status = ?", model.SaleStatusApproved).
		Group(dimension).
		Order("revenue DESC").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s breakdown: %w", dimension, err)
	}
	for i := range totals {
		totals[i].Revenue = totals[i].Revenue.Round(2)
	}
	return totals, nil
}

func (r *analyticsRepository) Leaderboard(ctx context.Context, limit int) ([]model.JournalistRanking, error) {
	var rankings []model.JournalistRanking
	q := GetDB(ctx, r.db).Table("sales").
		Select("users.id AS journalist_id, users.name AS journalist_name, COUNT(sales.id) AS sales_count, COALESCE(SUM(sales.amount), 0) AS revenue, COALESCE(SUM(sales.commission_amount), 0) AS commission").
		Joins("JOIN users ON users.id = sales.journalist_id").
		Where("sales.status = ? AND users.role = ?", model.SaleStatusApproved, model.RoleJournalist).
		Group("users.id, users.name").
		Order("revenue DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	for i := range rankings {
		rankings[i].Revenue = rankings[i].Revenue.Round(2)
		rankings[i].Commission = rankings[i].Commission.Round(2)
	}
	return rankings, nil
}

func (r *analyticsRepository) TopClients(ctx context.Context, limit int) ([]model.ClientRanking, error) {
	var rankings []model.ClientRanking
	q := GetDB(ctx, r.db).Table("sales").
		Select("clients.id AS client_id, clients.name AS client_name, COUNT(sales.id) AS sales_count, COALESCE(SUM(sales.amount), 0) AS revenue").
		Joins("JOIN clients ON clients.id = sales.client_id").
		Where("sales.status = ?", model.SaleStatusApproved).
		Group("clients.id, clients.name").
		Order("revenue DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top clients: %w", err)
	}
	for i := range rankings {
		rankings[i].Revenue = rankings[i].Revenue.Round(2)
	}
	return rankings, nil
}
