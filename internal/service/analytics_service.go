package service

import (
	"context"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/shopspring/decimal"
)

// Breakdown groups approved sales by ad type and by payment method.
type Breakdown struct {
	ByAdType        []model.CategoryTotal `json:"by_ad_type"`
	ByPaymentMethod []model.CategoryTotal `json:"by_payment_method"`
}

type TrendRequest struct {
	Bucket string
	Days   int
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, actor model.Actor) (*model.DashboardSummary, error)
	Trend(ctx context.Context, actor model.Actor, req TrendRequest) ([]model.TrendPoint, error)
	Breakdown(ctx context.Context, actor model.Actor) (*Breakdown, error)
	Leaderboard(ctx context.Context, actor model.Actor, limit int) ([]model.JournalistRanking, error)
	TopClients(ctx context.Context, actor model.Actor, limit int) ([]model.ClientRanking, error)
}

type analyticsService struct {
	repo           repository.AnalyticsRepository
	commissionRepo repository.CommissionRepository
	now            func() time.Time
}

func NewAnalyticsService(repo repository.AnalyticsRepository, commissionRepo repository.CommissionRepository) AnalyticsService {
	return &analyticsService{repo: repo, commissionRepo: commissionRepo, now: time.Now}
}

// scopeFor limits journalists to their own data.
func scopeFor(actor model.Actor) (repository.AnalyticsScope, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return repository.AnalyticsScope{}, nil
	case model.RoleJournalist:
		id := actor.ID
		return repository.AnalyticsScope{JournalistID: &id}, nil
	}
	return repository.AnalyticsScope{}, apperror.Forbidden("unknown role")
}

func (s *analyticsService) Dashboard(ctx context.Context, actor model.Actor) (*model.DashboardSummary, error) {
	scope, err := scopeFor(actor)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.StatusCounts(ctx, scope)
	if err != nil {
		return nil, apperror.Internal("failed to load dashboard", err)
	}
	totals, err := s.repo.ApprovedTotals(ctx, scope)
	if err != nil {
		return nil, apperror.Internal("failed to load dashboard", err)
	}
	earned, err := s.commissionRepo.SumEarned(ctx, scope.JournalistID)
	if err != nil {
		return nil, apperror.Internal("failed to load dashboard", err)
	}
	paid, err := s.commissionRepo.SumPaid(ctx, scope.JournalistID)
	if err != nil {
		return nil, apperror.Internal("failed to load dashboard", err)
	}
	clients, err := s.repo.ClientCount(ctx, scope)
	if err != nil {
		return nil, apperror.Internal("failed to load dashboard", err)
	}

	average := decimal.Zero
	if totals.Count > 0 {
		average = totals.Revenue.Div(decimal.NewFromInt(totals.Count)).Round(2)
	}

	return &model.DashboardSummary{
		TotalSales:       counts[model.SaleStatusPending] + counts[model.SaleStatusApproved] + counts[model.SaleStatusRejected],
		PendingSales:     counts[model.SaleStatusPending],
		ApprovedSales:    counts[model.SaleStatusApproved],
		RejectedSales:    counts[model.SaleStatusRejected],
		TotalRevenue:     totals.Revenue,
		AverageSale:      average,
		CommissionEarned: earned,
		CommissionPaid:   paid,
		CommissionUnpaid: earned.Sub(paid),
		TotalClients:     clients,
	}, nil
}

// trendStart returns the first day included in the window. A zero days value
// selects 30 days, 12 weeks or 12 months depending on the bucket.
func trendStart(now time.Time, bucket repository.Bucket, days int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if days > 0 {
		return today.AddDate(0, 0, -(days - 1))
	}
	switch bucket {
	case repository.BucketWeek:
		offset := (int(today.Weekday()) + 6) % 7 // days since Monday
		return today.AddDate(0, 0, -offset-7*11)
	case repository.BucketMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	case repository.BucketDay:
		return today.AddDate(0, 0, -29)
	}
	return today.AddDate(0, 0, -29)
}

func (s *analyticsService) Trend(ctx context.Context, actor model.Actor, req TrendRequest) ([]model.TrendPoint, error) {
	scope, err := scopeFor(actor)
	if err != nil {
		return nil, err
	}
	bucket, err := repository.ParseBucket(req.Bucket)
	if err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}
	if req.Days < 0 || req.Days > 3660 {
		return nil, apperror.Validation("days must be between 1 and 3660")
	}

	points, err := s.repo.Trend(ctx, scope, bucket, trendStart(s.now().UTC(), bucket, req.Days))
	if err != nil {
		return nil, apperror.Internal("failed to load revenue trend", err)
	}
	if points == nil {
		points = []model.TrendPoint{}
	}
	return points, nil
}

func (s *analyticsService) Breakdown(ctx context.Context, actor model.Actor) (*Breakdown, error) {
	scope, err := scopeFor(actor)
	if err != nil {
		return nil, err
	}
	byAdType, err := s.repo.Breakdown(ctx, scope, repository.DimensionAdType)
	if err != nil {
		return nil, apperror.Internal("failed to load breakdown", err)
	}
	byMethod, err := s.repo.Breakdown(ctx, scope, repository.DimensionPaymentMethod)
	if err != nil {
		return nil, apperror.Internal("failed to load breakdown", err)
	}
	if byAdType == nil {
		byAdType = []model.CategoryTotal{}
	}
	if byMethod == nil {
		byMethod = []model.CategoryTotal{}
	}
	return &Breakdown{ByAdType: byAdType, ByPaymentMethod: byMethod}, nil
}

func rankingLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func (s *analyticsService) Leaderboard(ctx context.Context, actor model.Actor, limit int) ([]model.JournalistRanking, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rankings, err := s.repo.Leaderboard(ctx, rankingLimit(limit))
	if err != nil {
		return nil, apperror.Internal("failed to load leaderboard", err)
	}
	if rankings == nil {
		rankings = []model.JournalistRanking{}
	}
	return rankings, nil
}

func (s *analyticsService) TopClients(ctx context.Context, actor model.Actor, limit int) ([]model.ClientRanking, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rankings, err := s.repo.TopClients(ctx, rankingLimit(limit))
	if err != nil {
		return nil, apperror.Internal("failed to load top clients", err)
	}
	if rankings == nil {
		rankings = []model.ClientRanking{}
	}
	return rankings, nil
}
