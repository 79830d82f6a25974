package service

import (
	"context"
	"testing"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"
)

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jane := env.journalist(t, "Jane", "jane@example.com")
	john := env.journalist(t, "John", "john@example.com")
	acme := env.client(t, jane, "Acme")
	other := env.client(t, john, "Other")

	env.approve(t, env.sale(t, jane, acme, "100", "2024-03-01"))
	env.approve(t, env.sale(t, jane, acme, "300", "2024-03-02"))
	env.sale(t, jane, acme, "50", "2024-03-03")
	if _, err := env.sales.RejectSale(ctx, env.admin, env.sale(t, jane, acme, "70", "2024-03-04").ID.String(), "duplicate"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	env.approve(t, env.sale(t, john, other, "1000", "2024-03-05"))

	if _, err := env.commissions.CreatePayment(ctx, env.admin, CreateCommissionPaymentRequest{
		JournalistID:  jane.ID.String(),
		Amount:        "15",
		PaymentDate:   "2024-03-06",
		PaymentMethod: model.PaymentCash,
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	mine, err := env.analytics.Dashboard(ctx, jane)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if mine.TotalSales != 4 || mine.PendingSales != 1 || mine.ApprovedSales != 2 || mine.RejectedSales != 1 {
		t.Fatalf("counts = %+v", mine)
	}
	checks := map[string]string{
		"revenue": mine.TotalRevenue.StringFixed(2),
		"average": mine.AverageSale.StringFixed(2),
		"earned":  mine.CommissionEarned.StringFixed(2),
		"paid":    mine.CommissionPaid.StringFixed(2),
		"unpaid":  mine.CommissionUnpaid.StringFixed(2),
	}
	want := map[string]string{"revenue": "400.00", "average": "200.00", "earned": "40.00", "paid": "15.00", "unpaid": "25.00"}
	for k, v := range want {
		if checks[k] != v {
			t.Errorf("%s = %s, want %s", k, checks[k], v)
		}
	}
	if mine.TotalClients != 1 {
		t.Errorf("clients = %d, want 1", mine.TotalClients)
	}

	all, err := env.analytics.Dashboard(ctx, env.admin)
	if err != nil {
		t.Fatalf("admin dashboard: %v", err)
	}
	if all.TotalSales != 5 || all.TotalRevenue.StringFixed(2) != "1400.00" || all.TotalClients != 2 {
		t.Fatalf("admin dashboard = %+v", all)
	}
}

func TestTrendAndBreakdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.analytics.(*analyticsService).now = func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }

	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	env.approve(t, env.sale(t, j, c, "100", "2024-03-09"))
	env.approve(t, env.sale(t, j, c, "50", "2024-03-09"))
	env.approve(t, env.sale(t, j, c, "25", "2024-03-10"))
	env.approve(t, env.sale(t, j, c, "999", "2024-01-01")) // outside the default window
	env.sale(t, j, c, "500", "2024-03-10")                 // pending

	points, err := env.analytics.Trend(ctx, j, TrendRequest{Bucket: "day"})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points = %+v", points)
	}
	if points[0].Period != "2024-03-10" || points[0].Revenue.StringFixed(2) != "25.00" {
		t.Errorf("latest point = %+v", points[0])
	}
	if points[1].Period != "2024-03-09" || points[1].SalesCount != 2 || points[1].Revenue.StringFixed(2) != "150.00" {
		t.Errorf("earlier point = %+v", points[1])
	}

	monthly, err := env.analytics.Trend(ctx, env.admin, TrendRequest{Bucket: "month"})
	if err != nil {
		t.Fatalf("monthly trend: %v", err)
	}
	if len(monthly) != 2 || monthly[0].Period != "2024-03-01" || monthly[1].Period != "2024-01-01" {
		t.Fatalf("monthly = %+v", monthly)
	}

	_, err = env.analytics.Trend(ctx, j, TrendRequest{Bucket: "year"})
	assertKind(t, err, apperror.KindValidation)

	breakdown, err := env.analytics.Breakdown(ctx, j)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(breakdown.ByAdType) != 1 || breakdown.ByAdType[0].Category != model.AdRadio || breakdown.ByAdType[0].SalesCount != 4 {
		t.Fatalf("by ad type = %+v", breakdown.ByAdType)
	}

	_, err = env.analytics.Leaderboard(ctx, j, 0)
	assertKind(t, err, apperror.KindForbidden)
	board, err := env.analytics.Leaderboard(ctx, env.admin, 0)
	if err != nil || len(board) != 1 || board[0].Revenue.StringFixed(2) != "1174.00" {
		t.Fatalf("leaderboard = %+v, err %v", board, err)
	}
	top, err := env.analytics.TopClients(ctx, env.admin, 5)
	if err != nil || len(top) != 1 || top[0].ClientName != "Acme" {
		t.Fatalf("top clients = %+v, err %v", top, err)
	}
}

func TestTrendStart(t *testing.T) {
	now := time.Date(2024, 3, 13, 18, 30, 0, 0, time.UTC) // Wednesday
	tests := []struct {
		bucket repository.Bucket
		days   int
		want   string
	}{
		{repository.BucketDay, 0, "2024-02-13"},
		{repository.BucketDay, 7, "2024-03-07"},
		{repository.BucketWeek, 0, "2023-12-25"},
		{repository.BucketMonth, 0, "2023-04-01"},
	}
	for _, tt := range tests {
		if got := trendStart(now, tt.bucket, tt.days).Format(dateLayout); got != tt.want {
			t.Errorf("trendStart(%s, %d) = %s, want %s", tt.bucket, tt.days, got, tt.want)
		}
	}
}
