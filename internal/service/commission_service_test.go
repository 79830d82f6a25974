package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"

	"github.com/shopspring/decimal"
)

func TestCommissionBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	env.approve(t, env.sale(t, j, c, "100", "2024-01-10")) // 10.00
	env.approve(t, env.sale(t, j, c, "100", "2024-01-11")) // 10.00
	env.sale(t, j, c, "500", "2024-01-12")                 // pending, not earned

	balance, err := env.commissions.Balance(ctx, j, "")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Earned.StringFixed(2) != "20.00" || balance.Balance.StringFixed(2) != "20.00" {
		t.Fatalf("balance = %+v", balance)
	}

	payment, err := env.commissions.CreatePayment(ctx, env.admin, CreateCommissionPaymentRequest{
		JournalistID:  j.ID.String(),
		Amount:        "25",
		PaymentDate:   "2024-02-01",
		PaymentMethod: model.PaymentBankTransfer,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	balance, err = env.commissions.Balance(ctx, env.admin, j.ID.String())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Paid.StringFixed(2) != "25.00" || balance.Balance.StringFixed(2) != "-5.00" {
		t.Fatalf("balance after overpayment = %+v", balance)
	}

	amount := json.Number("15")
	if _, err := env.commissions.UpdatePayment(ctx, env.admin, payment.ID.String(), UpdateCommissionPaymentRequest{Amount: &amount}); err != nil {
		t.Fatalf("update payment: %v", err)
	}
	summary, err := env.commissions.Summary(ctx, env.admin)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalBalance.StringFixed(2) != "5.00" || len(summary.Journalists) != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	if err := env.commissions.DeletePayment(ctx, env.admin, payment.ID.String()); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	balance, _ = env.commissions.Balance(ctx, j, "")
	if balance.Balance.StringFixed(2) != "20.00" {
		t.Fatalf("balance after delete = %s", balance.Balance.StringFixed(2))
	}
}

func TestCommissionPaymentRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jane := env.journalist(t, "Jane", "jane@example.com")
	john := env.journalist(t, "John", "john@example.com")

	valid := CreateCommissionPaymentRequest{
		JournalistID:  jane.ID.String(),
		Amount:        "10",
		PaymentDate:   "2024-02-01",
		PaymentMethod: model.PaymentCash,
	}

	_, err := env.commissions.CreatePayment(ctx, jane, valid)
	assertKind(t, err, apperror.KindForbidden)

	toAdmin := valid
	toAdmin.JournalistID = env.admin.ID.String()
	_, err = env.commissions.CreatePayment(ctx, env.admin, toAdmin)
	assertKind(t, err, apperror.KindValidation)

	zero := valid
	zero.Amount = "0"
	_, err = env.commissions.CreatePayment(ctx, env.admin, zero)
	assertKind(t, err, apperror.KindValidation)

	if _, err := env.commissions.CreatePayment(ctx, env.admin, valid); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = env.commissions.Balance(ctx, john, jane.ID.String())
	assertKind(t, err, apperror.KindForbidden)

	list, total, err := env.commissions.ListPayments(ctx, john, CommissionPaymentFilter{})
	if err != nil || total != 0 || len(list) != 0 {
		t.Fatalf("john sees %d payments (err %v)", total, err)
	}
	_, total, _ = env.commissions.ListPayments(ctx, jane, CommissionPaymentFilter{})
	if total != 1 {
		t.Fatalf("jane sees %d payments, want 1", total)
	}
}

func TestOrganizationTotalsCoverJournalistsOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jo := env.journalist(t, "Jo", "jo@example.com")
	c := env.client(t, jo, "Acme")

	_, err := env.sales.CreateSale(ctx, env.admin, CreateSaleRequest{
		ClientID: c.ID.String(), Amount: "300", PaymentMethod: model.PaymentCash, PaymentDate: "2024-01-10", AdType: model.AdTV,
	}, nil)
	assertKind(t, err, apperror.KindValidation)
	_, err = env.sales.CreateSale(ctx, env.admin, CreateSaleRequest{
		ClientID: c.ID.String(), JournalistID: env.admin.ID.String(), Amount: "300", PaymentMethod: model.PaymentCash, PaymentDate: "2024-01-10", AdType: model.AdTV,
	}, nil)
	assertKind(t, err, apperror.KindValidation)

	onBehalf, err := env.sales.CreateSale(ctx, env.admin, CreateSaleRequest{
		ClientID: c.ID.String(), JournalistID: jo.ID.String(), Amount: "500", PaymentMethod: model.PaymentCash, PaymentDate: "2024-01-10", AdType: model.AdTV,
	}, nil)
	if err != nil {
		t.Fatalf("admin filing for journalist: %v", err)
	}
	if onBehalf.JournalistID != jo.ID {
		t.Fatalf("journalist = %s, want %s", onBehalf.JournalistID, jo.ID)
	}
	env.approve(t, onBehalf)

	// a row attributed to a non-journalist, as left by older data
	legacy := &model.Sale{
		ClientID:         c.ID,
		JournalistID:     env.admin.ID,
		Amount:           decimal.RequireFromString("300"),
		PaymentMethod:    model.PaymentCash,
		PaymentDate:      time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		AdType:           model.AdTV,
		CommissionRate:   decimal.RequireFromString("10"),
		CommissionAmount: decimal.RequireFromString("30"),
		Status:           model.SaleStatusApproved,
	}
	if err := env.db.Create(legacy).Error; err != nil {
		t.Fatalf("insert legacy sale: %v", err)
	}

	dashboard, err := env.analytics.Dashboard(ctx, env.admin)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	org, err := env.commissions.Balance(ctx, env.admin, "")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	summary, err := env.commissions.Summary(ctx, env.admin)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for name, got := range map[string]decimal.Decimal{
		"dashboard": dashboard.CommissionEarned,
		"balance":   org.Earned,
		"summary":   summary.TotalEarned,
	} {
		if got.StringFixed(2) != "50.00" {
			t.Errorf("%s earned = %s, want 50.00", name, got.StringFixed(2))
		}
	}

	board, err := env.analytics.Leaderboard(ctx, env.admin, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].JournalistName != "Jo" {
		t.Fatalf("leaderboard = %+v", board)
	}

	_, err = env.users.UpdateUser(ctx, env.admin, jo.ID.String(), UpdateUserRequest{Role: string(model.RoleAdmin)})
	assertKind(t, err, apperror.KindConflict)
}
