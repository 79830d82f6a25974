package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"
	"salesdesk/internal/storage"

	"github.com/shopspring/decimal"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestCreateSaleComputesCommission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	sale := env.sale(t, j, c, "500.00", "2024-01-15")
	if sale.Status != model.SaleStatusPending {
		t.Fatalf("status = %q, want pending", sale.Status)
	}
	if !sale.CommissionRate.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("rate = %s, want default 10", sale.CommissionRate)
	}
	if sale.CommissionAmount.StringFixed(2) != "50.00" {
		t.Fatalf("commission = %s, want 50.00", sale.CommissionAmount.StringFixed(2))
	}
	if sale.JournalistID != j.ID {
		t.Fatalf("journalist = %s, want %s", sale.JournalistID, j.ID)
	}

	custom, err := env.sales.CreateSale(ctx, j, CreateSaleRequest{
		ClientID:       c.ID.String(),
		Amount:         "99.99",
		CommissionRate: "12.5",
		PaymentMethod:  model.PaymentCash,
		PaymentDate:    "2024-01-16",
		AdType:         model.AdPrint,
	}, nil)
	if err != nil {
		t.Fatalf("create with custom rate: %v", err)
	}
	if custom.CommissionAmount.StringFixed(2) != "12.50" {
		t.Fatalf("commission = %s, want 12.50", custom.CommissionAmount.StringFixed(2))
	}

	if types := env.events.types(); len(types) != 2 || types[0] != EventSaleCreated {
		t.Fatalf("events = %v", types)
	}
	for _, e := range env.events.events {
		if e.Owner != j.ID {
			t.Fatalf("event %s addressed to %s, want %s", e.Type, e.Owner, j.ID)
		}
	}
}

func TestCreateSaleValidation(t *testing.T) {
	env := newTestEnv(t)
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	valid := CreateSaleRequest{
		ClientID:      c.ID.String(),
		Amount:        "100",
		PaymentMethod: model.PaymentCash,
		PaymentDate:   "2024-01-15",
		AdType:        model.AdTV,
	}

	tests := []struct {
		name   string
		mutate func(r *CreateSaleRequest)
		want   apperror.Kind
	}{
		{"zero amount", func(r *CreateSaleRequest) { r.Amount = "0" }, apperror.KindValidation},
		{"negative amount", func(r *CreateSaleRequest) { r.Amount = "-5" }, apperror.KindValidation},
		{"three decimals", func(r *CreateSaleRequest) { r.Amount = "10.001" }, apperror.KindValidation},
		{"not a number", func(r *CreateSaleRequest) { r.Amount = "ten" }, apperror.KindValidation},
		{"unknown method", func(r *CreateSaleRequest) { r.PaymentMethod = "Cheque" }, apperror.KindValidation},
		{"unknown ad type", func(r *CreateSaleRequest) { r.AdType = "Billboard" }, apperror.KindValidation},
		{"bad date", func(r *CreateSaleRequest) { r.PaymentDate = "15/01/2024" }, apperror.KindValidation},
		{"rate above 100", func(r *CreateSaleRequest) { r.CommissionRate = "101" }, apperror.KindValidation},
		{"missing client", func(r *CreateSaleRequest) { r.ClientID = "00000000-0000-0000-0000-000000000001" }, apperror.KindNotFound},
		{"other journalist", func(r *CreateSaleRequest) { r.JournalistID = env.admin.ID.String() }, apperror.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := env.sales.CreateSale(context.Background(), j, req, nil)
			assertKind(t, err, tt.want)
		})
	}
}

func TestCreateSaleStoresProof(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	req := CreateSaleRequest{
		ClientID:      c.ID.String(),
		Amount:        "20",
		PaymentMethod: model.PaymentOmari,
		PaymentDate:   "2024-02-01",
		AdType:        model.AdWhatsAppGroup,
	}

	sale, err := env.sales.CreateSale(ctx, j, req, bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("create with proof: %v", err)
	}
	if sale.ProofOfPayment == "" || !env.store.Exists(sale.ProofOfPayment) {
		t.Fatalf("proof not stored: %q", sale.ProofOfPayment)
	}

	_, err = env.sales.CreateSale(ctx, j, req, bytes.NewReader([]byte("plain text is not allowed")))
	assertKind(t, err, apperror.KindValidation)

	if n, _ := env.store.Count(storage.ProofsDir); n != 1 {
		t.Fatalf("stored proofs = %d, want 1", n)
	}

	f, name, err := env.sales.OpenProof(ctx, j, sale.ID.String())
	if err != nil {
		t.Fatalf("open proof: %v", err)
	}
	f.Close()
	if name != "proof-"+sale.ID.String()+".png" {
		t.Fatalf("proof name = %q", name)
	}
}

func TestSaleTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	approved := env.approve(t, env.sale(t, j, c, "100", "2024-01-15"))
	if approved.Status != model.SaleStatusApproved || approved.ApprovedBy == nil || *approved.ApprovedBy != env.admin.ID {
		t.Fatalf("approved sale = %+v", approved)
	}
	if approved.ApprovedAt == nil {
		t.Fatal("approved_at not set")
	}

	_, err := env.sales.ApproveSale(ctx, env.admin, approved.ID.String())
	assertKind(t, err, apperror.KindInvalidState)
	_, err = env.sales.RejectSale(ctx, env.admin, approved.ID.String(), "late")
	assertKind(t, err, apperror.KindInvalidState)

	pending := env.sale(t, j, c, "40", "2024-01-16")
	_, err = env.sales.RejectSale(ctx, env.admin, pending.ID.String(), "   ")
	assertKind(t, err, apperror.KindValidation)

	_, err = env.sales.ApproveSale(ctx, j, pending.ID.String())
	assertKind(t, err, apperror.KindForbidden)

	reason := "  Payment not received  "
	rejected, err := env.sales.RejectSale(ctx, env.admin, pending.ID.String(), reason)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.SaleStatusRejected || rejected.RejectionReason != reason {
		t.Fatalf("rejected sale = status %q reason %q", rejected.Status, rejected.RejectionReason)
	}
	_, err = env.sales.ApproveSale(ctx, env.admin, rejected.ID.String())
	assertKind(t, err, apperror.KindInvalidState)

	_, err = env.sales.UpdateSale(ctx, j, rejected.ID.String(), UpdateSaleRequest{}, nil)
	assertKind(t, err, apperror.KindInvalidState)
	assertKind(t, env.sales.DeleteSale(ctx, j, approved.ID.String()), apperror.KindInvalidState)
}

func TestSaleOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jane := env.journalist(t, "Jane", "jane@example.com")
	john := env.journalist(t, "John", "john@example.com")
	c := env.client(t, jane, "Acme")

	sale := env.sale(t, jane, c, "100", "2024-01-15")
	amount := json.Number("250")

	_, err := env.sales.GetSale(ctx, john, sale.ID.String())
	assertKind(t, err, apperror.KindForbidden)
	_, err = env.sales.UpdateSale(ctx, john, sale.ID.String(), UpdateSaleRequest{Amount: &amount}, nil)
	assertKind(t, err, apperror.KindForbidden)
	assertKind(t, env.sales.DeleteSale(ctx, john, sale.ID.String()), apperror.KindForbidden)

	updated, err := env.sales.UpdateSale(ctx, env.admin, sale.ID.String(), UpdateSaleRequest{Amount: &amount}, nil)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.CommissionAmount.StringFixed(2) != "25.00" {
		t.Fatalf("commission after update = %s, want 25.00", updated.CommissionAmount.StringFixed(2))
	}

	env.sale(t, john, c, "70", "2024-01-17")
	mine, total, err := env.sales.ListSales(ctx, jane, SaleFilter{JournalistID: john.ID.String()})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(mine) != 1 || mine[0].JournalistID != jane.ID {
		t.Fatalf("journalist list leaked other sales: total=%d", total)
	}
	all, total, err := env.sales.ListSales(ctx, env.admin, SaleFilter{})
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("admin list: total=%d err=%v", total, err)
	}

	if err := env.sales.DeleteSale(ctx, jane, sale.ID.String()); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	_, err = env.sales.GetSale(ctx, env.admin, sale.ID.String())
	assertKind(t, err, apperror.KindNotFound)
}

func TestSearchMatchesLiterally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	env.sale(t, j, env.client(t, j, "Acme Radio"), "100", "2024-01-15")
	env.sale(t, j, env.client(t, j, "50%_Off Store"), "100", "2024-01-16")

	tests := []struct {
		search string
		want   int64
	}{
		{"acme", 1},
		{"%", 1},
		{"_", 1},
		{"0%_o", 1},
		{"a%o", 0},
		{"a_m", 0},
		{`\`, 0},
	}
	for _, tt := range tests {
		_, total, err := env.sales.ListSales(ctx, env.admin, SaleFilter{Search: tt.search})
		if err != nil {
			t.Fatalf("search %q: %v", tt.search, err)
		}
		if total != tt.want {
			t.Errorf("sales search %q: total = %d, want %d", tt.search, total, tt.want)
		}
		_, total, err = env.clients.ListClients(ctx, ClientFilter{Search: tt.search})
		if err != nil {
			t.Fatalf("client search %q: %v", tt.search, err)
		}
		if total != tt.want {
			t.Errorf("client search %q: total = %d, want %d", tt.search, total, tt.want)
		}
	}
}

// faultySaleRepo fails selected writes of an otherwise real repository.
type faultySaleRepo struct {
	repository.SaleRepository
	createErr   error
	lostPending bool
}

func (r *faultySaleRepo) Create(ctx context.Context, sale *model.Sale) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.SaleRepository.Create(ctx, sale)
}

// UpdatePending reports the row as no longer pending, as when an admin
// approves it between the load and the write.
func (r *faultySaleRepo) UpdatePending(ctx context.Context, sale *model.Sale) (bool, error) {
	if r.lostPending {
		return false, nil
	}
	return r.SaleRepository.UpdatePending(ctx, sale)
}

func (e *testEnv) salesWith(repo repository.SaleRepository) SaleService {
	return NewSaleService(repo, repository.NewClientRepository(e.db), repository.NewUserRepository(e.db),
		repository.NewAuditRepository(e.db), repository.NewTransactionManager(e.db), e.settings, e.store, nil, 5<<20)
}

func TestProofRemovedWhenCreateFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	sales := env.salesWith(&faultySaleRepo{
		SaleRepository: repository.NewSaleRepository(env.db),
		createErr:      errors.New("disk full"),
	})
	_, err := sales.CreateSale(ctx, j, CreateSaleRequest{
		ClientID:      c.ID.String(),
		Amount:        "20",
		PaymentMethod: model.PaymentCash,
		PaymentDate:   "2024-02-01",
		AdType:        model.AdPrint,
	}, bytes.NewReader(pngHeader))
	assertKind(t, err, apperror.KindInternal)

	if n, _ := env.store.Count(storage.ProofsDir); n != 0 {
		t.Fatalf("stored proofs after failed create = %d, want 0", n)
	}
}

func TestProofRemovedWhenUpdateLosesPendingState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")
	c := env.client(t, j, "Acme")

	sale, err := env.sales.CreateSale(ctx, j, CreateSaleRequest{
		ClientID:      c.ID.String(),
		Amount:        "20",
		PaymentMethod: model.PaymentCash,
		PaymentDate:   "2024-02-01",
		AdType:        model.AdPrint,
	}, bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sales := env.salesWith(&faultySaleRepo{SaleRepository: repository.NewSaleRepository(env.db), lostPending: true})
	amount := json.Number("30")
	_, err = sales.UpdateSale(ctx, j, sale.ID.String(), UpdateSaleRequest{Amount: &amount}, bytes.NewReader(pngHeader))
	assertKind(t, err, apperror.KindInvalidState)

	if n, _ := env.store.Count(storage.ProofsDir); n != 1 {
		t.Fatalf("stored proofs = %d, want only the original", n)
	}
	if !env.store.Exists(sale.ProofOfPayment) {
		t.Fatalf("original proof %q was removed", sale.ProofOfPayment)
	}
}
