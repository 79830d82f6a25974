package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/auth"
	"salesdesk/internal/database"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"
	"salesdesk/internal/storage"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordedEvent struct {
	Type  string
	Owner uuid.UUID
	Data  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, owner uuid.UUID, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Owner: owner, Data: data})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db     *gorm.DB
	store  *storage.Store
	events *recordingPublisher

	users       UserService
	clients     ClientService
	sales       SaleService
	invoices    InvoiceService
	commissions CommissionService
	settings    SettingService
	analytics   AnalyticsService
	exports     ExportService
	audit       AuditService

	admin model.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared&_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	events := &recordingPublisher{}
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	settings := NewSettingService(repository.NewSettingRepository(db), auditRepo, txManager)
	env := &testEnv{
		db:          db,
		store:       store,
		events:      events,
		settings:    settings,
		users:       NewUserService(userRepo, saleRepo, commissionRepo, auditRepo, txManager, issuer),
		clients:     NewClientService(clientRepo, saleRepo, auditRepo, txManager),
		sales:       NewSaleService(saleRepo, clientRepo, userRepo, auditRepo, txManager, settings, store, events, 5<<20),
		invoices:    NewInvoiceService(invoiceRepo, saleRepo, auditRepo, txManager, settings, store, events),
		commissions: NewCommissionService(commissionRepo, userRepo, auditRepo, txManager, events),
		analytics:   NewAnalyticsService(repository.NewAnalyticsRepository(db), commissionRepo),
		exports:     NewExportService(saleRepo),
		audit:       NewAuditService(auditRepo),
	}

	res, err := env.users.Bootstrap(context.Background(), BootstrapRequest{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	env.admin = actorOf(res.User)
	return env
}

func actorOf(u UserResponse) model.Actor {
	return model.Actor{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (e *testEnv) journalist(t *testing.T, name, email string) model.Actor {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), e.admin, CreateUserRequest{
		Name:     name,
		Email:    email,
		Password: "secret123",
		Role:     string(model.RoleJournalist),
	})
	if err != nil {
		t.Fatalf("create journalist: %v", err)
	}
	return actorOf(*u)
}

func (e *testEnv) client(t *testing.T, actor model.Actor, name string) *model.Client {
	t.Helper()
	c, err := e.clients.CreateClient(context.Background(), actor, CreateClientRequest{Name: name, Phone: "+263 77 000 0000"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func (e *testEnv) sale(t *testing.T, actor model.Actor, client *model.Client, amount, date string) *model.Sale {
	t.Helper()
	s, err := e.sales.CreateSale(context.Background(), actor, CreateSaleRequest{
		ClientID:      client.ID.String(),
		Amount:        json.Number(amount),
		PaymentMethod: model.PaymentEcocash,
		PaymentDate:   date,
		AdType:        model.AdRadio,
	}, nil)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return s
}

func (e *testEnv) approve(t *testing.T, s *model.Sale) *model.Sale {
	t.Helper()
	approved, err := e.sales.ApproveSale(context.Background(), e.admin, s.ID.String())
	if err != nil {
		t.Fatalf("approve sale: %v", err)
	}
	return approved
}

func assertKind(t *testing.T, err error, want apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := apperror.KindOf(err); got != want {
		t.Fatalf("error kind = %v, want %v (%v)", got, want, err)
	}
}
