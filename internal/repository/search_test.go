package repository

import (
	"context"
	"testing"
	"time"

	"salesdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestLikePatterns(t *testing.T) {
	tests := []struct {
		in       string
		contains string
		prefix   string
	}{
		{"Acme", "%acme%", "Acme%"},
		{"50%", `%50\%%`, `50\%%`},
		{"A_B", `%a\_b%`, `A\_B%`},
		{`C:\x`, `%c:\\x%`, `C:\\x%`},
	}
	for _, tt := range tests {
		if got := containsPattern(tt.in); got != tt.contains {
			t.Errorf("containsPattern(%q) = %q, want %q", tt.in, got, tt.contains)
		}
		if got := prefixPattern(tt.in); got != tt.prefix {
			t.Errorf("prefixPattern(%q) = %q, want %q", tt.in, got, tt.prefix)
		}
	}
}

func TestLastNumberWithPrefixIsLiteral(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&model.User{}, &model.Client{}, &model.Sale{}, &model.Invoice{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, number := range []string{"AXB-2024-009", "A_B-2024-002"} {
		inv := &model.Invoice{
			SaleID:        uuid.New(),
			InvoiceNumber: number,
			ClientName:    "Acme",
			Amount:        decimal.NewFromInt(10),
			PaymentMethod: model.PaymentCash,
			PaymentDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			AdType:        model.AdRadio,
			GeneratedAt:   time.Now(),
		}
		if err := db.Omit("Sale", "Generator").Create(inv).Error; err != nil {
			t.Fatalf("insert %s: %v", number, err)
		}
	}

	repo := NewInvoiceRepository(db)
	got, err := repo.LastNumberWithPrefix(context.Background(), "A_B-2024-")
	if err != nil {
		t.Fatalf("last number: %v", err)
	}
	if got != "A_B-2024-002" {
		t.Fatalf("last number = %q, want A_B-2024-002", got)
	}
	got, err = repo.LastNumberWithPrefix(context.Background(), "A%-2024-")
	if err != nil {
		t.Fatalf("last number: %v", err)
	}
	if got != "" {
		t.Fatalf("wildcard prefix matched %q", got)
	}
}
