package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is an immutable billing document generated from exactly one approved sale.
// Client and sale fields are copied at generation time.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID         uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"sale_id"`
	Sale           *Sale           `gorm:"foreignKey:SaleID;constraint:OnDelete:RESTRICT" json:"-"`
	InvoiceNumber  string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"invoice_number"`
	ClientName     string          `gorm:"type:varchar(255);not null" json:"client_name"`
	ClientPhone    string          `gorm:"type:varchar(50)" json:"client_phone"`
	ClientEmail    string          `gorm:"type:varchar(255)" json:"client_email"`
	ClientAddress  string          `gorm:"type:text" json:"client_address"`
	JournalistName string          `gorm:"type:varchar(255)" json:"journalist_name"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod  string          `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaymentDate    time.Time       `gorm:"type:date;not null" json:"payment_date"`
	AdType         string          `gorm:"type:varchar(30);not null" json:"ad_type"`
	Description    string          `gorm:"type:text" json:"description"`
	GeneratedBy    *uuid.UUID      `gorm:"type:uuid" json:"generated_by"`
	Generator      *User           `gorm:"foreignKey:GeneratedBy;constraint:OnDelete:SET NULL" json:"generator,omitempty"`
	GeneratedAt    time.Time       `gorm:"not null;index" json:"generated_at"`
	PDFPath        string          `gorm:"type:varchar(500)" json:"pdf_path"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
