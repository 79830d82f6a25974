package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionPayment records money paid out to a journalist.
// It is not linked to individual sales; reconciliation happens on aggregate sums.
type CommissionPayment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	JournalistID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"journalist_id"`
	Journalist      *User           `gorm:"foreignKey:JournalistID;constraint:OnDelete:RESTRICT" json:"journalist,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	PaymentMethod   string          `gorm:"type:varchar(30);not null" json:"payment_method"`
	ReferenceNumber string          `gorm:"type:varchar(100)" json:"reference_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	PaidBy          *uuid.UUID      `gorm:"type:uuid" json:"paid_by"`
	Payer           *User           `gorm:"foreignKey:PaidBy;constraint:OnDelete:SET NULL" json:"payer,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (p *CommissionPayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
