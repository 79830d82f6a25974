package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleStatus enum constants
const (
	SaleStatusPending  = "pending"
	SaleStatusApproved = "approved"
	SaleStatusRejected = "rejected"
)

// Payment method enum constants
const (
	PaymentCash         = "Cash"
	PaymentEcocash      = "Ecocash"
	PaymentInnBucks     = "InnBucks"
	PaymentOmari        = "Omari"
	PaymentBankTransfer = "Bank Transfer"
)

// Ad type enum constants
const (
	AdWhatsAppChannel = "WhatsApp Channel"
	AdWhatsAppGroup   = "WhatsApp Group"
	AdPrint           = "Print"
	AdRadio           = "Radio"
	AdTV              = "TV"
	AdDigitalBanner   = "Digital Banner"
)

var (
	PaymentMethods = []string{PaymentCash, PaymentEcocash, PaymentInnBucks, PaymentOmari, PaymentBankTransfer}
	AdTypes        = []string{AdWhatsAppChannel, AdWhatsAppGroup, AdPrint, AdRadio, AdTV, AdDigitalBanner}
)

func IsPaymentMethod(s string) bool { return contains(PaymentMethods, s) }

func IsAdType(s string) bool { return contains(AdTypes, s) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Sale is one advertising transaction logged by a journalist.
// Only approved sales count toward revenue, commission and invoicing.
type Sale struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client           *Client         `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"client,omitempty"`
	JournalistID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"journalist_id"`
	Journalist       *User           `gorm:"foreignKey:JournalistID;constraint:OnDelete:RESTRICT" json:"journalist,omitempty"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod    string          `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaymentDate      time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	AdType           string          `gorm:"type:varchar(30);not null;index" json:"ad_type"`
	Description      string          `gorm:"type:text" json:"description"`
	ProofOfPayment   string          `gorm:"type:varchar(500)" json:"proof_of_payment"` // storage-relative path
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"commission_amount"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ApprovedBy       *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	Approver         *User           `gorm:"foreignKey:ApprovedBy;constraint:OnDelete:SET NULL" json:"approver,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at"`
	RejectionReason  string          `gorm:"type:text" json:"rejection_reason"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ComputeCommission returns amount * rate / 100 rounded to cents.
func ComputeCommission(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}

// Recompute refreshes the derived commission amount.
func (s *Sale) Recompute() {
	s.CommissionAmount = ComputeCommission(s.Amount, s.CommissionRate)
}

func (s *Sale) IsPending() bool { return s.Status == SaleStatusPending }
