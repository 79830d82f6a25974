package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateUser = "CREATE_USER"
	ActionUpdateUser = "UPDATE_USER"
	ActionDeleteUser = "DELETE_USER"

	ActionCreateClient = "CREATE_CLIENT"
	ActionUpdateClient = "UPDATE_CLIENT"
	ActionDeleteClient = "DELETE_CLIENT"

	// Sale lifecycle actions
	ActionCreateSale  = "CREATE_SALE"
	ActionUpdateSale  = "UPDATE_SALE"
	ActionApproveSale = "APPROVE_SALE"
	ActionRejectSale  = "REJECT_SALE"
	ActionDeleteSale  = "DELETE_SALE"

	ActionGenerateInvoice = "GENERATE_INVOICE"
	ActionDeleteInvoice   = "DELETE_INVOICE"

	ActionCreateCommissionPayment = "CREATE_COMMISSION_PAYMENT"
	ActionUpdateCommissionPayment = "UPDATE_COMMISSION_PAYMENT"
	ActionDeleteCommissionPayment = "DELETE_COMMISSION_PAYMENT"

	ActionUpsertSetting = "UPSERT_SETTING"
	ActionDeleteSetting = "DELETE_SETTING"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
