package model

import (
	"time"

	"github.com/google/uuid"
)

// Well-known setting keys
const (
	SettingCompanyName           = "company_name"
	SettingCompanyAddress        = "company_address"
	SettingCompanyPhone          = "company_phone"
	SettingCompanyEmail          = "company_email"
	SettingDefaultCommissionRate = "default_commission_rate"
	SettingInvoicePrefix         = "invoice_prefix"
)

const (
	DefaultCommissionRate = "10.00"
	DefaultInvoicePrefix  = "INV"
)

// ProtectedSettings can be overwritten but never deleted, so invoice numbering
// and commission defaults always resolve.
var ProtectedSettings = map[string]bool{
	SettingCompanyName:           true,
	SettingDefaultCommissionRate: true,
	SettingInvoicePrefix:         true,
}

// DefaultSettings are seeded on startup when missing
var DefaultSettings = []Setting{
	{Key: SettingCompanyName, Value: "Media Sales Desk", Description: "Organization name printed on invoices"},
	{Key: SettingCompanyAddress, Value: "", Description: "Organization postal address"},
	{Key: SettingCompanyPhone, Value: "", Description: "Organization phone number"},
	{Key: SettingCompanyEmail, Value: "", Description: "Organization contact email"},
	{Key: SettingDefaultCommissionRate, Value: DefaultCommissionRate, Description: "Commission percentage applied to new sales"},
	{Key: SettingInvoicePrefix, Value: DefaultInvoicePrefix, Description: "Prefix of generated invoice numbers"},
}

// Setting is a flat key-value organization configuration entry
type Setting struct {
	Key         string     `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value       string     `gorm:"type:text;not null" json:"value"`
	Description string     `gorm:"type:text" json:"description"`
	UpdatedBy   *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
