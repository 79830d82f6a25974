package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/pdf"
	"salesdesk/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UpsertSettingRequest struct {
	Key         string `json:"key" binding:"required"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

var (
	settingKeyPattern    = regexp.MustCompile(`^[a-z][a-z0-9_]{0,99}$`)
	invoicePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)
)

type SettingService interface {
	List(ctx context.Context) ([]model.Setting, error)
	Get(ctx context.Context, key string) (*model.Setting, error)
	Upsert(ctx context.Context, actor model.Actor, req UpsertSettingRequest) (*model.Setting, error)
	Delete(ctx context.Context, actor model.Actor, key string) error

	CommissionRate(ctx context.Context) decimal.Decimal
	InvoicePrefix(ctx context.Context) string
	Organization(ctx context.Context) pdf.Organization
}

type settingService struct {
	repo      repository.SettingRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewSettingService(repo repository.SettingRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) SettingService {
	return &settingService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func (s *settingService) List(ctx context.Context) ([]model.Setting, error) {
	settings, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperror.FromDB(err, "setting")
	}
	return settings, nil
}

func (s *settingService) Get(ctx context.Context, key string) (*model.Setting, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, apperror.FromDB(err, "setting")
	}
	return setting, nil
}

func validateSetting(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch key {
	case model.SettingDefaultCommissionRate:
		rate, err := parseRate(value)
		if err != nil {
			return "", err
		}
		return rate.StringFixed(2), nil
	case model.SettingInvoicePrefix:
		if !invoicePrefixPattern.MatchString(value) {
			return "", apperror.Validation("invoice_prefix must be 1-10 letters or digits")
		}
		return strings.ToUpper(value), nil
	case model.SettingCompanyName:
		if value == "" {
			return "", apperror.Validation("company_name cannot be empty")
		}
	}
	return value, nil
}

func (s *settingService) Upsert(ctx context.Context, actor model.Actor, req UpsertSettingRequest) (*model.Setting, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(req.Key)
	if !settingKeyPattern.MatchString(key) {
		return nil, apperror.Validation("setting key must be lower_snake_case")
	}
	value, err := validateSetting(key, req.Value)
	if err != nil {
		return nil, err
	}

	updatedBy := actor.ID
	setting := &model.Setting{
		Key:         key,
		Value:       value,
		Description: strings.TrimSpace(req.Description),
		UpdatedBy:   &updatedBy,
		UpdatedAt:   time.Now(),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if setting.Description == "" {
			if existing, err := s.repo.Get(txCtx, key); err == nil {
				setting.Description = existing.Description
			}
		}
		if err := s.repo.Upsert(txCtx, setting); err != nil {
			return apperror.FromDB(err, "setting")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpsertSetting, key, key, map[string]interface{}{"value": value})
	})
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (s *settingService) Delete(ctx context.Context, actor model.Actor, key string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if model.ProtectedSettings[key] {
		return apperror.Forbidden("setting %q is protected and cannot be deleted", key)
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, key); err != nil {
			return apperror.FromDB(err, "setting")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteSetting, key, key, nil)
	})
}

func (s *settingService) value(ctx context.Context, key string) (string, bool) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return setting.Value, true
}

// CommissionRate returns the configured default rate, falling back to 10.00
// when the setting is missing or malformed.
func (s *settingService) CommissionRate(ctx context.Context) decimal.Decimal {
	fallback := decimal.RequireFromString(model.DefaultCommissionRate)
	raw, ok := s.value(ctx, model.SettingDefaultCommissionRate)
	if !ok {
		return fallback
	}
	rate, err := parseRate(raw)
	if err != nil {
		return fallback
	}
	return rate
}

func (s *settingService) InvoicePrefix(ctx context.Context) string {
	raw, ok := s.value(ctx, model.SettingInvoicePrefix)
	if !ok || strings.TrimSpace(raw) == "" {
		return model.DefaultInvoicePrefix
	}
	return strings.TrimSpace(raw)
}

func (s *settingService) Organization(ctx context.Context) pdf.Organization {
	settings, err := s.repo.All(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pdf.Organization{Name: "Media Sales Desk"}
	}
	org := pdf.Organization{}
	for _, st := range settings {
		switch st.Key {
		case model.SettingCompanyName:
			org.Name = st.Value
		case model.SettingCompanyAddress:
			org.Address = st.Value
		case model.SettingCompanyPhone:
			org.Phone = st.Value
		case model.SettingCompanyEmail:
			org.Email = st.Value
		}
	}
	if org.Name == "" {
		org.Name = "Media Sales Desk"
	}
	return org
}
