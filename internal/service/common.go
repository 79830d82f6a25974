package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Live feed event types
const (
	EventSaleCreated       = "sale.created"
	EventSaleUpdated       = "sale.updated"
	EventSaleApproved      = "sale.approved"
	EventSaleRejected      = "sale.rejected"
	EventSaleDeleted       = "sale.deleted"
	EventInvoiceGenerated  = "invoice.generated"
	EventInvoiceDeleted    = "invoice.deleted"
	EventCommissionPayment = "commission.payment"
)

const dateLayout = "2006-01-02"

// EventPublisher fans out lifecycle notifications about a record owned by
// owner. The websocket hub implements it.
type EventPublisher interface {
	Publish(eventType string, owner uuid.UUID, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, uuid.UUID, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// writeAudit records an audit entry through the transaction in ctx, if any.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actor model.Actor, action, entityID, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	var userID *uuid.UUID
	if actor.ID != uuid.Nil {
		id := actor.ID
		userID = &id
	}
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    datatypes.JSON(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s", field)
	}
	return id, nil
}

func parseOptionalID(raw, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDate reads a YYYY-MM-DD calendar date as midnight UTC.
func parseDate(raw, field string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, apperror.Validation("invalid %s: expected YYYY-MM-DD", field)
	}
	return t, nil
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseDate(raw, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parsePositiveAmount parses a money value that must be greater than zero.
func parsePositiveAmount(raw, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperror.Validation("invalid %s", field)
	}
	if !d.IsPositive() {
		return decimal.Zero, apperror.Validation("%s must be greater than zero", field)
	}
	if d.Exponent() < -2 {
		return decimal.Zero, apperror.Validation("%s must have at most 2 decimal places", field)
	}
	return d, nil
}

// parseRate parses a commission percentage in [0, 100].
func parseRate(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperror.Validation("invalid commission_rate")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, apperror.Validation("commission_rate must be between 0 and 100")
	}
	return d.Round(2), nil
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func requireAdmin(actor model.Actor) error {
	if !actor.Role.IsAdmin() {
		return apperror.Forbidden("admin role required")
	}
	return nil
}
