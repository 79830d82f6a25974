package service

import (
	"context"
	"encoding/json"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	UserName   string          `json:"user_name"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details" swaggertype:"object"`
	CreatedAt  string          `json:"created_at"`
}

type AuditFilter struct {
	Action   string
	UserID   string
	EntityID string
	DateFrom string
	DateTo   string
	Page     int
	Limit    int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor model.Actor, filter AuditFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns newest entries first. date_to is inclusive of the whole day.
func (s *auditService) GetAuditLogs(ctx context.Context, actor model.Actor, filter AuditFilter) ([]AuditLogResponse, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	repoFilter := repository.AuditListFilter{Action: filter.Action, EntityID: filter.EntityID, Page: page, Limit: limit}

	var err error
	if repoFilter.UserID, err = parseOptionalID(filter.UserID, "user_id"); err != nil {
		return nil, 0, err
	}
	if repoFilter.DateFrom, err = parseOptionalDate(filter.DateFrom, "date_from"); err != nil {
		return nil, 0, err
	}
	if repoFilter.DateTo, err = parseOptionalDate(filter.DateTo, "date_to"); err != nil {
		return nil, 0, err
	}
	if repoFilter.DateTo != nil {
		next := repoFilter.DateTo.AddDate(0, 0, 1)
		repoFilter.DateTo = &next
	}

	logs, total, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperror.Internal("failed to load audit log", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := "System"
		userID := ""
		if l.User != nil {
			userName = l.User.Name
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		details := json.RawMessage("null")
		if len(l.Details) > 0 {
			details = json.RawMessage(l.Details)
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			UserName:   userName,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    details,
			CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return res, total, nil
}
