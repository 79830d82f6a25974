package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateCommissionPaymentRequest struct {
	JournalistID    string      `json:"journalist_id" binding:"required"`
	Amount          json.Number `json:"amount" binding:"required" swaggertype:"string" example:"30.00"`
	PaymentDate     string      `json:"payment_date" binding:"required" example:"2024-02-01"`
	PaymentMethod   string      `json:"payment_method" binding:"required"`
	ReferenceNumber string      `json:"reference_number"`
	Notes           string      `json:"notes"`
}

type UpdateCommissionPaymentRequest struct {
	Amount          *json.Number `json:"amount" swaggertype:"string"`
	PaymentDate     *string      `json:"payment_date"`
	PaymentMethod   *string      `json:"payment_method"`
	ReferenceNumber *string      `json:"reference_number"`
	Notes           *string      `json:"notes"`
}

type CommissionPaymentFilter struct {
	JournalistID string
	DateFrom     string
	DateTo       string
	Page         int
	Limit        int
}

// CommissionSummary is the organization-wide reconciliation. Balances may be
// negative: overpayment is recorded as-is.
type CommissionSummary struct {
	Journalists  []model.CommissionBalance `json:"journalists"`
	TotalEarned  decimal.Decimal           `json:"total_earned"`
	TotalPaid    decimal.Decimal           `json:"total_paid"`
	TotalBalance decimal.Decimal           `json:"total_balance"`
}

type CommissionService interface {
	CreatePayment(ctx context.Context, actor model.Actor, req CreateCommissionPaymentRequest) (*model.CommissionPayment, error)
	GetPayment(ctx context.Context, actor model.Actor, id string) (*model.CommissionPayment, error)
	ListPayments(ctx context.Context, actor model.Actor, filter CommissionPaymentFilter) ([]model.CommissionPayment, int64, error)
	UpdatePayment(ctx context.Context, actor model.Actor, id string, req UpdateCommissionPaymentRequest) (*model.CommissionPayment, error)
	DeletePayment(ctx context.Context, actor model.Actor, id string) error
	Balance(ctx context.Context, actor model.Actor, journalistID string) (*model.CommissionBalance, error)
	Summary(ctx context.Context, actor model.Actor) (*CommissionSummary, error)
}

type commissionService struct {
	repo      repository.CommissionRepository
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	hub       EventPublisher
}

func NewCommissionService(
	repo repository.CommissionRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub EventPublisher,
) CommissionService {
	return &commissionService{repo: repo, userRepo: userRepo, auditRepo: auditRepo, txManager: txManager, hub: publisherOrNoop(hub)}
}

func (s *commissionService) requireJournalist(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("journalist not found")
		}
		return nil, apperror.FromDB(err, "journalist")
	}
	if user.Role != model.RoleJournalist {
		return nil, apperror.Validation("commission payments can only be recorded for journalists")
	}
	return user, nil
}

func (s *commissionService) CreatePayment(ctx context.Context, actor model.Actor, req CreateCommissionPaymentRequest) (*model.CommissionPayment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	journalistID, err := parseID(req.JournalistID, "journalist_id")
	if err != nil {
		return nil, err
	}
	amount, err := parsePositiveAmount(req.Amount.String(), "amount")
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.PaymentDate, "payment_date")
	if err != nil {
		return nil, err
	}
	if err := validatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}
	journalist, err := s.requireJournalist(ctx, journalistID)
	if err != nil {
		return nil, err
	}

	payer := actor.ID
	payment := &model.CommissionPayment{
		JournalistID:    journalistID,
		Amount:          amount,
		PaymentDate:     date,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Notes:           strings.TrimSpace(req.Notes),
		PaidBy:          &payer,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, payment); err != nil {
			return apperror.FromDB(err, "commission payment")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateCommissionPayment, payment.ID.String(), journalist.Name, map[string]interface{}{
			"amount":           amount.StringFixed(2),
			"reference_number": payment.ReferenceNumber,
		})
	})
	if err != nil {
		return nil, err
	}

	payment.Journalist = journalist
	s.hub.Publish(EventCommissionPayment, payment.JournalistID, payment)
	return payment, nil
}

func (s *commissionService) GetPayment(ctx context.Context, actor model.Actor, id string) (*model.CommissionPayment, error) {
	pid, err := parseID(id, "payment id")
	if err != nil {
		return nil, err
	}
	payment, err := s.repo.FindByID(ctx, pid)
	if err != nil {
		return nil, apperror.FromDB(err, "commission payment")
	}
	if !actor.CanActOn(payment.JournalistID) {
		return nil, apperror.Forbidden("you do not have access to this payment")
	}
	return payment, nil
}

func (s *commissionService) ListPayments(ctx context.Context, actor model.Actor, filter CommissionPaymentFilter) ([]model.CommissionPayment, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)
	repoFilter := repository.CommissionPaymentFilter{Page: page, Limit: limit}

	var err error
	switch actor.Role {
	case model.RoleJournalist:
		id := actor.ID
		repoFilter.JournalistID = &id
	case model.RoleAdmin:
		if repoFilter.JournalistID, err = parseOptionalID(filter.JournalistID, "journalist_id"); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, apperror.Forbidden("unknown role")
	}
	if repoFilter.DateFrom, err = parseOptionalDate(filter.DateFrom, "date_from"); err != nil {
		return nil, 0, err
	}
	if repoFilter.DateTo, err = parseOptionalDate(filter.DateTo, "date_to"); err != nil {
		return nil, 0, err
	}

	payments, total, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperror.FromDB(err, "commission payment")
	}
	return payments, total, nil
}

func (s *commissionService) UpdatePayment(ctx context.Context, actor model.Actor, id string, req UpdateCommissionPaymentRequest) (*model.CommissionPayment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	pid, err := parseID(id, "payment id")
	if err != nil {
		return nil, err
	}

	var payment *model.CommissionPayment
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment, err = s.repo.FindByID(txCtx, pid)
		if err != nil {
			return apperror.FromDB(err, "commission payment")
		}

		changes := map[string]interface{}{}
		if req.Amount != nil {
			amount, err := parsePositiveAmount(req.Amount.String(), "amount")
			if err != nil {
				return err
			}
			payment.Amount = amount
			changes["amount"] = amount.StringFixed(2)
		}
		if req.PaymentDate != nil {
			date, err := parseDate(*req.PaymentDate, "payment_date")
			if err != nil {
				return err
			}
			payment.PaymentDate = date
			changes["payment_date"] = *req.PaymentDate
		}
		if req.PaymentMethod != nil {
			if err := validatePaymentMethod(*req.PaymentMethod); err != nil {
				return err
			}
			payment.PaymentMethod = *req.PaymentMethod
			changes["payment_method"] = payment.PaymentMethod
		}
		if req.ReferenceNumber != nil {
			payment.ReferenceNumber = strings.TrimSpace(*req.ReferenceNumber)
			changes["reference_number"] = payment.ReferenceNumber
		}
		if req.Notes != nil {
			payment.Notes = strings.TrimSpace(*req.Notes)
			changes["notes"] = payment.Notes
		}

		if err := s.repo.Update(txCtx, payment); err != nil {
			return apperror.FromDB(err, "commission payment")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateCommissionPayment, payment.ID.String(), "", changes)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *commissionService) DeletePayment(ctx context.Context, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	pid, err := parseID(id, "payment id")
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment, err := s.repo.FindByID(txCtx, pid)
		if err != nil {
			return apperror.FromDB(err, "commission payment")
		}
		if err := s.repo.Delete(txCtx, pid); err != nil {
			return apperror.FromDB(err, "commission payment")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteCommissionPayment, pid.String(), "", map[string]interface{}{
			"journalist_id": payment.JournalistID,
			"amount":        payment.Amount.StringFixed(2),
		})
	})
}

// Balance reconciles earned against paid commission. Journalists only see
// their own; admins pass a journalist id or get the organization total.
func (s *commissionService) Balance(ctx context.Context, actor model.Actor, journalistID string) (*model.CommissionBalance, error) {
	var target *uuid.UUID
	switch actor.Role {
	case model.RoleJournalist:
		if journalistID != "" && journalistID != actor.ID.String() {
			return nil, apperror.Forbidden("journalists can only view their own balance")
		}
		id := actor.ID
		target = &id
	case model.RoleAdmin:
		id, err := parseOptionalID(journalistID, "journalist_id")
		if err != nil {
			return nil, err
		}
		target = id
	default:
		return nil, apperror.Forbidden("unknown role")
	}

	balance := &model.CommissionBalance{JournalistName: "All journalists"}
	if target != nil {
		user, err := s.userRepo.GetByID(ctx, *target)
		if err != nil {
			return nil, apperror.FromDB(err, "journalist")
		}
		balance.JournalistID = user.ID.String()
		balance.JournalistName = user.Name
	}

	earned, err := s.repo.SumEarned(ctx, target)
	if err != nil {
		return nil, apperror.FromDB(err, "sale")
	}
	paid, err := s.repo.SumPaid(ctx, target)
	if err != nil {
		return nil, apperror.FromDB(err, "commission payment")
	}

	balance.Earned = earned
	balance.Paid = paid
	balance.Balance = earned.Sub(paid)
	return balance, nil
}

func (s *commissionService) Summary(ctx context.Context, actor model.Actor) (*CommissionSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.Balances(ctx)
	if err != nil {
		return nil, apperror.FromDB(err, "commission")
	}

	summary := &CommissionSummary{
		Journalists:  rows,
		TotalEarned:  decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalBalance: decimal.Zero,
	}
	for _, r := range rows {
		summary.TotalEarned = summary.TotalEarned.Add(r.Earned)
		summary.TotalPaid = summary.TotalPaid.Add(r.Paid)
	}
	summary.TotalBalance = summary.TotalEarned.Sub(summary.TotalPaid)
	return summary, nil
}
