package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"
	"salesdesk/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

// CreateSaleRequest binds from JSON or multipart form fields.
// JournalistID is only honoured for admins filing on someone's behalf.
type CreateSaleRequest struct {
	ClientID       string      `json:"client_id" form:"client_id" binding:"required"`
	JournalistID   string      `json:"journalist_id" form:"journalist_id"`
	Amount         json.Number `json:"amount" form:"amount" binding:"required" swaggertype:"string" example:"500.00"`
	PaymentMethod  string      `json:"payment_method" form:"payment_method" binding:"required"`
	PaymentDate    string      `json:"payment_date" form:"payment_date" binding:"required" example:"2024-01-15"`
	AdType         string      `json:"ad_type" form:"ad_type" binding:"required"`
	Description    string      `json:"description" form:"description"`
	CommissionRate json.Number `json:"commission_rate" form:"commission_rate" swaggertype:"string" example:"10.00"`
}

// UpdateSaleRequest replaces only the fields that are set
type UpdateSaleRequest struct {
	ClientID       *string      `json:"client_id" form:"client_id"`
	Amount         *json.Number `json:"amount" form:"amount" swaggertype:"string"`
	PaymentMethod  *string      `json:"payment_method" form:"payment_method"`
	PaymentDate    *string      `json:"payment_date" form:"payment_date"`
	AdType         *string      `json:"ad_type" form:"ad_type"`
	Description    *string      `json:"description" form:"description"`
	CommissionRate *json.Number `json:"commission_rate" form:"commission_rate" swaggertype:"string"`
}

type RejectSaleRequest struct {
	Reason string `json:"reason"`
}

// SaleFilter holds raw query values; JournalistID is ignored for journalists.
type SaleFilter struct {
	Status       string
	JournalistID string
	ClientID     string
	DateFrom     string
	DateTo       string
	Search       string
	Page         int
	Limit        int
}

// --- Interface ---

type SaleService interface {
	CreateSale(ctx context.Context, actor model.Actor, req CreateSaleRequest, proof io.Reader) (*model.Sale, error)
	GetSale(ctx context.Context, actor model.Actor, id string) (*model.Sale, error)
	ListSales(ctx context.Context, actor model.Actor, filter SaleFilter) ([]model.Sale, int64, error)
	UpdateSale(ctx context.Context, actor model.Actor, id string, req UpdateSaleRequest, proof io.Reader) (*model.Sale, error)
	ApproveSale(ctx context.Context, actor model.Actor, id string) (*model.Sale, error)
	RejectSale(ctx context.Context, actor model.Actor, id string, reason string) (*model.Sale, error)
	DeleteSale(ctx context.Context, actor model.Actor, id string) error
	OpenProof(ctx context.Context, actor model.Actor, id string) (*os.File, string, error)
}

type saleService struct {
	saleRepo       repository.SaleRepository
	clientRepo     repository.ClientRepository
	userRepo       repository.UserRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	settings       SettingService
	store          *storage.Store
	hub            EventPublisher
	maxUploadBytes int64
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	clientRepo repository.ClientRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	settings SettingService,
	store *storage.Store,
	hub EventPublisher,
	maxUploadBytes int64,
) SaleService {
	return &saleService{
		saleRepo:       saleRepo,
		clientRepo:     clientRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		settings:       settings,
		store:          store,
		hub:            publisherOrNoop(hub),
		maxUploadBytes: maxUploadBytes,
	}
}

// --- Implementation ---

func validatePaymentMethod(method string) error {
	if !model.IsPaymentMethod(method) {
		return apperror.Validation("invalid payment_method: must be one of %s", strings.Join(model.PaymentMethods, ", "))
	}
	return nil
}

func validateAdType(adType string) error {
	if !model.IsAdType(adType) {
		return apperror.Validation("invalid ad_type: must be one of %s", strings.Join(model.AdTypes, ", "))
	}
	return nil
}

// saveProof stores an uploaded proof of payment and returns its relative path.
func (s *saleService) saveProof(proof io.Reader) (string, error) {
	if proof == nil {
		return "", nil
	}
	rel, _, err := s.store.SaveUpload(storage.ProofsDir, proof, s.maxUploadBytes)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return "", apperror.Validation("proof_of_payment exceeds the %d MB limit", s.maxUploadBytes>>20)
	case errors.Is(err, storage.ErrUnsupportedType):
		return "", apperror.Validation("proof_of_payment must be a JPEG, PNG or PDF file")
	case errors.Is(err, storage.ErrEmptyFile):
		return "", apperror.Validation("proof_of_payment is empty")
	case err != nil:
		return "", apperror.Internal("failed to store proof of payment", err)
	}
	return rel, nil
}

func (s *saleService) discard(rel string) {
	if rel == "" {
		return
	}
	if err := s.store.Remove(rel); err != nil {
		log.Printf("failed to remove file %s: %v", rel, err)
	}
}

func (s *saleService) resolveJournalist(ctx context.Context, actor model.Actor, requested string) (uuid.UUID, error) {
	switch actor.Role {
	case model.RoleJournalist:
		if requested != "" && requested != actor.ID.String() {
			return uuid.Nil, apperror.Forbidden("journalists can only record their own sales")
		}
		return actor.ID, nil
	case model.RoleAdmin:
		if requested == "" {
			return uuid.Nil, apperror.Validation("journalist_id is required when an admin records a sale")
		}
		id, err := parseID(requested, "journalist_id")
		if err != nil {
			return uuid.Nil, err
		}
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, apperror.NotFound("journalist not found")
			}
			return uuid.Nil, apperror.FromDB(err, "journalist")
		}
		if user.Role != model.RoleJournalist {
			return uuid.Nil, apperror.Validation("sales can only be recorded for journalists")
		}
		if !user.IsActive {
			return uuid.Nil, apperror.Validation("journalist account is deactivated")
		}
		return user.ID, nil
	}
	return uuid.Nil, apperror.Forbidden("unknown role")
}

func (s *saleService) requireClient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.clientRepo.FindByID(ctx, id); err != nil {
		return apperror.FromDB(err, "client")
	}
	return nil
}

func (s *saleService) CreateSale(ctx context.Context, actor model.Actor, req CreateSaleRequest, proof io.Reader) (sale *model.Sale, err error) {
	amount, err := parsePositiveAmount(req.Amount.String(), "amount")
	if err != nil {
		return nil, err
	}
	if err := validatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}
	if err := validateAdType(req.AdType); err != nil {
		return nil, err
	}
	paymentDate, err := parseDate(req.PaymentDate, "payment_date")
	if err != nil {
		return nil, err
	}
	clientID, err := parseID(req.ClientID, "client_id")
	if err != nil {
		return nil, err
	}

	rate := s.settings.CommissionRate(ctx)
	if req.CommissionRate != "" {
		if rate, err = parseRate(req.CommissionRate.String()); err != nil {
			return nil, err
		}
	}

	journalistID, err := s.resolveJournalist(ctx, actor, strings.TrimSpace(req.JournalistID))
	if err != nil {
		return nil, err
	}
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, err
	}

	proofPath, err := s.saveProof(proof)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.discard(proofPath)
		}
	}()

	sale = &model.Sale{
		ClientID:       clientID,
		JournalistID:   journalistID,
		Amount:         amount,
		PaymentMethod:  req.PaymentMethod,
		PaymentDate:    paymentDate,
		AdType:         req.AdType,
		Description:    strings.TrimSpace(req.Description),
		ProofOfPayment: proofPath,
		CommissionRate: rate,
		Status:         model.SaleStatusPending,
	}
	sale.Recompute()

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.saleRepo.Create(txCtx, sale); err != nil {
			return apperror.FromDB(err, "sale")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateSale, sale.ID.String(), req.AdType, map[string]interface{}{
			"amount":            sale.Amount.StringFixed(2),
			"commission_amount": sale.CommissionAmount.StringFixed(2),
			"journalist_id":     sale.JournalistID,
		})
	})
	if err != nil {
		return nil, err
	}

	created, err := s.saleRepo.FindByIDWithRelations(ctx, sale.ID)
	if err != nil {
		// the row is committed; keep the file and hand back what we have
		log.Printf("failed to reload sale %s: %v", sale.ID, err)
		err = nil
		created = sale
	}
	s.hub.Publish(EventSaleCreated, created.JournalistID, created)
	return created, nil
}

// loadOwned fetches a sale and enforces that the actor may act on it.
func (s *saleService) loadOwned(ctx context.Context, actor model.Actor, id string) (*model.Sale, error) {
	sid, err := parseID(id, "sale id")
	if err != nil {
		return nil, err
	}
	sale, err := s.saleRepo.FindByIDWithRelations(ctx, sid)
	if err != nil {
		return nil, apperror.FromDB(err, "sale")
	}
	if !actor.CanActOn(sale.JournalistID) {
		return nil, apperror.Forbidden("you do not have access to this sale")
	}
	return sale, nil
}

func (s *saleService) GetSale(ctx context.Context, actor model.Actor, id string) (*model.Sale, error) {
	return s.loadOwned(ctx, actor, id)
}

// toRepoFilter parses raw query values and scopes journalists to their own sales.
func toRepoFilter(actor model.Actor, filter SaleFilter) (repository.SaleListFilter, error) {
	out := repository.SaleListFilter{Search: filter.Search, Page: filter.Page, Limit: filter.Limit}

	switch filter.Status {
	case "", model.SaleStatusPending, model.SaleStatusApproved, model.SaleStatusRejected:
		out.Status = filter.Status
	default:
		return out, apperror.Validation("invalid status %q", filter.Status)
	}

	var err error
	if out.ClientID, err = parseOptionalID(filter.ClientID, "client_id"); err != nil {
		return out, err
	}
	if out.DateFrom, err = parseOptionalDate(filter.DateFrom, "date_from"); err != nil {
		return out, err
	}
	if out.DateTo, err = parseOptionalDate(filter.DateTo, "date_to"); err != nil {
		return out, err
	}
	if out.DateFrom != nil && out.DateTo != nil && out.DateTo.Before(*out.DateFrom) {
		return out, apperror.Validation("date_to must not be before date_from")
	}

	switch actor.Role {
	case model.RoleJournalist:
		id := actor.ID
		out.JournalistID = &id
	case model.RoleAdmin:
		if out.JournalistID, err = parseOptionalID(filter.JournalistID, "journalist_id"); err != nil {
			return out, err
		}
	default:
		return out, apperror.Forbidden("unknown role")
	}
	return out, nil
}

func (s *saleService) ListSales(ctx context.Context, actor model.Actor, filter SaleFilter) ([]model.Sale, int64, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	repoFilter, err := toRepoFilter(actor, filter)
	if err != nil {
		return nil, 0, err
	}
	sales, total, err := s.saleRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperror.FromDB(err, "sale")
	}
	return sales, total, nil
}

func (s *saleService) UpdateSale(ctx context.Context, actor model.Actor, id string, req UpdateSaleRequest, proof io.Reader) (updated *model.Sale, err error) {
	sale, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !sale.IsPending() {
		return nil, apperror.InvalidState("sale is %s; only pending sales can be edited", sale.Status)
	}

	changes := map[string]interface{}{}
	if req.ClientID != nil {
		clientID, err := parseID(*req.ClientID, "client_id")
		if err != nil {
			return nil, err
		}
		if clientID != sale.ClientID {
			if err := s.requireClient(ctx, clientID); err != nil {
				return nil, err
			}
			sale.ClientID = clientID
			changes["client_id"] = clientID
		}
	}
	if req.Amount != nil {
		amount, err := parsePositiveAmount(req.Amount.String(), "amount")
		if err != nil {
			return nil, err
		}
		sale.Amount = amount
		changes["amount"] = amount.StringFixed(2)
	}
	if req.CommissionRate != nil {
		rate, err := parseRate(req.CommissionRate.String())
		if err != nil {
			return nil, err
		}
		sale.CommissionRate = rate
		changes["commission_rate"] = rate.StringFixed(2)
	}
	if req.PaymentMethod != nil {
		if err := validatePaymentMethod(*req.PaymentMethod); err != nil {
			return nil, err
		}
		sale.PaymentMethod = *req.PaymentMethod
		changes["payment_method"] = sale.PaymentMethod
	}
	if req.PaymentDate != nil {
		date, err := parseDate(*req.PaymentDate, "payment_date")
		if err != nil {
			return nil, err
		}
		sale.PaymentDate = date
		changes["payment_date"] = *req.PaymentDate
	}
	if req.AdType != nil {
		if err := validateAdType(*req.AdType); err != nil {
			return nil, err
		}
		sale.AdType = *req.AdType
		changes["ad_type"] = sale.AdType
	}
	if req.Description != nil {
		sale.Description = strings.TrimSpace(*req.Description)
		changes["description"] = sale.Description
	}
	sale.Recompute()
	changes["commission_amount"] = sale.CommissionAmount.StringFixed(2)

	oldProof := sale.ProofOfPayment
	newProof, err := s.saveProof(proof)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.discard(newProof)
		}
	}()
	if newProof != "" {
		sale.ProofOfPayment = newProof
		changes["proof_of_payment"] = "replaced"
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.saleRepo.UpdatePending(txCtx, sale)
		if err != nil {
			return apperror.FromDB(err, "sale")
		}
		if !ok {
			return apperror.InvalidState("sale is no longer pending")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateSale, sale.ID.String(), sale.AdType, changes)
	})
	if err != nil {
		return nil, err
	}

	if newProof != "" && oldProof != "" {
		s.discard(oldProof)
	}

	updated, err = s.saleRepo.FindByIDWithRelations(ctx, sale.ID)
	if err != nil {
		log.Printf("failed to reload sale %s: %v", sale.ID, err)
		err = nil
		updated = sale
	}
	s.hub.Publish(EventSaleUpdated, updated.JournalistID, updated)
	return updated, nil
}

// transition moves a pending sale to a terminal state inside a transaction.
func (s *saleService) transition(ctx context.Context, actor model.Actor, id string, to string, updates map[string]interface{}, action string, details map[string]interface{}) (*model.Sale, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	sid, err := parseID(id, "sale id")
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByIDForUpdate(txCtx, sid)
		if err != nil {
			return apperror.FromDB(err, "sale")
		}
		if !sale.IsPending() {
			return apperror.InvalidState("sale is already %s", sale.Status)
		}
		updates["status"] = to
		ok, err := s.saleRepo.Transition(txCtx, sid, model.SaleStatusPending, updates)
		if err != nil {
			return apperror.FromDB(err, "sale")
		}
		if !ok {
			return apperror.InvalidState("sale is no longer pending")
		}
		return writeAudit(txCtx, s.auditRepo, actor, action, sid.String(), sale.AdType, details)
	})
	if err != nil {
		return nil, err
	}

	sale, err := s.saleRepo.FindByIDWithRelations(ctx, sid)
	if err != nil {
		return nil, apperror.FromDB(err, "sale")
	}
	return sale, nil
}

func (s *saleService) ApproveSale(ctx context.Context, actor model.Actor, id string) (*model.Sale, error) {
	now := time.Now().UTC()
	approver := actor.ID
	sale, err := s.transition(ctx, actor, id, model.SaleStatusApproved,
		map[string]interface{}{"approved_by": approver, "approved_at": now},
		model.ActionApproveSale, map[string]interface{}{"approved_at": now})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(EventSaleApproved, sale.JournalistID, sale)
	return sale, nil
}

// RejectSale stores the reason exactly as given; a blank reason is refused.
func (s *saleService) RejectSale(ctx context.Context, actor model.Actor, id string, reason string) (*model.Sale, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperror.Validation("rejection reason is required")
	}
	now := time.Now().UTC()
	approver := actor.ID
	sale, err := s.transition(ctx, actor, id, model.SaleStatusRejected,
		map[string]interface{}{"approved_by": approver, "approved_at": now, "rejection_reason": reason},
		model.ActionRejectSale, map[string]interface{}{"reason": reason})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(EventSaleRejected, sale.JournalistID, sale)
	return sale, nil
}

func (s *saleService) DeleteSale(ctx context.Context, actor model.Actor, id string) error {
	sale, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if !sale.IsPending() {
		return apperror.InvalidState("sale is %s; only pending sales can be deleted", sale.Status)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.saleRepo.DeletePending(txCtx, sale.ID)
		if err != nil {
			return apperror.FromDB(err, "sale")
		}
		if !ok {
			return apperror.InvalidState("sale is no longer pending")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteSale, sale.ID.String(), sale.AdType, map[string]interface{}{
			"amount": sale.Amount.StringFixed(2),
		})
	})
	if err != nil {
		return err
	}

	s.discard(sale.ProofOfPayment)
	s.hub.Publish(EventSaleDeleted, sale.JournalistID, map[string]interface{}{"id": sale.ID})
	return nil
}

// OpenProof returns the stored proof file and a download name for it.
func (s *saleService) OpenProof(ctx context.Context, actor model.Actor, id string) (*os.File, string, error) {
	sale, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	if sale.ProofOfPayment == "" {
		return nil, "", apperror.NotFound("sale has no proof of payment")
	}
	f, err := s.store.Open(sale.ProofOfPayment)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", apperror.NotFound("proof of payment file is missing")
		}
		return nil, "", apperror.Internal("failed to open proof of payment", err)
	}
	return f, "proof-" + sale.ID.String() + path.Ext(sale.ProofOfPayment), nil
}
