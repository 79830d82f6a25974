package service

import (
	"context"
	"strings"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"
)

type CreateClientRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone" binding:"required"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
}

// UpdateClientRequest replaces only the fields that are set
type UpdateClientRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Address       *string `json:"address"`
}

type ClientFilter struct {
	Search string
	Page   int
	Limit  int
}

type ClientService interface {
	CreateClient(ctx context.Context, actor model.Actor, req CreateClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, int64, error)
	UpdateClient(ctx context.Context, actor model.Actor, id string, req UpdateClientRequest) (*model.Client, error)
	DeleteClient(ctx context.Context, actor model.Actor, id string) error
}

type clientService struct {
	repo      repository.ClientRepository
	saleRepo  repository.SaleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewClientService(
	repo repository.ClientRepository,
	saleRepo repository.SaleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ClientService {
	return &clientService{repo: repo, saleRepo: saleRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *clientService) CreateClient(ctx context.Context, actor model.Actor, req CreateClientRequest) (*model.Client, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if phone == "" {
		return nil, apperror.Validation("phone is required")
	}

	creator := actor.ID
	client := &model.Client{
		Name:          name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         phone,
		Email:         strings.TrimSpace(req.Email),
		Address:       strings.TrimSpace(req.Address),
		CreatedBy:     &creator,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, client); err != nil {
			return apperror.FromDB(err, "client")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateClient, client.ID.String(), client.Name,
			map[string]interface{}{"phone": client.Phone})
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, id string) (*model.Client, error) {
	cid, err := parseID(id, "client id")
	if err != nil {
		return nil, err
	}
	client, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		return nil, apperror.FromDB(err, "client")
	}
	return client, nil
}

func (s *clientService) ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)
	clients, total, err := s.repo.List(ctx, repository.ClientListFilter{Search: filter.Search, Page: page, Limit: limit})
	if err != nil {
		return nil, 0, apperror.FromDB(err, "client")
	}
	return clients, total, nil
}

func (s *clientService) UpdateClient(ctx context.Context, actor model.Actor, id string, req UpdateClientRequest) (*model.Client, error) {
	cid, err := parseID(id, "client id")
	if err != nil {
		return nil, err
	}

	var client *model.Client
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err = s.repo.FindByID(txCtx, cid)
		if err != nil {
			return apperror.FromDB(err, "client")
		}

		changes := map[string]interface{}{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.Validation("name cannot be empty")
			}
			client.Name = name
			changes["name"] = name
		}
		if req.Phone != nil {
			phone := strings.TrimSpace(*req.Phone)
			if phone == "" {
				return apperror.Validation("phone cannot be empty")
			}
			client.Phone = phone
			changes["phone"] = phone
		}
		if req.ContactPerson != nil {
			client.ContactPerson = strings.TrimSpace(*req.ContactPerson)
			changes["contact_person"] = client.ContactPerson
		}
		if req.Email != nil {
			client.Email = strings.TrimSpace(*req.Email)
			changes["email"] = client.Email
		}
		if req.Address != nil {
			client.Address = strings.TrimSpace(*req.Address)
			changes["address"] = client.Address
		}

		if err := s.repo.Update(txCtx, client); err != nil {
			return apperror.FromDB(err, "client")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateClient, client.ID.String(), client.Name, changes)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// DeleteClient removes a client that has no sales. Admin only.
func (s *clientService) DeleteClient(ctx context.Context, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	cid, err := parseID(id, "client id")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.repo.FindByID(txCtx, cid)
		if err != nil {
			return apperror.FromDB(err, "client")
		}
		sales, err := s.saleRepo.CountByClient(txCtx, cid)
		if err != nil {
			return apperror.FromDB(err, "sale")
		}
		if sales > 0 {
			return apperror.Conflict("cannot delete client with %d associated sales", sales)
		}
		if err := s.repo.Delete(txCtx, cid); err != nil {
			return apperror.FromDB(err, "client")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteClient, cid.String(), client.Name, nil)
	})
}
