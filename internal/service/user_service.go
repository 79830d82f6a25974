package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"salesdesk/internal/apperror"
	"salesdesk/internal/auth"
	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

type BootstrapRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        model.Role `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type UserFilter struct {
	Role   string
	Search string
	Page   int
	Limit  int
}

// UserService covers sign-in and account administration
type UserService interface {
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	Bootstrap(ctx context.Context, req BootstrapRequest) (*TokenResponse, error)
	Me(ctx context.Context, actor model.Actor) (*UserResponse, error)
	ChangePassword(ctx context.Context, actor model.Actor, req ChangePasswordRequest) error
	CreateUser(ctx context.Context, actor model.Actor, req CreateUserRequest) (*UserResponse, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor model.Actor, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor model.Actor, id string) error
}

type userService struct {
	repo           repository.UserRepository
	saleRepo       repository.SaleRepository
	commissionRepo repository.CommissionRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	issuer         *auth.TokenIssuer
}

// NewUserService returns a new instance of UserService
func NewUserService(
	repo repository.UserRepository,
	saleRepo repository.SaleRepository,
	commissionRepo repository.CommissionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	issuer *auth.TokenIssuer,
) UserService {
	return &userService{
		repo:           repo,
		saleRepo:       saleRepo,
		commissionRepo: commissionRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		issuer:         issuer,
	}
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperror.Internal("failed to hash password", err)
	}
	return string(hashed), nil
}

// emailTaken reports whether another user already holds email.
func (s *userService) emailTaken(ctx context.Context, email string, except uuid.UUID) (bool, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.FromDB(err, "user")
	}
	return existing.ID != except, nil
}

func (s *userService) issue(user *model.User) (*TokenResponse, error) {
	token, expires, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperror.Internal("failed to generate token", err)
	}
	return &TokenResponse{Token: token, ExpiresAt: expires, User: *mapToResponse(user)}, nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, apperror.FromDB(err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("account is deactivated")
	}

	now := time.Now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, apperror.FromDB(err, "user")
	}
	user.LastLoginAt = &now

	return s.issue(user)
}

// Bootstrap creates the first administrator. It is only available while the
// user table is empty.
func (s *userService) Bootstrap(ctx context.Context, req BootstrapRequest) (*TokenResponse, error) {
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    normalizeEmail(req.Email),
		Password: hashed,
		Role:     model.RoleAdmin,
		IsActive: true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := s.repo.Count(txCtx)
		if err != nil {
			return apperror.FromDB(err, "user")
		}
		if count > 0 {
			return apperror.Forbidden("bootstrap is disabled once users exist")
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			return apperror.FromDB(err, "user")
		}
		return writeAudit(txCtx, s.auditRepo, model.Actor{ID: user.ID}, model.ActionCreateUser, user.ID.String(), user.Email,
			map[string]interface{}{"role": user.Role, "bootstrap": true})
	})
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *userService) Me(ctx context.Context, actor model.Actor) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, apperror.FromDB(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) ChangePassword(ctx context.Context, actor model.Actor, req ChangePasswordRequest) error {
	user, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		return apperror.FromDB(err, "user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperror.Validation("current password is incorrect")
	}
	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.repo.Update(ctx, user); err != nil {
		return apperror.FromDB(err, "user")
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, actor model.Actor, req CreateUserRequest) (*UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}

	email := normalizeEmail(req.Email)
	taken, err := s.emailTaken(ctx, email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Conflict("email already exists")
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
		Role:     role,
		IsActive: true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return apperror.FromDB(err, "user")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateUser, user.ID.String(), user.Email,
			map[string]interface{}{"role": user.Role})
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := parseID(id, "user id")
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, filter UserFilter) ([]UserResponse, int64, error) {
	if filter.Role != "" {
		if _, err := model.ParseRole(filter.Role); err != nil {
			return nil, 0, apperror.Validation("%s", err.Error())
		}
	}
	page, limit := normalizePage(filter.Page, filter.Limit)

	users, total, err := s.repo.List(ctx, repository.UserListFilter{
		Role:   filter.Role,
		Search: filter.Search,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, 0, apperror.FromDB(err, "user")
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor model.Actor, id string, req UpdateUserRequest) (*UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	uid, err := parseID(id, "user id")
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err = s.repo.GetByID(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "user")
		}

		changes := map[string]interface{}{}
		if req.Role != "" {
			role, err := model.ParseRole(req.Role)
			if err != nil {
				return apperror.Validation("%s", err.Error())
			}
			if uid == actor.ID && role != user.Role {
				return apperror.Forbidden("you cannot change your own role")
			}
			if user.Role == model.RoleJournalist && role != model.RoleJournalist {
				if err := s.requireEmptyLedger(txCtx, uid, "change the role of"); err != nil {
					return err
				}
			}
			user.Role = role
			changes["role"] = role
		}
		if name := strings.TrimSpace(req.Name); name != "" {
			user.Name = name
			changes["name"] = name
		}
		if req.Email != "" {
			email := normalizeEmail(req.Email)
			if email != user.Email {
				taken, err := s.emailTaken(txCtx, email, user.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperror.Conflict("email already exists")
				}
				user.Email = email
				changes["email"] = email
			}
		}
		if req.IsActive != nil {
			if uid == actor.ID && !*req.IsActive {
				return apperror.Forbidden("you cannot deactivate your own account")
			}
			user.IsActive = *req.IsActive
			changes["is_active"] = *req.IsActive
		}
		if req.Password != "" {
			hashed, err := hashPassword(req.Password)
			if err != nil {
				return err
			}
			user.Password = hashed
			changes["password"] = "changed"
		}

		if err := s.repo.Update(txCtx, user); err != nil {
			return apperror.FromDB(err, "user")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateUser, user.ID.String(), user.Email, changes)
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

// DeleteUser hard-deletes an account. Users that still own sales or commission
// payments are kept so financial history stays intact.
func (s *userService) DeleteUser(ctx context.Context, actor model.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	uid, err := parseID(id, "user id")
	if err != nil {
		return err
	}
	if uid == actor.ID {
		return apperror.Forbidden("you cannot delete your own account")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "user")
		}

		if err := s.requireEmptyLedger(txCtx, uid, "delete"); err != nil {
			return err
		}

		if err := s.repo.Delete(txCtx, uid); err != nil {
			return apperror.FromDB(err, "user")
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteUser, uid.String(), user.Email, map[string]interface{}{"name": user.Name})
	})
}

// requireEmptyLedger fails with Conflict when uid has sales or commission
// payments, which must stay attributed to a journalist.
func (s *userService) requireEmptyLedger(ctx context.Context, uid uuid.UUID, verb string) error {
	sales, err := s.saleRepo.CountByJournalist(ctx, uid)
	if err != nil {
		return apperror.FromDB(err, "sale")
	}
	if sales > 0 {
		return apperror.Conflict("cannot %s a user with %d recorded sales; deactivate the account instead", verb, sales)
	}
	_, payments, err := s.commissionRepo.List(ctx, repository.CommissionPaymentFilter{JournalistID: &uid, Page: 1, Limit: 1})
	if err != nil {
		return apperror.FromDB(err, "commission payment")
	}
	if payments > 0 {
		return apperror.Conflict("cannot %s a user with recorded commission payments; deactivate the account instead", verb)
	}
	return nil
}
