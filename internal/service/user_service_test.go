package service

import (
	"context"
	"testing"

	"salesdesk/internal/apperror"
	"salesdesk/internal/model"
)

func TestBootstrapOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	if env.admin.Role != model.RoleAdmin {
		t.Fatalf("bootstrap role = %q", env.admin.Role)
	}

	_, err := env.users.Bootstrap(context.Background(), BootstrapRequest{Name: "Again", Email: "again@example.com", Password: "secret123"})
	assertKind(t, err, apperror.KindForbidden)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "Jane@Example.com")

	res, err := env.users.Login(ctx, LoginUserRequest{Email: "jane@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.User.ID != j.ID || res.User.LastLoginAt == nil {
		t.Fatalf("login response = %+v", res)
	}

	_, err = env.users.Login(ctx, LoginUserRequest{Email: "jane@example.com", Password: "wrong"})
	assertKind(t, err, apperror.KindUnauthorized)
	_, err = env.users.Login(ctx, LoginUserRequest{Email: "nobody@example.com", Password: "secret123"})
	assertKind(t, err, apperror.KindUnauthorized)

	inactive := false
	if _, err := env.users.UpdateUser(ctx, env.admin, j.ID.String(), UpdateUserRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = env.users.Login(ctx, LoginUserRequest{Email: "jane@example.com", Password: "secret123"})
	assertKind(t, err, apperror.KindForbidden)
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")

	_, err := env.users.CreateUser(ctx, env.admin, CreateUserRequest{Name: "Dup", Email: "JANE@example.com", Password: "secret123", Role: "journalist"})
	assertKind(t, err, apperror.KindConflict)
	_, err = env.users.CreateUser(ctx, env.admin, CreateUserRequest{Name: "X", Email: "x@example.com", Password: "secret123", Role: "manager"})
	assertKind(t, err, apperror.KindValidation)
	_, err = env.users.CreateUser(ctx, j, CreateUserRequest{Name: "X", Email: "x@example.com", Password: "secret123", Role: "journalist"})
	assertKind(t, err, apperror.KindForbidden)

	_, err = env.users.UpdateUser(ctx, env.admin, env.admin.ID.String(), UpdateUserRequest{Role: "journalist"})
	assertKind(t, err, apperror.KindForbidden)
	assertKind(t, env.users.DeleteUser(ctx, env.admin, env.admin.ID.String()), apperror.KindForbidden)

	c := env.client(t, j, "Acme")
	env.sale(t, j, c, "10", "2024-01-01")
	assertKind(t, env.users.DeleteUser(ctx, env.admin, j.ID.String()), apperror.KindConflict)

	idle := env.journalist(t, "Idle", "idle@example.com")
	if err := env.users.DeleteUser(ctx, env.admin, idle.ID.String()); err != nil {
		t.Fatalf("delete idle user: %v", err)
	}
	_, err = env.users.GetUser(ctx, idle.ID.String())
	assertKind(t, err, apperror.KindNotFound)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")

	err := env.users.ChangePassword(ctx, j, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newsecret"})
	assertKind(t, err, apperror.KindValidation)

	if err := env.users.ChangePassword(ctx, j, ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "newsecret"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.users.Login(ctx, LoginUserRequest{Email: "jane@example.com", Password: "newsecret"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
