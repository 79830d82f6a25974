package service

import (
	"context"
	"testing"

	"salesdesk/internal/apperror"
)

func TestClientLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	j := env.journalist(t, "Jane", "jane@example.com")

	_, err := env.clients.CreateClient(ctx, j, CreateClientRequest{Name: "  ", Phone: "123"})
	assertKind(t, err, apperror.KindValidation)

	c := env.client(t, j, "Acme")
	if c.CreatedBy == nil || *c.CreatedBy != j.ID {
		t.Fatalf("created_by = %v, want %s", c.CreatedBy, j.ID)
	}

	name := "Acme Holdings"
	updated, err := env.clients.UpdateClient(ctx, j, c.ID.String(), UpdateClientRequest{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.Phone != c.Phone {
		t.Fatalf("updated client = %+v", updated)
	}

	list, total, err := env.clients.ListClients(ctx, ClientFilter{Search: "holdings"})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("search: total=%d err=%v", total, err)
	}

	assertKind(t, env.clients.DeleteClient(ctx, j, c.ID.String()), apperror.KindForbidden)

	sale := env.sale(t, j, c, "10", "2024-01-01")
	assertKind(t, env.clients.DeleteClient(ctx, env.admin, c.ID.String()), apperror.KindConflict)

	if err := env.sales.DeleteSale(ctx, j, sale.ID.String()); err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	if err := env.clients.DeleteClient(ctx, env.admin, c.ID.String()); err != nil {
		t.Fatalf("delete client: %v", err)
	}
	_, err = env.clients.GetClient(ctx, c.ID.String())
	assertKind(t, err, apperror.KindNotFound)
}
