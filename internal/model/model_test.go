package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"admin", "journalist"} {
		if r, err := ParseRole(raw); err != nil || string(r) != raw {
			t.Errorf("ParseRole(%q) = %q, %v", raw, r, err)
		}
	}
	for _, raw := range []string{"", "Admin", "manager", "staff"} {
		if _, err := ParseRole(raw); err == nil {
			t.Errorf("ParseRole(%q) accepted", raw)
		}
	}
}

func TestComputeCommission(t *testing.T) {
	tests := []struct {
		amount, rate, want string
	}{
		{"500", "10", "50.00"},
		{"99.99", "12.5", "12.50"},
		{"0.05", "10", "0.01"},
		{"1234.56", "0", "0.00"},
		{"200", "100", "200.00"},
	}
	for _, tt := range tests {
		got := ComputeCommission(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.rate))
		if got.StringFixed(2) != tt.want {
			t.Errorf("ComputeCommission(%s, %s) = %s, want %s", tt.amount, tt.rate, got.StringFixed(2), tt.want)
		}
	}
}

func TestActorCanActOn(t *testing.T) {
	owner := uuid.New()
	if !(Actor{ID: uuid.New(), Role: RoleAdmin}).CanActOn(owner) {
		t.Error("admin should act on any record")
	}
	if !(Actor{ID: owner, Role: RoleJournalist}).CanActOn(owner) {
		t.Error("journalist should act on own record")
	}
	if (Actor{ID: uuid.New(), Role: RoleJournalist}).CanActOn(owner) {
		t.Error("journalist acted on another journalist's record")
	}
}

func TestEnums(t *testing.T) {
	if !IsPaymentMethod("Bank Transfer") || IsPaymentMethod("bank transfer") {
		t.Error("payment methods must match exactly")
	}
	if !IsAdType("WhatsApp Channel") || IsAdType("Billboard") {
		t.Error("ad types must match exactly")
	}
}
