package core_test

import (
	"context"
	"errors"
	"testing"

	"pharmacy-orders/internal/core"
)

func TestUserService_CreateAndAuthenticate(t *testing.T) {
	pool := setupTestDB(t)
	users := core.NewUserService(pool)
	ctx := context.Background()

	u, err := users.CreateUser(ctx, "pharm1", "pharm1@example.com", "correct-horse", core.RolePharmacist)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.PasswordHash == "correct-horse" {
		t.Error("Expected password to be stored hashed")
	}

	got, err := users.Authenticate(ctx, "pharm1", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != u.ID || got.Role != core.RolePharmacist {
		t.Errorf("Unexpected user: %+v", got)
	}

	if _, err := users.Authenticate(ctx, "pharm1", "wrong"); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for a wrong password, got %v", err)
	}
	if _, err := users.Authenticate(ctx, "nobody", "correct-horse"); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for an unknown user, got %v", err)
	}
	if _, err := users.CreateUser(ctx, "pharm1", "", "another-pass", core.RoleCustomer); !errors.Is(err, core.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for a taken username, got %v", err)
	}
}
