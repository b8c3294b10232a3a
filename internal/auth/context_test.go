package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:   1,
		Username: "alice",
		IsStaff:  true,
		TokenKey: "abc",
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
	if !got.IsStaff {
		t.Error("IsStaff = false, want true")
	}
	if got.TokenKey != "abc" {
		t.Errorf("TokenKey = %q, want %q", got.TokenKey, "abc")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestTokenKey(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{TokenKey: "k"})
	if TokenKey(ctx) != "k" {
		t.Errorf("TokenKey = %q, want %q", TokenKey(ctx), "k")
	}
	if TokenKey(context.Background()) != "" {
		t.Error("expected empty key for missing context")
	}
}

func TestIsStaff(t *testing.T) {
	if !IsStaff(WithAuth(context.Background(), AuthContext{IsStaff: true})) {
		t.Error("expected IsStaff = true")
	}
	if IsStaff(WithAuth(context.Background(), AuthContext{})) {
		t.Error("expected IsStaff = false for regular user")
	}
	if IsStaff(context.Background()) {
		t.Error("expected IsStaff = false for missing context")
	}
}
