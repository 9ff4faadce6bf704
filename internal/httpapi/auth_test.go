package httpapi

import (
	"strings"
	"testing"
	"time"

	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	t.Setenv("SEED_MANAGER_PASSWORD", "manager-dev-password")
	t.Setenv("SEED_STAFF_PASSWORD", "staff-dev-password")
	return NewAuthManager("test-secret-key-0123456789abcdef", time.Hour, "481592", memory.NewSeeded())
}

func TestLoginIssuesParsableToken(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "Manager", Password: "manager-dev-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != domain.RoleManager {
		t.Fatalf("expected manager role, got %q", resp.Role)
	}
	if resp.ExpiresAt <= time.Now().Unix() {
		t.Fatalf("token already expired: %d", resp.ExpiresAt)
	}

	actor, err := auth.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "manager" || actor.Role != domain.RoleManager {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.Login(domain.LoginRequest{Username: "manager", Password: "wrong"}); err == nil {
		t.Fatalf("expected error for wrong password")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "nobody", Password: "whatever"}); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	auth := newTestAuth(t)
	resp, err := auth.Login(domain.LoginRequest{Username: "staff", Password: "staff-dev-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := auth.ParseToken(resp.Token + "x"); err == nil {
		t.Fatalf("expected error for tampered token")
	}
	if _, err := auth.ParseToken("not-a-jwt"); err == nil {
		t.Fatalf("expected error for garbage token")
	}

	other := NewAuthManager("another-secret-entirely-9876543210", time.Hour, "481592", memory.NewSeeded())
	if _, err := other.ParseToken(resp.Token); err == nil {
		t.Fatalf("expected error for token signed with a different secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	auth := newTestAuth(t)
	token, err := auth.sign("manager", domain.RoleManager, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestValidateManagerPIN(t *testing.T) {
	auth := newTestAuth(t)

	if !auth.ValidateManagerPIN("481592") {
		t.Fatalf("correct PIN rejected")
	}
	if auth.ValidateManagerPIN("000000") {
		t.Fatalf("wrong PIN accepted")
	}
	if auth.ValidateManagerPIN("") {
		t.Fatalf("empty PIN accepted")
	}
}

func TestCreateStaffValidation(t *testing.T) {
	auth := newTestAuth(t)

	cases := []struct {
		name string
		req  domain.CreateStaffRequest
	}{
		{"short username", domain.CreateStaffRequest{Username: "ab", Password: "secret123"}},
		{"username with space", domain.CreateStaffRequest{Username: "new user", Password: "secret123"}},
		{"short password", domain.CreateStaffRequest{Username: "staf2", Password: "123"}},
		{"bad role", domain.CreateStaffRequest{Username: "staf2", Password: "secret123", Role: "admin"}},
		{"duplicate", domain.CreateStaffRequest{Username: "staff", Password: "secret123"}},
	}
	for _, tc := range cases {
		if _, err := auth.CreateStaff(tc.req); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	account, err := auth.CreateStaff(domain.CreateStaffRequest{
		Username:    "Staf2",
		DisplayName: "Staf Sore",
		Password:    "secret123",
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if account.Username != "staf2" {
		t.Fatalf("expected lowercased username, got %q", account.Username)
	}
	if account.Role != domain.RoleStaff {
		t.Fatalf("expected staff role, got %q", account.Role)
	}

	if _, err := auth.Login(domain.LoginRequest{Username: "staf2", Password: "secret123"}); err != nil {
		t.Fatalf("login as created staff: %v", err)
	}

	found := false
	for _, u := range auth.ListStaff() {
		if u.Username == "staf2" {
			found = true
			if u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, "$2") {
				t.Fatalf("password stored unhashed")
			}
		}
	}
	if !found {
		t.Fatalf("created staff missing from list")
	}
}
