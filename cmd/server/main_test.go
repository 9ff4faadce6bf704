package main

import (
	"testing"

	"gudangku/backend/internal/config"
)

func TestValidateSecurityConfig(t *testing.T) {
	good := config.Config{
		AuthSecret: "0123456789abcdef0123456789abcdef",
		ManagerPIN: "481592",
	}
	if err := validateSecurityConfig(good); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name string
		cfg  config.Config
	}{
		{"missing secret", config.Config{ManagerPIN: "481592"}},
		{"short secret", config.Config{AuthSecret: "too-short", ManagerPIN: "481592"}},
		{"missing pin", config.Config{AuthSecret: good.AuthSecret}},
		{"short pin", config.Config{AuthSecret: good.AuthSecret, ManagerPIN: "12"}},
		{"weak pin", config.Config{AuthSecret: good.AuthSecret, ManagerPIN: "123456"}},
	}
	for _, tc := range cases {
		if err := validateSecurityConfig(tc.cfg); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestValidatePINStrength(t *testing.T) {
	weak := []string{
		"123456", "654321", "000000", "111111", "999999",
		"121212", "112233", "123123",
		"234567", "876543",
		"777777",
	}
	for _, pin := range weak {
		if err := validatePINStrength(pin); err == nil {
			t.Errorf("weak PIN %q accepted", pin)
		}
	}

	strong := []string{"481592", "270953", "906142"}
	for _, pin := range strong {
		if err := validatePINStrength(pin); err != nil {
			t.Errorf("strong PIN %q rejected: %v", pin, err)
		}
	}
}
