package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGIN", "DATABASE_URL", "REDIS_ADDR", "REDIS_DB",
		"DEFAULT_DEVICE_ID", "AUTH_SECRET", "ACCESS_TOKEN_TTL_MINUTES",
		"MANAGER_PIN", "MAX_ITEMS", "MAX_VENDORS", "MAX_TAXES",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("default port = %q", cfg.Port)
	}
	if cfg.AllowedOrigin != "http://127.0.0.1:3000" {
		t.Errorf("default origin = %q", cfg.AllowedOrigin)
	}
	if cfg.DeviceID != "device-1" {
		t.Errorf("default device id = %q", cfg.DeviceID)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Errorf("default token ttl = %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.MaxItems != 0 || cfg.MaxVendors != 0 || cfg.MaxTaxes != 0 {
		t.Errorf("caps should default to unlimited, got %d/%d/%d", cfg.MaxItems, cfg.MaxVendors, cfg.MaxTaxes)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_DEVICE_ID", "kiosk-2")
	t.Setenv("MAX_ITEMS", "100")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("AUTH_SECRET", "  padded-secret  ")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.DeviceID != "kiosk-2" {
		t.Errorf("device id = %q", cfg.DeviceID)
	}
	if cfg.MaxItems != 100 {
		t.Errorf("max items = %d", cfg.MaxItems)
	}
	if cfg.AccessTokenTTLMinutes != 60 {
		t.Errorf("token ttl = %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.AuthSecret != "padded-secret" {
		t.Errorf("auth secret not trimmed: %q", cfg.AuthSecret)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("redis db = %d", cfg.RedisDB)
	}
}

func TestLoadRejectsMalformedInts(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "not-a-number")
	t.Setenv("MAX_ITEMS", "-5")
	t.Setenv("MAX_VENDORS", "abc")

	cfg := Load()
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Errorf("malformed ttl should fall back, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.MaxItems != 0 {
		t.Errorf("negative cap should fall back to unlimited, got %d", cfg.MaxItems)
	}
	if cfg.MaxVendors != 0 {
		t.Errorf("malformed cap should fall back to unlimited, got %d", cfg.MaxVendors)
	}
}
