package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/leads")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.GetLeadsCacheTTL() != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %s", cfg.GetLeadsCacheTTL())
	}
	if cfg.GetLoadingCeiling() != time.Second {
		t.Fatalf("expected 1s loading ceiling, got %s", cfg.GetLoadingCeiling())
	}
	if cfg.GetSessionCacheTTL() != 5*time.Minute {
		t.Fatalf("expected 5m session cache ttl, got %s", cfg.GetSessionCacheTTL())
	}
	admins := cfg.GetBreakGlassAdmins()
	if len(admins) != 1 || admins[0] != "hello@venturemond.com" {
		t.Fatalf("unexpected break-glass admins %v", admins)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadRejectsWildcardCORSWithCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard CORS with credentials")
	}
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	got := splitCSV(" a@x.com, ,b@y.com ,")
	if len(got) != 2 || got[0] != "a@x.com" || got[1] != "b@y.com" {
		t.Fatalf("unexpected split result %v", got)
	}
}
