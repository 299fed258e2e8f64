package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/sla_test")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "development" {
		t.Errorf("got environment %q", cfg.Environment)
	}
	if cfg.HTTP.Host != "0.0.0.0" || cfg.HTTP.Port != 7090 {
		t.Errorf("unexpected HTTP defaults: %+v", cfg.HTTP)
	}
	if cfg.Company.Name == "" {
		t.Error("company name default missing")
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DB_DSN")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/sla_test")
	t.Setenv("JWT_ACCESS_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing JWT_ACCESS_SECRET")
	}
}

func TestLoadBlobRequiresEndpoint(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/sla_test")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("BLOB_BUCKET", "signatures")
	t.Setenv("BLOB_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for bucket without endpoint")
	}
}
