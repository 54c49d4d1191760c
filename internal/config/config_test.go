package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "secret"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("db type = %q", cfg.Database.Type)
	}
	if cfg.MaxFailuresBeforeSwitch != 3 {
		t.Errorf("max failures = %d", cfg.MaxFailuresBeforeSwitch)
	}
	if cfg.Classifier.MaxAttempts != 3 {
		t.Errorf("max attempts = %d", cfg.Classifier.MaxAttempts)
	}
	if cfg.Classifier.AttemptTimeout.Std() != 30*time.Second {
		t.Errorf("attempt timeout = %v", cfg.Classifier.AttemptTimeout)
	}
	if cfg.Auth.TokenTTL.Std() != 24*time.Hour {
		t.Errorf("token ttl = %v", cfg.Auth.TokenTTL)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "key-from-env")
	t.Setenv("TEST_JWT_SECRET", "jwt-from-env")

	path := writeConfig(t, `
providers:
  - type: gemini
    model_name: gemini-2.0-flash
    api_key: ${TEST_GEMINI_KEY}
auth:
  jwt_secret: ${TEST_JWT_SECRET}
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.Providers) != 1 || cfg.Providers[0].APIKey != "key-from-env" {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if cfg.Auth.JWTSecret != "jwt-from-env" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadConfigMissingJWTSecret(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing jwt_secret")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  environment: production
database:
  type: postgres
  path: postgres://localhost/voxnow
classifier:
  temperature: 0.5
  max_attempts: 5
auth:
  jwt_secret: secret
  token_ttl: 1h
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.Environment != "production" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.Type != "postgres" {
		t.Errorf("db type = %q", cfg.Database.Type)
	}
	if cfg.Classifier.Temperature != 0.5 || cfg.Classifier.MaxAttempts != 5 {
		t.Errorf("classifier = %+v", cfg.Classifier)
	}
	if cfg.Auth.TokenTTL.Std() != time.Hour {
		t.Errorf("token ttl = %v", cfg.Auth.TokenTTL)
	}
}
