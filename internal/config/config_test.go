package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{
			Addrs: []string{},
		},
		Logging: LoggingConfig{Env: "local"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_InvalidLoggingEnv(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Logging:  LoggingConfig{Env: "staging"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid logging env")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Database.KeyPrefix != "vecbridge:" {
		t.Errorf("expected KeyPrefix='vecbridge:', got %q", cfg.Database.KeyPrefix)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSWEFConstruct=400, got %d", cfg.Index.HNSWEFConstruct)
	}
	if cfg.Logging.Env != "local" {
		t.Errorf("expected Env='local', got %q", cfg.Logging.Env)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{ReadinessTimeout: 15, KeyPrefix: "custom:"},
		Index:    IndexConfig{HNSWM: 16, HNSWEFConstruct: 200},
		Logging:  LoggingConfig{Env: "prod"},
	}
	cfg.ApplyDefaults()

	if cfg.Database.ReadinessTimeout != 15 {
		t.Errorf("expected ReadinessTimeout=15, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Database.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Database.KeyPrefix)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
	if cfg.Logging.Env != "prod" {
		t.Errorf("expected Env='prod', got %q", cfg.Logging.Env)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("VECBRIDGE_TEST_API_KEY", "sk-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "vecbridge.yaml")
	data := []byte(`
database:
  addrs: ["localhost:6379"]
  password: "${VECBRIDGE_TEST_PASSWORD:-changeme}"
embedding:
  api_key: "${VECBRIDGE_TEST_API_KEY}"
  model: text-embedding-3-small
  dimensions: 1536
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.APIKey != "sk-secret" {
		t.Errorf("env var not expanded: %q", cfg.Embedding.APIKey)
	}
	if cfg.Database.Password != "changeme" {
		t.Errorf("default not applied: %q", cfg.Database.Password)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("unexpected dimensions %d", cfg.Embedding.Dimensions)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
