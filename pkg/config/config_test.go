package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Training.KMin != 2 {
		t.Errorf("expected default k_min 2, got %d", cfg.Training.KMin)
	}
	if cfg.Training.KMax != 15 {
		t.Errorf("expected default k_max 15, got %d", cfg.Training.KMax)
	}
	if cfg.Training.TextFeatures != 50 {
		t.Errorf("expected default text_features 50, got %d", cfg.Training.TextFeatures)
	}
	if cfg.Artifacts.Dir != "artifacts" {
		t.Errorf("expected default artifacts dir, got %s", cfg.Artifacts.Dir)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 70000
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestValidate_InvalidKRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Training.KMin = 1
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for k_min < 2")
	}

	cfg = DefaultConfig()
	cfg.Training.KMax = cfg.Training.KMin - 1
	err = Validate(cfg)
	if err == nil {
		t.Error("expected error for k_max < k_min")
	}
}

func TestValidate_InvalidRestarts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Training.Restarts = 0
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for restarts < 1")
	}
}

func TestValidate_InvalidExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.Tracing.Exporter = "jaeger"
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestValidate_EmptyArtifactsDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Artifacts.Dir = ""
	err := Validate(cfg)
	if err == nil {
		t.Error("expected error for empty artifacts dir")
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = -1
	cfg.Training.KMin = 0
	cfg.Cache.TTL = -1
	err := Validate(cfg)
	if err == nil {
		t.Error("expected multiple validation errors")
	}
}

func TestInterpolateEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hello"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
		{"${NONEXISTENT_VAR:-fallback}", "fallback"},
		{"${NONEXISTENT_VAR}", "${NONEXISTENT_VAR}"},
		{"no-vars-here", "no-vars-here"},
		{"${TEST_VAR:-default}", "hello"}, // env var exists, ignore default
	}

	for _, tt := range tests {
		result := InterpolateEnv(tt.input)
		if result != tt.expected {
			t.Errorf("InterpolateEnv(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 9090
  host: 127.0.0.1

training:
  k_min: 3
  k_max: 12
  text_features: 30
  restarts: 5

artifacts:
  dir: /tmp/models

cache:
  enabled: false
  ttl: 1m
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "recourse.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Training.KMin != 3 {
		t.Errorf("expected k_min 3, got %d", cfg.Training.KMin)
	}
	if cfg.Training.KMax != 12 {
		t.Errorf("expected k_max 12, got %d", cfg.Training.KMax)
	}
	if cfg.Training.TextFeatures != 30 {
		t.Errorf("expected text_features 30, got %d", cfg.Training.TextFeatures)
	}
	if cfg.Training.Restarts != 5 {
		t.Errorf("expected restarts 5, got %d", cfg.Training.Restarts)
	}
	if cfg.Artifacts.Dir != "/tmp/models" {
		t.Errorf("expected artifacts dir /tmp/models, got %s", cfg.Artifacts.Dir)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled")
	}
}

func TestLoadFromFile_WithEnvInterpolation(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	content := `
auth:
  api_keys:
    - ${TEST_API_KEY}
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "recourse.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if len(cfg.Auth.APIKeys) != 1 {
		t.Fatalf("expected 1 API key, got %d", len(cfg.Auth.APIKeys))
	}
	if cfg.Auth.APIKeys[0] != "sk-test-123" {
		t.Errorf("expected interpolated API key, got %s", cfg.Auth.APIKeys[0])
	}
}

func TestLoadFromFile_InvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/recourse.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "recourse.yaml")
	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFromFile(cfgPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromFile_InvalidValues(t *testing.T) {
	content := `
server:
  port: 99999
training:
  k_min: 0
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "recourse.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFromFile(cfgPath)
	if err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadFromFile_DefaultsPreserved(t *testing.T) {
	// Partial config should preserve defaults for unset fields
	content := `
server:
  port: 3000
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "recourse.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Server.Port)
	}
	// Defaults should be preserved for unset fields
	if cfg.Training.KMax != 15 {
		t.Errorf("expected default k_max 15, got %d", cfg.Training.KMax)
	}
	if cfg.Training.MaxIterations != 300 {
		t.Errorf("expected default max_iterations 300, got %d", cfg.Training.MaxIterations)
	}
}

func TestGenerateTemplate(t *testing.T) {
	tmpl := GenerateTemplate()

	// Verify key sections exist
	required := []string{
		"server:", "port:", "host:",
		"training:", "k_min:", "k_max:", "text_features:",
		"artifacts:", "dir:",
		"cache:", "ttl:", "max_size:",
		"auth:", "api_keys:",
	}

	for _, s := range required {
		if !strings.Contains(tmpl, s) {
			t.Errorf("template missing %q", s)
		}
	}
}
