package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if !cfg.AnonymousPull {
		t.Errorf("AnonymousPull default should be true")
	}
	for _, name := range []string{"dockerhub", "ghcr", "quay", "gcr"} {
		if _, ok := cfg.Upstreams[name]; !ok {
			t.Errorf("missing builtin upstream %q", name)
		}
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "port: \"6000\"\nauth_enabled: true\nmutable_tag_patterns: [\"edge\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "6000" {
		t.Errorf("Port = %q, want 6000 (YAML should overlay env/default)", cfg.Port)
	}
	if !cfg.AuthEnabled {
		t.Errorf("AuthEnabled should be true after YAML overlay")
	}
	if len(cfg.MutableTagPatterns) != 1 || cfg.MutableTagPatterns[0] != "edge" {
		t.Errorf("MutableTagPatterns = %v, want [edge]", cfg.MutableTagPatterns)
	}
}

func TestLoadMissingYAMLIsNotError(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err != nil {
		t.Errorf("missing YAML file should not error, got %v", err)
	}
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("PORT", "9999")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999 from env", cfg.Port)
	}
}
