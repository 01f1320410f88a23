package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8003" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Extraction.MinDescriptionLen != 40 {
		t.Errorf("min_description_len = %d", cfg.Extraction.MinDescriptionLen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file permissions = %o, want 600", perm)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9000"
	cfg.RefreshCron = "0 */6 * * *"
	cfg.Sources = []SourceConfig{{Config: "parks.yml", Limit: 500}}
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "hunter2"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q", got.Listen)
	}
	if got.RefreshCron != "0 */6 * * *" {
		t.Errorf("refresh = %q", got.RefreshCron)
	}
	if len(got.Sources) != 1 || got.Sources[0].Config != "parks.yml" || got.Sources[0].Limit != 500 {
		t.Errorf("sources = %+v", got.Sources)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "admin" {
		t.Errorf("basic auth = %+v", got.BasicAuth)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()

	if cfg.Listen == "" || cfg.Database == "" {
		t.Error("core defaults not filled")
	}
	if cfg.Ollama.MaxConcurrent != 2 {
		t.Errorf("max_concurrent = %d", cfg.Ollama.MaxConcurrent)
	}
	if cfg.Extraction.UIDDomain != "infracal.local" {
		t.Errorf("uid_domain = %q", cfg.Extraction.UIDDomain)
	}
	if cfg.Sources == nil {
		t.Error("sources not initialized")
	}
}

func TestNormalizeRejectsUnknownMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extraction.Mode = "telepathy"
	cfg.Normalize()
	if cfg.Extraction.Mode != "" {
		t.Errorf("mode = %q, want auto", cfg.Extraction.Mode)
	}

	cfg.Extraction.Mode = "heuristic"
	cfg.Normalize()
	if cfg.Extraction.Mode != "heuristic" {
		t.Errorf("mode = %q", cfg.Extraction.Mode)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("INFRACAL_CRAWLER_TOKEN", "env-token")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama.internal:11434")
	t.Setenv("INFRACAL_DATABASE", "/data/infracal.db")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Crawler.Token != "env-token" {
		t.Errorf("token = %q", cfg.Crawler.Token)
	}
	if cfg.Ollama.URL != "http://ollama.internal:11434" {
		t.Errorf("ollama url = %q", cfg.Ollama.URL)
	}
	if cfg.Database != "/data/infracal.db" {
		t.Errorf("database = %q", cfg.Database)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("empty path accepted")
	}
}
