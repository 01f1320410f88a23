package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one crawl config whose pages are periodically
// fetched and re-extracted.
type SourceConfig struct {
	// Config is the crawler-side config name (e.g. "starkparks.yml");
	// it doubles as the calendar grouping key.
	Config string `yaml:"config" json:"config"`
	// Limit caps how many pages are pulled per refresh. Zero means the
	// crawler's default.
	Limit int `yaml:"limit" json:"limit"`
}

// CrawlerConfig holds the crawler-service connection settings.
type CrawlerConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Token, when set, is sent as a bearer Authorization header. Usually
	// provided via the INFRACAL_CRAWLER_TOKEN environment variable
	// rather than the config file.
	Token          string `yaml:"token,omitempty" json:"-"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// OllamaConfig holds the model-gateway settings. An empty URL disables
// the model path entirely; classification and extraction then fall back
// to the heuristic strategies.
type OllamaConfig struct {
	URL            string `yaml:"url" json:"url"`
	Model          string `yaml:"model" json:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxConcurrent  int    `yaml:"max_concurrent" json:"max_concurrent"`
}

// ExtractionConfig tunes the extraction pipeline.
type ExtractionConfig struct {
	// Mode selects the strategy: "model" or "heuristic". Empty means
	// model when an Ollama URL is configured, heuristic otherwise.
	Mode string `yaml:"mode" json:"mode"`

	// MinDescriptionLen is the validity-gate threshold for events
	// without a location.
	MinDescriptionLen int `yaml:"min_description_len" json:"min_description_len"`

	// PageTruncateLen bounds page text sent per extraction prompt.
	PageTruncateLen int `yaml:"page_truncate_len" json:"page_truncate_len"`

	// ClassifyTruncateLen bounds page text sent per classification call.
	ClassifyTruncateLen int `yaml:"classify_truncate_len" json:"classify_truncate_len"`

	// AllMatches makes the heuristic extractor persist every matched
	// date line instead of only the first.
	AllMatches bool `yaml:"all_matches" json:"all_matches"`

	// UIDDomain suffixes synthesized event UIDs.
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`

	// Version tags persisted events with the extraction revision.
	Version string `yaml:"version" json:"version"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Database is the sqlite database path.
	Database string `yaml:"database" json:"database"`

	// RefreshCron is a cron-style schedule string (e.g. "0 */6 * * *")
	// for periodic fetch+extract runs over the configured sources. Empty
	// disables scheduling.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Crawler    CrawlerConfig    `yaml:"crawler" json:"crawler"`
	Ollama     OllamaConfig     `yaml:"ollama" json:"ollama"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// Sources is the list of crawl configs to refresh on schedule.
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8003",
		Database:    "./var/infracal.db",
		RefreshCron: "",
		Crawler: CrawlerConfig{
			BaseURL:        "http://localhost:8002",
			TimeoutSeconds: 60,
		},
		Ollama: OllamaConfig{
			URL:            "http://localhost:11434",
			Model:          "qwen2.5:1.5b-instruct",
			TimeoutSeconds: 120,
			MaxConcurrent:  2,
		},
		Extraction: ExtractionConfig{
			Mode:                "",
			MinDescriptionLen:   40,
			PageTruncateLen:     4000,
			ClassifyTruncateLen: 6000,
			UIDDomain:           "infracal.local",
			Version:             "v1",
		},
		Sources: []SourceConfig{},
	}
}

// Normalize fills missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.Crawler.BaseURL == "" {
		c.Crawler.BaseURL = def.Crawler.BaseURL
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		c.Crawler.TimeoutSeconds = def.Crawler.TimeoutSeconds
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = def.Ollama.Model
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		c.Ollama.TimeoutSeconds = def.Ollama.TimeoutSeconds
	}
	if c.Ollama.MaxConcurrent <= 0 {
		c.Ollama.MaxConcurrent = def.Ollama.MaxConcurrent
	}
	switch c.Extraction.Mode {
	case "model", "heuristic", "":
	default:
		// Unknown mode; fall back to auto-selection.
		c.Extraction.Mode = ""
	}
	if c.Extraction.MinDescriptionLen <= 0 {
		c.Extraction.MinDescriptionLen = def.Extraction.MinDescriptionLen
	}
	if c.Extraction.PageTruncateLen <= 0 {
		c.Extraction.PageTruncateLen = def.Extraction.PageTruncateLen
	}
	if c.Extraction.ClassifyTruncateLen <= 0 {
		c.Extraction.ClassifyTruncateLen = def.Extraction.ClassifyTruncateLen
	}
	if c.Extraction.UIDDomain == "" {
		c.Extraction.UIDDomain = def.Extraction.UIDDomain
	}
	if c.Extraction.Version == "" {
		c.Extraction.Version = def.Extraction.Version
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
}

// ApplyEnv overrides secrets and endpoints from environment variables,
// so a checked-in config file never has to carry credentials.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("INFRACAL_CRAWLER_TOKEN"); v != "" {
		c.Crawler.Token = v
	}
	if v := os.Getenv("INFRACAL_CRAWLER_URL"); v != "" {
		c.Crawler.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("INFRACAL_DATABASE"); v != "" {
		c.Database = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written (0600)
//     and returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so the
				// caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".infracal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
