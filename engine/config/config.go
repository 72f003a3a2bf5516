// Package config builds the process configuration once at start-up. Adapters
// receive the resulting *Config by reference and ask it for the values they
// need; a missing value surfaces as a *domain.ConfigError at call time.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/docsift/docsift/engine/domain"
)

// Summary normalization strategies.
const (
	SummaryStructured = "structured"
	SummaryRaw        = "raw"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	ProjectID   string
	Location    string
	Bucket      string
	DataStoreID string
	SummaryMode string
	StaticDir   string
	CORSOrigin  string
	NATSURL     string

	UploadWorkers  int
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int

	// BreakerThreshold is the number of consecutive upstream failures that
	// open a client's circuit breaker; 0 disables it.
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Preamble overrides the built-in summary preamble when non-empty.
	Preamble string
	// SearchDefaults fills fields a search request leaves out.
	SearchDefaults domain.SearchConfiguration
}

// fileConfig is the optional YAML deployment file named by CONFIG_FILE.
type fileConfig struct {
	SummaryMode string `yaml:"summary_mode"`
	Preamble    string `yaml:"preamble"`
	Search      struct {
		PageSize                  *int32 `yaml:"page_size"`
		SummaryResultCount        *int32 `yaml:"summary_result_count"`
		MaxSnippetCount           *int32 `yaml:"max_snippet_count"`
		IncludeCitations          *bool  `yaml:"include_citations"`
		UseSemanticChunks         *bool  `yaml:"use_semantic_chunks"`
		MaxExtractiveAnswerCount  *int32 `yaml:"max_extractive_answer_count"`
		MaxExtractiveSegmentCount *int32 `yaml:"max_extractive_segment_count"`
	} `yaml:"search"`
}

// Load reads .env (if present), the environment, and the optional YAML file.
func Load() (*Config, error) {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		Port:           get("PORT", "8080"),
		ProjectID:      get("PROJECT_ID", ""),
		Location:       get("LOCATION", ""),
		Bucket:         get("BUCKET_NAME", ""),
		DataStoreID:    get("DATASTORE_ID", ""),
		SummaryMode:    strings.ToLower(get("SUMMARY_MODE", SummaryStructured)),
		StaticDir:      get("STATIC_DIR", "static"),
		CORSOrigin:     get("CORS_ORIGIN", "*"),
		NATSURL:        get("NATS_URL", ""),
		SearchDefaults: domain.DefaultSearchConfiguration(),
	}

	var err error
	if cfg.UploadWorkers, err = strconv.Atoi(get("UPLOAD_WORKERS", "4")); err != nil {
		return nil, fmt.Errorf("config: UPLOAD_WORKERS: %w", err)
	}
	maxBytes, err := strconv.Atoi(get("MAX_UPLOAD_BYTES", strconv.Itoa(64<<20)))
	if err != nil {
		return nil, fmt.Errorf("config: MAX_UPLOAD_BYTES: %w", err)
	}
	cfg.MaxUploadBytes = int64(maxBytes)
	if cfg.RateLimitRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "0"), 64); err != nil {
		return nil, fmt.Errorf("config: RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "10")); err != nil {
		return nil, fmt.Errorf("config: RATE_LIMIT_BURST: %w", err)
	}
	if cfg.BreakerThreshold, err = strconv.Atoi(get("BREAKER_THRESHOLD", "5")); err != nil {
		return nil, fmt.Errorf("config: BREAKER_THRESHOLD: %w", err)
	}
	if cfg.BreakerCooldown, err = time.ParseDuration(get("BREAKER_COOLDOWN", "30s")); err != nil {
		return nil, fmt.Errorf("config: BREAKER_COOLDOWN: %w", err)
	}

	if path := get("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.SummaryMode != SummaryStructured && cfg.SummaryMode != SummaryRaw {
		return nil, fmt.Errorf("config: SUMMARY_MODE must be %q or %q, got %q", SummaryStructured, SummaryRaw, cfg.SummaryMode)
	}
	if cfg.UploadWorkers <= 0 {
		cfg.UploadWorkers = 1
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: CONFIG_FILE %s does not exist", path)
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if fc.SummaryMode != "" {
		c.SummaryMode = strings.ToLower(fc.SummaryMode)
	}
	c.Preamble = strings.TrimSpace(fc.Preamble)

	d := &c.SearchDefaults
	s := fc.Search
	setInt(&d.PageSize, s.PageSize)
	setInt(&d.SummaryResultCount, s.SummaryResultCount)
	setInt(&d.MaxSnippetCount, s.MaxSnippetCount)
	setInt(&d.MaxExtractiveAnswerCount, s.MaxExtractiveAnswerCount)
	setInt(&d.MaxExtractiveSegmentCount, s.MaxExtractiveSegmentCount)
	if s.IncludeCitations != nil {
		d.IncludeCitations = *s.IncludeCitations
	}
	if s.UseSemanticChunks != nil {
		d.UseSemanticChunks = *s.UseSemanticChunks
	}
	return nil
}

func setInt(dst *int32, src *int32) {
	if src != nil {
		*dst = *src
	}
}

// RequireSearch checks the values the search adapter needs.
func (c *Config) RequireSearch() error { return c.requireDataStore("search") }

// RequireCatalog checks the values the document listing adapter needs.
func (c *Config) RequireCatalog() error { return c.requireDataStore("list documents") }

// RequireIndexing checks the values the import adapter needs.
func (c *Config) RequireIndexing() error { return c.requireDataStore("import documents") }

// RequireStorage checks the values the upload adapter needs.
func (c *Config) RequireStorage() error {
	if c.Bucket == "" {
		return &domain.ConfigError{Op: "upload", Missing: []string{"BUCKET_NAME"}}
	}
	return nil
}

func (c *Config) requireDataStore(op string) error {
	var missing []string
	if c.ProjectID == "" {
		missing = append(missing, "PROJECT_ID")
	}
	if c.Location == "" {
		missing = append(missing, "LOCATION")
	}
	if c.DataStoreID == "" {
		missing = append(missing, "DATASTORE_ID")
	}
	if len(missing) > 0 {
		return &domain.ConfigError{Op: op, Missing: missing}
	}
	return nil
}

// BranchPath is the parent of all documents in the data store.
func (c *Config) BranchPath() string {
	return c.DataStorePath() + "/branches/default_branch"
}

// ServingConfigPath is the serving config used for search.
func (c *Config) ServingConfigPath() string {
	return c.DataStorePath() + "/servingConfigs/default_config"
}

// DataStorePath is the fully qualified data store resource name.
func (c *Config) DataStorePath() string {
	return fmt.Sprintf("projects/%s/locations/%s/collections/default_collection/dataStores/%s",
		c.ProjectID, c.Location, c.DataStoreID)
}

// DiscoveryEndpoint returns the regional gRPC endpoint, or "" for the
// global location where the client default applies.
func (c *Config) DiscoveryEndpoint() string {
	if c.Location == "" || c.Location == "global" {
		return ""
	}
	return c.Location + "-discoveryengine.googleapis.com:443"
}
