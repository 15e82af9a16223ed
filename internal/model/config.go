package model

import "time"

// ToolName and ToolVersion identify this build in fingerprints and records.
const (
	ToolName    = "watchtower"
	ToolVersion = "0.1.0"
)

// DefaultTool returns the tool identity of this build without a model.
func DefaultTool() ToolIdentity {
	return ToolIdentity{Name: ToolName, Version: ToolVersion}
}

// Config is the complete Watchtower configuration, supplied explicitly to
// every component that needs it. Nothing in the core reads global state.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Alerts      AlertConfig       `yaml:"alerts"`
	Export      ExportConfig      `yaml:"export"`
	HTTP        HTTPConfig        `yaml:"http"`
	Collect     CollectConfig     `yaml:"collect"`
	Cache       CacheConfig       `yaml:"cache"`
	LLM         LLMConfig         `yaml:"llm"`
	Output      OutputConfig      `yaml:"output"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "memory" or "sqlite"
	Path    string `yaml:"path"`    // sqlite database file
}

// FingerprintConfig tunes deterministic hashing.
type FingerprintConfig struct {
	Precision int `yaml:"precision"` // decimal digits kept when hashing confidence
}

// AlertConfig holds the named threshold rules.
type AlertConfig struct {
	HighConfidence         float64 `yaml:"high_confidence"`
	WellSupported          int     `yaml:"well_supported"`
	ConfidenceDeltaEpsilon float64 `yaml:"confidence_delta_epsilon"`
}

// ExportConfig tunes the export gate and renderers.
type ExportConfig struct {
	CitationPattern string `yaml:"citation_pattern"` // regexp, first group captures the claim id prefix
	Title           string `yaml:"title"`
}

// HTTPConfig configures the http collector's client.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy"`
}

// CollectConfig tunes batch evidence collection.
type CollectConfig struct {
	Workers           int     `yaml:"workers"`
	RespectRobots     bool    `yaml:"respect_robots"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// CacheConfig configures the fetch byte cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"` // empty: memory only
	TTL     time.Duration `yaml:"ttl"`
}

// LLMConfig configures the optional adversarial review provider.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama", "" (disabled)
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`
}

// OutputConfig controls CLI output behavior.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			// The CLI spans invocations, so the default ledger must be
			// durable. The memory backend is opt-in.
			Backend: "sqlite",
			Path:    "watchtower.db",
		},
		Fingerprint: FingerprintConfig{
			Precision: 6,
		},
		Alerts: AlertConfig{
			HighConfidence:         0.9,
			WellSupported:          5,
			ConfidenceDeltaEpsilon: 0.1,
		},
		Export: ExportConfig{
			CitationPattern: `\[\[claim:([0-9a-f]{8,64})\]\]`,
			Title:           "Case File",
		},
		HTTP: HTTPConfig{
			Timeout:      2 * time.Minute,
			UserAgent:    "Watchtower/0.1 (+https://github.com/ppiankov/watchtower)",
			MaxBodyBytes: 2_000_000,
		},
		Collect: CollectConfig{
			Workers:           5,
			RespectRobots:     true,
			RequestsPerSecond: 2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 1000,
		},
		Output: OutputConfig{},
	}
}
