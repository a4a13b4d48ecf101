package model

// Config is the process-wide yaml configuration. Tunables here adjust
// timeouts and fallback thresholds, never protocol shape.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Portal     PortalConfig     `yaml:"portal"`
	OCR        OCRConfig        `yaml:"ocr"`
	Agent      AgentConfig      `yaml:"agent"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Replay     ReplayConfig     `yaml:"replay"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	// Path is the sqlite database file holding the event log.
	Path string `yaml:"path"`
	// RetentionDays bounds event-log growth; 0 keeps events forever
	// (permanent replay).
	RetentionDays int `yaml:"retention_days"`
}

type CacheConfig struct {
	// Dir is the cache root; empty means a directory under os.TempDir().
	Dir string `yaml:"dir"`
	// MaxAgeHours drives the post-run cleanup sweep.
	MaxAgeHours int `yaml:"max_age_hours"`
	// HTMLMaxAgeSeconds is the per-read freshness bound for cached HTML.
	HTMLMaxAgeSeconds int `yaml:"html_max_age_seconds"`
}

type PortalConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	// MaxDocuments caps how many attachments are fetched per tender.
	MaxDocuments int `yaml:"max_documents"`
	// MaxPages caps how many pages are extracted per document.
	MaxPages int `yaml:"max_pages"`
}

type OCRConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type AgentConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	// Temperature applied to every chat call that does not set its own.
	Temperature float64 `yaml:"temperature"`
	// TimeoutSec bounds one collaborator call; on breach the call folds
	// into the soft-failure path of the stage that issued it.
	TimeoutSec int `yaml:"timeout_sec"`
	// MaxIterations bounds the model calls per task investigation,
	// counting repair turns for malformed replies.
	MaxIterations int `yaml:"max_iterations"`
}

type ClassifierConfig struct {
	// FallbackCount is how many tasks, in catalog order, are selected when
	// the feasibility classifier fails.
	FallbackCount int `yaml:"fallback_count"`
}

type ReplayConfig struct {
	// Speed divides recorded inter-event gaps; 4.0 replays at 4x.
	Speed float64 `yaml:"speed"`
	// DefaultGapMS is substituted when a stored timestamp cannot be parsed.
	DefaultGapMS int `yaml:"default_gap_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}
