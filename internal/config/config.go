// Package config holds runtime parameters for the daemon and resolves the
// on-disk storage layout shared by all subsystems.
package config

import "time"

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by Default values on Load.
type Config struct {
	System     SystemConfig     `json:"system" yaml:"system" toml:"system"`
	HTTP       HTTPConfig       `json:"http" yaml:"http" toml:"http"`
	AI         AIConfig         `json:"ai" yaml:"ai" toml:"ai"`
	Voice      VoiceConfig      `json:"voice" yaml:"voice" toml:"voice"`
	Vision     VisionConfig     `json:"vision" yaml:"vision" toml:"vision"`
	Automation AutomationConfig `json:"automation" yaml:"automation" toml:"automation"`
	Search     SearchConfig     `json:"search" yaml:"search" toml:"search"`
	Perf       PerfConfig       `json:"performance" yaml:"performance" toml:"performance"`
}

// SystemConfig covers process-wide switches.
type SystemConfig struct {
	// StorageRoot overrides storage auto-detection when set.
	StorageRoot string `json:"storage_root" yaml:"storage_root" toml:"storage_root" split_words:"true"`
	// SafeMode disables desktop automation and forces confirmation prompts.
	SafeMode bool   `json:"safe_mode" yaml:"safe_mode" toml:"safe_mode" split_words:"true"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level" split_words:"true"`
}

// HTTPConfig covers the API server.
type HTTPConfig struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	CORSEnabled  bool   `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" split_words:"true"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" split_words:"true"`
}

// AIConfig covers the chat model.
type AIConfig struct {
	CoreModel    string  `json:"core_model" yaml:"core_model" toml:"core_model" split_words:"true"`
	VisionModel  string  `json:"vision_model" yaml:"vision_model" toml:"vision_model" split_words:"true"`
	ContextSize  int     `json:"context_size" yaml:"context_size" toml:"context_size" split_words:"true"`
	MaxTokens    int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" split_words:"true"`
	Temperature  float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP         float64 `json:"top_p" yaml:"top_p" toml:"top_p" split_words:"true"`
	Threads      int     `json:"threads" yaml:"threads" toml:"threads"`
	// Runtime selects how models are hosted: "local" (in-process binding,
	// needs the llama build tag) or "server" (managed llama-server process).
	Runtime string `json:"runtime" yaml:"runtime" toml:"runtime"`
	// ServerBin is the llama-server binary for the "server" runtime; empty
	// means discover on PATH and in common install locations.
	ServerBin string `json:"server_bin" yaml:"server_bin" toml:"server_bin" split_words:"true"`
	// VerifyModels enables SHA-256 integrity checks against the hash manifest.
	VerifyModels bool `json:"verify_models" yaml:"verify_models" toml:"verify_models" split_words:"true"`
	// IdleTimeout is how long a loaded model may sit unused before eviction.
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout" split_words:"true"`
}

// VoiceConfig covers wake-word listening.
type VoiceConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled" toml:"enabled"`
	WakeWord        string        `json:"wake_word" yaml:"wake_word" toml:"wake_word" split_words:"true"`
	Language        string        `json:"language" yaml:"language" toml:"language"`
	ChunkSeconds    int           `json:"chunk_seconds" yaml:"chunk_seconds" toml:"chunk_seconds" split_words:"true"`
	RecognizerBin   string        `json:"recognizer_bin" yaml:"recognizer_bin" toml:"recognizer_bin" split_words:"true"`
	RecognizerModel string        `json:"recognizer_model" yaml:"recognizer_model" toml:"recognizer_model" split_words:"true"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout" split_words:"true"`
}

// VisionConfig covers screen capture and image analysis.
type VisionConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled" toml:"enabled"`
	TesseractBin  string        `json:"tesseract_bin" yaml:"tesseract_bin" toml:"tesseract_bin" split_words:"true"`
	DetectorBin   string        `json:"detector_bin" yaml:"detector_bin" toml:"detector_bin" split_words:"true"`
	OCRIdle       time.Duration `json:"ocr_idle" yaml:"ocr_idle" toml:"ocr_idle" split_words:"true"`
	ModelIdle     time.Duration `json:"model_idle" yaml:"model_idle" toml:"model_idle" split_words:"true"`
	DetectorIdle  time.Duration `json:"detector_idle" yaml:"detector_idle" toml:"detector_idle" split_words:"true"`
	MaxImageSizeMB int          `json:"max_image_size_mb" yaml:"max_image_size_mb" toml:"max_image_size_mb" split_words:"true"`
}

// AutomationConfig covers the desktop driver.
type AutomationConfig struct {
	Enabled             bool          `json:"enabled" yaml:"enabled" toml:"enabled"`
	DriverBin           string        `json:"driver_bin" yaml:"driver_bin" toml:"driver_bin" split_words:"true"`
	IdleTimeout         time.Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout" split_words:"true"`
	BlockedActions      []string      `json:"blocked_actions" yaml:"blocked_actions" toml:"blocked_actions" split_words:"true"`
	RequireConfirmation bool          `json:"require_confirmation" yaml:"require_confirmation" toml:"require_confirmation" split_words:"true"`
}

// SearchConfig covers the web search client.
type SearchConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled" toml:"enabled"`
	MaxResults  int           `json:"max_results" yaml:"max_results" toml:"max_results" split_words:"true"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	UseCache    bool          `json:"use_cache" yaml:"use_cache" toml:"use_cache" split_words:"true"`
	CacheTTL    time.Duration `json:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl" split_words:"true"`
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval" toml:"min_interval" split_words:"true"`
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout" split_words:"true"`
}

// PerfConfig covers resource tuning knobs.
type PerfConfig struct {
	// LoadWait bounds how long an acquire waits for someone else's in-flight
	// component load.
	LoadWait time.Duration `json:"load_wait" yaml:"load_wait" toml:"load_wait" split_words:"true"`
	// BackgroundWarmup preloads the chat model at startup instead of on the
	// first request.
	BackgroundWarmup bool `json:"background_warmup" yaml:"background_warmup" toml:"background_warmup" split_words:"true"`
}

// Default returns the configuration used when a field is unspecified.
func Default() Config {
	return Config{
		System: SystemConfig{
			LogLevel: "info",
		},
		HTTP: HTTPConfig{
			Addr:         ":8090",
			MaxBodyBytes: 1 << 20,
		},
		AI: AIConfig{
			CoreModel:    "gemma-2-2b-it-Q4_K_M",
			VisionModel:  "moondream2",
			ContextSize:  4096,
			MaxTokens:    1024,
			Temperature:  0.7,
			TopP:         0.95,
			Threads:      4,
			Runtime:      "server",
			VerifyModels: true,
			IdleTimeout:  60 * time.Second,
		},
		Voice: VoiceConfig{
			WakeWord:        "hey agent",
			Language:        "en-US",
			ChunkSeconds:    5,
			RecognizerModel: "whisper-tiny",
			IdleTimeout:     60 * time.Second,
		},
		Vision: VisionConfig{
			Enabled:        true,
			OCRIdle:        30 * time.Second,
			ModelIdle:      60 * time.Second,
			DetectorIdle:   30 * time.Second,
			MaxImageSizeMB: 10,
		},
		Automation: AutomationConfig{
			Enabled:             true,
			IdleTimeout:         120 * time.Second,
			BlockedActions:      []string{"delete", "format", "shutdown"},
			RequireConfirmation: true,
		},
		Search: SearchConfig{
			Enabled:     true,
			MaxResults:  5,
			Timeout:     10 * time.Second,
			UseCache:    true,
			CacheTTL:    time.Hour,
			MinInterval: 2 * time.Second,
			IdleTimeout: 30 * time.Second,
		},
		Perf: PerfConfig{
			LoadWait: 30 * time.Second,
		},
	}
}
