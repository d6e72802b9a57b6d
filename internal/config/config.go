package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "sixhat.yml"

// Backend provider names.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAzure      = "azure"
	ProviderGemini     = "gemini"
)

// Defaults applied by Validate.
const (
	DefaultMaxIterations     = 3
	DefaultRetryBound        = 2
	DefaultRetryBackoff      = 500 * time.Millisecond
	DefaultCallTimeout       = 90 * time.Second
	DefaultRoundTimeout      = 4 * time.Minute
	DefaultToolTimeout       = 20 * time.Second
	DefaultFinalizeTimeout   = 3 * time.Minute
	DefaultMaxResults        = 5
	DefaultMaxPages          = 3
	DefaultMaxPageLength     = 5000
	DefaultRequestsPerSecond = 2.0
	DefaultOpenRouterModel   = "anthropic/claude-3-opus:beta"
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultAzureAPIVersion   = "2023-05-15"
)

// Duration is a time.Duration that reads "90s" style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config represents the top-level sixhat.yml configuration.
type Config struct {
	Version      string              `yaml:"version"`
	Backend      BackendConfig       `yaml:"backend"`
	Orchestrator *OrchestratorConfig `yaml:"orchestrator,omitempty"`
	Research     *ResearchConfig     `yaml:"research,omitempty"`
	Blackboard   BlackboardConfig    `yaml:"blackboard,omitempty"`
	Archive      ArchiveConfig       `yaml:"archive,omitempty"`
}

// BackendConfig selects and configures the inference backend.
// API keys are only ever read from the environment.
type BackendConfig struct {
	Provider          string   `yaml:"provider"`
	Model             string   `yaml:"model,omitempty"`
	Endpoint          string   `yaml:"endpoint,omitempty"`    // azure only
	Deployment        string   `yaml:"deployment,omitempty"`  // azure only
	APIVersion        string   `yaml:"api_version,omitempty"` // azure only
	Temperature       *float64 `yaml:"temperature,omitempty"`
	RequestsPerSecond *float64 `yaml:"requests_per_second,omitempty"`
	APIKey            string   `yaml:"-"`
}

// OrchestratorConfig bounds the analysis loop.
type OrchestratorConfig struct {
	MaxIterations   *int     `yaml:"max_iterations,omitempty"` // default 3
	RetryBound      *int     `yaml:"retry_bound,omitempty"`    // retries after the first attempt, default 2
	RetryBackoff    Duration `yaml:"retry_backoff,omitempty"`
	CallTimeout     Duration `yaml:"call_timeout,omitempty"`
	RoundTimeout    Duration `yaml:"round_timeout,omitempty"`
	ToolTimeout     Duration `yaml:"tool_timeout,omitempty"`
	FinalizeTimeout Duration `yaml:"finalize_timeout,omitempty"`
}

// ResearchConfig bounds the Information role's use of the web.
type ResearchConfig struct {
	Disabled      bool `yaml:"disabled,omitempty"`
	MaxResults    int  `yaml:"max_results,omitempty"`
	MaxPages      *int `yaml:"max_pages,omitempty"` // 0 = search snippets only
	MaxPageLength int  `yaml:"max_page_length,omitempty"`
}

// BlackboardConfig selects the blackboard store. Empty RedisURL keeps the
// blackboard in memory.
type BlackboardConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"`
}

// ArchiveConfig enables the sqlite session archive. Empty Path disables it.
type ArchiveConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Orchestration is the immutable set of loop bounds handed to the engine.
type Orchestration struct {
	MaxIterations   int
	RetryBound      int
	RetryBackoff    time.Duration
	CallTimeout     time.Duration
	RoundTimeout    time.Duration
	ToolTimeout     time.Duration
	FinalizeTimeout time.Duration
}

// Research is the immutable set of research bounds.
type Research struct {
	Enabled       bool
	MaxResults    int
	MaxPages      int
	MaxPageLength int
}

// Validate applies defaults and rejects invalid values.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.Backend.validate(); err != nil {
		return err
	}

	if c.Orchestrator == nil {
		c.Orchestrator = &OrchestratorConfig{}
	}
	if err := c.Orchestrator.validate(); err != nil {
		return err
	}

	if c.Research == nil {
		c.Research = &ResearchConfig{}
	}
	return c.Research.validate()
}

func (b *BackendConfig) validate() error {
	if b.Provider == "" {
		b.Provider = ProviderOpenRouter
	}

	switch b.Provider {
	case ProviderOpenRouter:
		if b.Model == "" {
			b.Model = DefaultOpenRouterModel
		}
	case ProviderGemini:
		if b.Model == "" {
			b.Model = DefaultGeminiModel
		}
	case ProviderAzure:
		if b.APIVersion == "" {
			b.APIVersion = DefaultAzureAPIVersion
		}
	default:
		return fmt.Errorf("backend.provider: unknown provider '%s' (must be 'openrouter', 'azure', or 'gemini')", b.Provider)
	}

	if b.RequestsPerSecond == nil {
		rps := DefaultRequestsPerSecond
		b.RequestsPerSecond = &rps
	}
	if *b.RequestsPerSecond < 0 {
		return fmt.Errorf("backend.requests_per_second must be >= 0 (0 = unthrottled), got %v", *b.RequestsPerSecond)
	}
	if b.Temperature != nil && (*b.Temperature < 0 || *b.Temperature > 2) {
		return fmt.Errorf("backend.temperature must be within [0, 2], got %v", *b.Temperature)
	}
	return nil
}

// RequireCredentials checks that the selected provider can be reached.
// Kept separate from Validate so commands that never call a backend
// (hoard, watch) work without credentials.
func (b *BackendConfig) RequireCredentials() error {
	switch b.Provider {
	case ProviderOpenRouter:
		if b.APIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is not set")
		}
	case ProviderGemini:
		if b.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not set")
		}
	case ProviderAzure:
		if b.APIKey == "" || b.Endpoint == "" || b.Deployment == "" {
			return fmt.Errorf("azure backend needs AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_DEPLOYMENT")
		}
	}
	return nil
}

func (o *OrchestratorConfig) validate() error {
	if o.MaxIterations == nil {
		n := DefaultMaxIterations
		o.MaxIterations = &n
	}
	if *o.MaxIterations < 1 {
		return fmt.Errorf("orchestrator.max_iterations must be >= 1, got %d", *o.MaxIterations)
	}

	if o.RetryBound == nil {
		n := DefaultRetryBound
		o.RetryBound = &n
	}
	if *o.RetryBound < 0 {
		return fmt.Errorf("orchestrator.retry_bound must be >= 0, got %d", *o.RetryBound)
	}

	durations := []struct {
		name  string
		value *Duration
		def   time.Duration
	}{
		{"retry_backoff", &o.RetryBackoff, DefaultRetryBackoff},
		{"call_timeout", &o.CallTimeout, DefaultCallTimeout},
		{"round_timeout", &o.RoundTimeout, DefaultRoundTimeout},
		{"tool_timeout", &o.ToolTimeout, DefaultToolTimeout},
		{"finalize_timeout", &o.FinalizeTimeout, DefaultFinalizeTimeout},
	}
	for _, d := range durations {
		if *d.value == 0 {
			*d.value = Duration(d.def)
		}
		if *d.value < 0 {
			return fmt.Errorf("orchestrator.%s must be positive, got %s", d.name, time.Duration(*d.value))
		}
	}
	return nil
}

func (r *ResearchConfig) validate() error {
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.MaxResults < 1 {
		return fmt.Errorf("research.max_results must be >= 1, got %d", r.MaxResults)
	}
	if r.MaxPages == nil {
		n := DefaultMaxPages
		r.MaxPages = &n
	}
	if *r.MaxPages < 0 {
		return fmt.Errorf("research.max_pages must be >= 0, got %d", *r.MaxPages)
	}
	if r.MaxPageLength == 0 {
		r.MaxPageLength = DefaultMaxPageLength
	}
	if r.MaxPageLength < 100 {
		return fmt.Errorf("research.max_page_length must be >= 100, got %d", r.MaxPageLength)
	}
	return nil
}

// Orchestration returns the loop bounds. Call after Validate.
func (c *Config) Orchestration() Orchestration {
	o := c.Orchestrator
	return Orchestration{
		MaxIterations:   *o.MaxIterations,
		RetryBound:      *o.RetryBound,
		RetryBackoff:    time.Duration(o.RetryBackoff),
		CallTimeout:     time.Duration(o.CallTimeout),
		RoundTimeout:    time.Duration(o.RoundTimeout),
		ToolTimeout:     time.Duration(o.ToolTimeout),
		FinalizeTimeout: time.Duration(o.FinalizeTimeout),
	}
}

// ResearchLimits returns the research bounds. Call after Validate.
func (c *Config) ResearchLimits() Research {
	r := c.Research
	return Research{
		Enabled:       !r.Disabled,
		MaxResults:    r.MaxResults,
		MaxPages:      *r.MaxPages,
		MaxPageLength: r.MaxPageLength,
	}
}

// ApplyEnv overlays environment variables onto the config. lookup is
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	if v := get("API_TYPE"); v != "" {
		c.Backend.Provider = v
	}
	provider := c.Backend.Provider
	if provider == "" {
		provider = ProviderOpenRouter
	}

	switch provider {
	case ProviderOpenRouter:
		c.Backend.APIKey = get("OPENROUTER_API_KEY")
		if v := get("OPENROUTER_MODEL"); v != "" {
			c.Backend.Model = v
		}
	case ProviderAzure:
		c.Backend.APIKey = get("AZURE_OPENAI_API_KEY")
		if v := get("AZURE_OPENAI_ENDPOINT"); v != "" {
			c.Backend.Endpoint = v
		}
		if v := get("AZURE_OPENAI_DEPLOYMENT"); v != "" {
			c.Backend.Deployment = v
		}
		if v := get("AZURE_OPENAI_API_VERSION"); v != "" {
			c.Backend.APIVersion = v
		}
	case ProviderGemini:
		c.Backend.APIKey = get("GEMINI_API_KEY")
		if v := get("GEMINI_MODEL"); v != "" {
			c.Backend.Model = v
		}
	}

	if v := get("SIXHAT_REDIS_URL"); v != "" {
		c.Blackboard.RedisURL = v
	}
	if v := get("SIXHAT_ARCHIVE"); v != "" {
		c.Archive.Path = v
	}
	if v := get("SIXHAT_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIXHAT_MAX_ITERATIONS: %w", err)
		}
		if c.Orchestrator == nil {
			c.Orchestrator = &OrchestratorConfig{}
		}
		c.Orchestrator.MaxIterations = &n
	}
	return nil
}

// Load reads sixhat.yml from path, overlays the environment and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(&config)
}

// FromEnv builds a config from defaults and the environment alone.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(config *Config) (*Config, error) {
	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Resolve loads path if given, else DefaultPath if it exists, else the
// environment alone.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return Load(DefaultPath)
	}
	return FromEnv()
}
