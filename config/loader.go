package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crewkit/crewkit/types"
)

// =============================================================================
// Core configuration structure
// =============================================================================

// Config is the complete crewkit configuration.
type Config struct {
	// ModelServer controls the local model server process and endpoint.
	ModelServer ModelServerConfig `yaml:"model_server" env:"MODEL_SERVER"`

	// LLM configures the completion provider.
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Redis configures the embedding cache. Optional.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Store configures the SQLite run-history store. Optional.
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Assign configures the task-to-agent resolver.
	Assign AssignConfig `yaml:"assign" env:"ASSIGN"`

	// Retrieval configures document chunking and vector search.
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Log configures zap.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry configures the OTel SDK.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Agents is the roster, in assignment-prompt order.
	Agents []types.AgentSpec `yaml:"agents" env:"-"`

	// Tasks is the ordered task list for crew runs.
	Tasks []types.TaskSpec `yaml:"tasks" env:"-"`
}

// ModelServerConfig controls the local model server.
type ModelServerConfig struct {
	// Command launches the server ("ollama"). Empty disables AutoStart.
	Command string `yaml:"command" env:"COMMAND"`
	// Args are the launch arguments ("serve").
	Args []string `yaml:"args" env:"ARGS"`
	// AutoStart launches the server when the health probe fails.
	AutoStart bool `yaml:"auto_start" env:"AUTO_START"`
	// ReadyTimeout bounds the wait for the server to come up.
	ReadyTimeout time.Duration `yaml:"ready_timeout" env:"READY_TIMEOUT"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	// BaseURL of the local endpoint.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// DefaultModel when a request or agent names none.
	DefaultModel string `yaml:"default_model" env:"DEFAULT_MODEL"`
	// FallbackModel when both request and DefaultModel are empty.
	FallbackModel string `yaml:"fallback_model" env:"FALLBACK_MODEL"`
	// Timeout per completion request.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// RequestsPerSecond caps the outbound rate. Zero disables.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	Model      string        `yaml:"model" env:"MODEL"`
	Dimensions int           `yaml:"dimensions" env:"DIMENSIONS"`
	MaxBatch   int           `yaml:"max_batch" env:"MAX_BATCH"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RedisConfig configures the embedding cache.
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled" env:"ENABLED"`
	Addr       string        `yaml:"addr" env:"ADDR"`
	Password   string        `yaml:"password" env:"PASSWORD"`
	DB         int           `yaml:"db" env:"DB"`
	DefaultTTL time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
}

// StoreConfig configures the run-history store.
type StoreConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Path to the SQLite file. ":memory:" keeps history in memory.
	Path string `yaml:"path" env:"PATH"`
}

// AssignConfig configures the resolver.
type AssignConfig struct {
	// Matcher selects the implementation: "llm" or "rule".
	Matcher string `yaml:"matcher" env:"MATCHER"`
	// DefaultAgent receives tasks when the matcher's answer does not
	// resolve. Empty means first roster entry.
	DefaultAgent string `yaml:"default_agent" env:"DEFAULT_AGENT"`
	// MaxTokens for the assignment completion.
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Temperature for the assignment completion. Low by default; name
	// selection wants determinism, not creativity.
	Temperature float32 `yaml:"temperature" env:"TEMPERATURE"`
}

// RetrievalConfig configures chunking and vector search.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k" env:"TOP_K"`
	ChunkSize    int `yaml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap int `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths for the core.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with file:line.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// EnableStacktrace attaches stacktraces at error level.
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
}

// TelemetryConfig configures the OTel SDK.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader loads configuration, builder style.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the CREWKIT env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "CREWKIT",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation function run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration: defaults → YAML file → env.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks the struct recursively, overriding fields whose
// env tag resolves to a set environment variable.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration parses as a duration string.
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma-separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// MustLoad loads configuration or panics. Intended for main().
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	var errs []string

	if c.LLM.BaseURL == "" {
		errs = append(errs, "llm.base_url is required")
	}
	if c.Assign.Matcher != "llm" && c.Assign.Matcher != "rule" {
		errs = append(errs, fmt.Sprintf("assign.matcher must be llm or rule, got %q", c.Assign.Matcher))
	}
	if c.Assign.Temperature < 0 || c.Assign.Temperature > 2 {
		errs = append(errs, "assign.temperature must be between 0 and 2")
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, "retrieval.top_k must be positive")
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		errs = append(errs, "retrieval.chunk_overlap must be smaller than chunk_size")
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if !a.Valid() {
			errs = append(errs, fmt.Sprintf("agent %q needs a name and a goal", a.Name))
			continue
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Sprintf("duplicate agent name %q", a.Name))
		}
		seen[a.Name] = true
	}
	if c.Assign.DefaultAgent != "" && len(c.Agents) > 0 && !seen[c.Assign.DefaultAgent] {
		errs = append(errs, fmt.Sprintf("assign.default_agent %q is not in the roster", c.Assign.DefaultAgent))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
