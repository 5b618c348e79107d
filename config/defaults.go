package config

import "time"

// DefaultConfig returns sensible local-development defaults: a single
// Ollama server on the standard port, small models, no external
// services enabled.
func DefaultConfig() *Config {
	return &Config{
		ModelServer: DefaultModelServerConfig(),
		LLM:         DefaultLLMConfig(),
		Embedding:   DefaultEmbeddingConfig(),
		Redis:       DefaultRedisConfig(),
		Store:       DefaultStoreConfig(),
		Assign:      DefaultAssignConfig(),
		Retrieval:   DefaultRetrievalConfig(),
		Log:         DefaultLogConfig(),
		Metrics:     DefaultMetricsConfig(),
		Telemetry:   DefaultTelemetryConfig(),
	}
}

// DefaultModelServerConfig returns the Ollama launch defaults.
func DefaultModelServerConfig() ModelServerConfig {
	return ModelServerConfig{
		Command:      "ollama",
		Args:         []string{"serve"},
		AutoStart:    false,
		ReadyTimeout: 30 * time.Second,
	}
}

// DefaultLLMConfig returns the completion provider defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:           "http://localhost:11434",
		DefaultModel:      "qwen2:0.5b",
		FallbackModel:     "llama3.2:1b",
		Timeout:           120 * time.Second,
		RequestsPerSecond: 0,
	}
}

// DefaultEmbeddingConfig returns the embedding provider defaults.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		BaseURL:    "http://localhost:11434",
		Model:      "nomic-embed-text",
		Dimensions: 768,
		MaxBatch:   32,
		Timeout:    60 * time.Second,
	}
}

// DefaultRedisConfig returns the embedding cache defaults (disabled).
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:    false,
		Addr:       "localhost:6379",
		DB:         0,
		DefaultTTL: 24 * time.Hour,
	}
}

// DefaultStoreConfig returns the run-history defaults (disabled).
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Enabled: false,
		Path:    "crewkit.db",
	}
}

// DefaultAssignConfig returns the resolver defaults.
func DefaultAssignConfig() AssignConfig {
	return AssignConfig{
		Matcher:     "llm",
		MaxTokens:   64,
		Temperature: 0.1,
	}
}

// DefaultRetrievalConfig returns the chunking and search defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:         4,
		ChunkSize:    800,
		ChunkOverlap: 100,
	}
}

// DefaultLogConfig returns the logging defaults.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig returns the Prometheus defaults (disabled).
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: false,
		Addr:    ":9091",
	}
}

// DefaultTelemetryConfig returns the OTel defaults (disabled).
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "crewkit",
		SampleRate:   1.0,
	}
}
