// Package config loads the API server configuration from defaults, an
// optional config file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Persistence modes for chat exchanges.
const (
	PersistSync  = "sync"
	PersistQueue = "queue"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ShutdownTimeout    time.Duration
	CORSOrigins        []string

	// Store settings
	StoreDriver      string
	MongoURI         string
	MongoDatabase    string
	MongoConnTimeout time.Duration

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	PersistMode  string

	// JWT settings
	AuthEnabled bool
	JWTSecret   string

	// LLM settings
	LLMProvider     string
	LLMModel        string
	LLMMaxTokens    int
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// Chat settings
	GuardrailEnabled bool
	GenerateTitles   bool
	ContextWindow    int

	// Retrieval settings
	ElasticAddresses     []string
	ElasticUsername      string
	ElasticPassword      string
	ElasticAPIKey        string
	RetrievalIndex       string
	EmbeddingModel       string
	RetrievalTopK        int
	RetrievalMaxDistance float64

	// Billing rates, per thousand tokens
	BillingRateIn  float64
	BillingRateOut float64
	ReportRateIn   float64
	ReportRateOut  float64

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

var defaults = map[string]any{
	"PORT":                   "8080",
	"SERVER_READ_TIMEOUT":    30 * time.Second,
	"SERVER_WRITE_TIMEOUT":   120 * time.Second,
	"SHUTDOWN_TIMEOUT":       30 * time.Second,
	"CORS_ORIGINS":           "*",
	"STORE_DRIVER":           StoreMongo,
	"MONGO_URI":              "mongodb://localhost:27017",
	"MONGO_DATABASE":         "pihr_autoquery",
	"MONGO_CONNECT_TIMEOUT":  10 * time.Second,
	"NATS_URL":               "nats://localhost:4222",
	"PERSIST_MODE":           PersistSync,
	"AUTH_ENABLED":           false,
	"JWT_SECRET":             "development-secret-change-in-production",
	"LLM_PROVIDER":           "openai",
	"LLM_MAX_TOKENS":         1024,
	"GUARDRAIL_ENABLED":      false,
	"GENERATE_TITLES":        false,
	"CONTEXT_WINDOW":         6,
	"ELASTIC_ADDRESSES":      "",
	"RETRIEVAL_INDEX":        "pihr-docs",
	"EMBEDDING_MODEL":        "",
	"RETRIEVAL_TOP_K":        3,
	"RETRIEVAL_MAX_DISTANCE": 0.5,
	"BILLING_RATE_IN":        0.00015,
	"BILLING_RATE_OUT":       0.0006,
	"REPORT_RATE_IN":         0.00016,
	"REPORT_RATE_OUT":        0.00064,
	"RATE_LIMIT_REQUESTS":    60,
	"RATE_LIMIT_WINDOW":      time.Minute,
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
	"TRACING_ENDPOINT":       "localhost:4318",
	"TRACING_ENABLED":        false,
}

// Load reads configuration. Values come from, in increasing precedence,
// built-in defaults, the file named by CONFIG_FILE and the environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:         v.GetString("PORT"),
		ServerReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
		ServerWriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		ShutdownTimeout:    v.GetDuration("SHUTDOWN_TIMEOUT"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),

		StoreDriver:      strings.ToLower(v.GetString("STORE_DRIVER")),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDatabase:    v.GetString("MONGO_DATABASE"),
		MongoConnTimeout: v.GetDuration("MONGO_CONNECT_TIMEOUT"),

		NATSURL:      v.GetString("NATS_URL"),
		NATSCAFile:   v.GetString("NATS_CA_FILE"),
		NATSCertFile: v.GetString("NATS_CERT_FILE"),
		NATSKeyFile:  v.GetString("NATS_KEY_FILE"),
		NATSToken:    v.GetString("NATS_TOKEN"),
		PersistMode:  strings.ToLower(v.GetString("PERSIST_MODE")),

		AuthEnabled: v.GetBool("AUTH_ENABLED"),
		JWTSecret:   v.GetString("JWT_SECRET"),

		LLMProvider:     strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMModel:        v.GetString("LLM_MODEL"),
		LLMMaxTokens:    v.GetInt("LLM_MAX_TOKENS"),
		AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),

		GuardrailEnabled: v.GetBool("GUARDRAIL_ENABLED"),
		GenerateTitles:   v.GetBool("GENERATE_TITLES"),
		ContextWindow:    v.GetInt("CONTEXT_WINDOW"),

		ElasticAddresses:     splitList(v.GetString("ELASTIC_ADDRESSES")),
		ElasticUsername:      v.GetString("ELASTIC_USERNAME"),
		ElasticPassword:      v.GetString("ELASTIC_PASSWORD"),
		ElasticAPIKey:        v.GetString("ELASTIC_API_KEY"),
		RetrievalIndex:       v.GetString("RETRIEVAL_INDEX"),
		EmbeddingModel:       v.GetString("EMBEDDING_MODEL"),
		RetrievalTopK:        v.GetInt("RETRIEVAL_TOP_K"),
		RetrievalMaxDistance: v.GetFloat64("RETRIEVAL_MAX_DISTANCE"),

		BillingRateIn:  v.GetFloat64("BILLING_RATE_IN"),
		BillingRateOut: v.GetFloat64("BILLING_RATE_OUT"),
		ReportRateIn:   v.GetFloat64("REPORT_RATE_IN"),
		ReportRateOut:  v.GetFloat64("REPORT_RATE_OUT"),

		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		TracingEndpoint: v.GetString("TRACING_ENDPOINT"),
		TracingEnabled:  v.GetBool("TRACING_ENABLED"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.PersistMode {
	case PersistSync, PersistQueue:
	default:
		return fmt.Errorf("invalid PERSIST_MODE %q", c.PersistMode)
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("CONTEXT_WINDOW must not be negative")
	}
	for name, rate := range map[string]float64{
		"BILLING_RATE_IN":  c.BillingRateIn,
		"BILLING_RATE_OUT": c.BillingRateOut,
		"REPORT_RATE_IN":   c.ReportRateIn,
		"REPORT_RATE_OUT":  c.ReportRateOut,
	} {
		if rate < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.AuthEnabled && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	return nil
}

// RetrievalEnabled reports whether an Elasticsearch cluster is configured.
func (c *Config) RetrievalEnabled() bool {
	return len(c.ElasticAddresses) > 0
}

// LLMAPIKey returns the key for the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == "anthropic" {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
