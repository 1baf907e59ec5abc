package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/resolvd/llm-governor/models"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	RateLimit     RateLimitConfig
	Budget        BudgetConfig
	Breaker       BreakerConfig
	Providers     ProvidersConfig
	UsageDB       UsageDBConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RateLimitConfig holds sliding-window admission configuration
type RateLimitConfig struct {
	Window        time.Duration
	MaxRequests   int
	SweepInterval time.Duration
}

// BudgetConfig holds the daily spend cap
type BudgetConfig struct {
	DailyLimit models.MicroUSD
}

// BreakerConfig holds per-provider circuit breaker thresholds
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// ProvidersConfig holds LLM provider configurations. Priority orders
// failover; lower is tried first.
type ProvidersConfig struct {
	OpenRouter ProviderConfig
	OpenAI     ProviderConfig
	Anthropic  ProviderConfig
}

// ProviderConfig holds one upstream's configuration. A provider with
// an empty APIKey is not registered.
type ProviderConfig struct {
	APIKey   string
	BaseURL  string
	Priority int
	Timeout  time.Duration
}

// UsageDBConfig holds the optional usage journal database. An empty
// URL disables the journal.
type UsageDBConfig struct {
	URL       string
	Retention time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			Window:        getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			MaxRequests:   getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
			SweepInterval: getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
		Budget: BudgetConfig{
			DailyLimit: models.MicroUSDFromFloat(getEnvAsFloat("BUDGET_DAILY_LIMIT_USD", 50.0)),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			SuccessThreshold: getEnvAsInt("BREAKER_SUCCESS_THRESHOLD", 2),
			Timeout:          getEnvAsDuration("BREAKER_TIMEOUT", 30*time.Second),
		},
		Providers: ProvidersConfig{
			OpenRouter: ProviderConfig{
				APIKey:   getEnv("OPENROUTER_API_KEY", ""),
				BaseURL:  getEnv("OPENROUTER_BASE_URL", ""),
				Priority: getEnvAsInt("OPENROUTER_PRIORITY", 1),
				Timeout:  getEnvAsDuration("OPENROUTER_TIMEOUT", 45*time.Second),
			},
			OpenAI: ProviderConfig{
				APIKey:   getEnv("OPENAI_API_KEY", ""),
				BaseURL:  getEnv("OPENAI_BASE_URL", ""),
				Priority: getEnvAsInt("OPENAI_PRIORITY", 2),
				Timeout:  getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
			},
			Anthropic: ProviderConfig{
				APIKey:   getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL:  getEnv("ANTHROPIC_BASE_URL", ""),
				Priority: getEnvAsInt("ANTHROPIC_PRIORITY", 3),
				Timeout:  getEnvAsDuration("ANTHROPIC_TIMEOUT", 45*time.Second),
			},
		},
		UsageDB: UsageDBConfig{
			URL:       getEnv("USAGE_DATABASE_URL", ""),
			Retention: getEnvAsDuration("USAGE_RETENTION", 90*24*time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit max requests must be positive")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker failure threshold must be positive")
	}
	if c.Breaker.SuccessThreshold <= 0 {
		return fmt.Errorf("breaker success threshold must be positive")
	}
	if c.Breaker.Timeout <= 0 {
		return fmt.Errorf("breaker timeout must be positive")
	}
	if !c.Providers.AnyConfigured() {
		return fmt.Errorf("at least one provider API key is required")
	}
	return nil
}

// AnyConfigured reports whether at least one provider has an API key
func (p *ProvidersConfig) AnyConfigured() bool {
	return p.OpenRouter.APIKey != "" || p.OpenAI.APIKey != "" || p.Anthropic.APIKey != ""
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
