// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/inkwell/inkwell/internal/httpclient"
	"github.com/inkwell/inkwell/internal/model"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Persistence: postgres, mongo or memory
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"inkwell"`

	// Cache, rate limits and generation locks (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"90s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitAPIEnabled  bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAuthEnabled bool `env:"RATE_LIMIT_AUTH_ENABLED" envDefault:"true"`
	RateLimitAuthRPS     int  `env:"RATE_LIMIT_AUTH_RPS" envDefault:"2"`
	RateLimitAuthBurst   int  `env:"RATE_LIMIT_AUTH_BURST" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Access tokens
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"720h"`
	TokenEnv        string        `env:"TOKEN_ENV" envDefault:"live"`
	AuthMinDuration time.Duration `env:"AUTH_MIN_DURATION" envDefault:"200ms"`

	// Generation gateway (Gemini)
	GeminiAPIKey          string        `env:"GEMINI_API_KEY"`
	GeminiBaseURL         string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1"`
	GeminiModel           string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	GeminiTemperature     float64       `env:"GEMINI_TEMPERATURE" envDefault:"0.7"`
	GeminiMaxOutputTokens int           `env:"GEMINI_MAX_OUTPUT_TOKENS" envDefault:"2048"`
	GeminiTimeout         time.Duration `env:"GEMINI_TIMEOUT" envDefault:"25s"`
	GeminiMaxAttempts     int           `env:"GEMINI_MAX_ATTEMPTS" envDefault:"2"`

	// Payment gateway (Razorpay)
	RazorpayKeyID     string        `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string        `env:"RAZORPAY_KEY_SECRET"`
	RazorpayBaseURL   string        `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	PaymentTimeout    time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"15s"`
	PaymentCurrency   string        `env:"PAYMENT_CURRENCY" envDefault:"INR"`

	// Plan table (prices in major currency units, credits in characters)
	FreePlanCredits   int64 `env:"FREE_PLAN_CREDITS" envDefault:"10000"`
	PremiumPrice      int64 `env:"PREMIUM_PRICE" envDefault:"999"`
	PremiumCredits    int64 `env:"PREMIUM_CREDITS" envDefault:"2000000"`
	EnterprisePrice   int64 `env:"ENTERPRISE_PRICE" envDefault:"2499"`
	EnterpriseCredits int64 `env:"ENTERPRISE_CREDITS" envDefault:"5000000"`

	// Per-account generation lock and the budget for work done under it.
	// LockWait + Timeout must fit in WRITE_TIMEOUT, Timeout in the lock TTL.
	GenerationLockTTL  time.Duration `env:"GENERATION_LOCK_TTL" envDefault:"120s"`
	GenerationLockWait time.Duration `env:"GENERATION_LOCK_WAIT" envDefault:"20s"`
	GenerationTimeout  time.Duration `env:"GENERATION_TIMEOUT" envDefault:"55s"`
}

// GeminiWorstCase is the longest a gateway call can take: every attempt runs
// to its timeout and every backoff sleeps its maximum.
func (c *Config) GeminiWorstCase() time.Duration {
	return time.Duration(c.GeminiMaxAttempts)*c.GeminiTimeout + httpclient.MaxBackoff(c.GeminiMaxAttempts)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PaymentConfigured reports whether both gateway credentials are present.
func (c *Config) PaymentConfigured() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Plans builds the static plan table.
func (c *Config) Plans() model.PlanCatalog {
	return model.NewPlanCatalog(
		model.Plan{
			ID:      model.PlanFree,
			Name:    "Free Plan",
			Price:   0,
			Credits: c.FreePlanCredits,
			Features: []string{
				fmt.Sprintf("%s characters", humanCount(c.FreePlanCredits)),
				"Access to all templates",
			},
		},
		model.Plan{
			ID:      model.PlanPremium,
			Name:    "Premium Plan",
			Price:   c.PremiumPrice,
			Credits: c.PremiumCredits,
			Features: []string{
				fmt.Sprintf("%s characters per month", humanCount(c.PremiumCredits)),
				"Access to all templates",
				"Priority support",
			},
		},
		model.Plan{
			ID:      model.PlanEnterprise,
			Name:    "Enterprise Plan",
			Price:   c.EnterprisePrice,
			Credits: c.EnterpriseCredits,
			Features: []string{
				fmt.Sprintf("%s characters per month", humanCount(c.EnterpriseCredits)),
				"Access to all templates",
				"Priority support",
				"Custom templates",
			},
		},
	)
}

// Validate checks cross-field requirements env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo store"))
		}
	case StoreDriverMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("the memory store cannot be used in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.FreePlanCredits <= 0 || c.PremiumCredits <= 0 || c.EnterpriseCredits <= 0 {
		errs = append(errs, errors.New("plan credit grants must be positive"))
	}
	if c.PremiumPrice <= 0 || c.EnterprisePrice <= 0 {
		errs = append(errs, errors.New("paid plan prices must be positive"))
	}
	if (c.RazorpayKeyID == "") != (c.RazorpayKeySecret == "") {
		errs = append(errs, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set together"))
	}
	if c.GeminiMaxAttempts < 1 {
		errs = append(errs, errors.New("GEMINI_MAX_ATTEMPTS must be at least 1"))
	}
	errs = append(errs, c.validateGenerationBudget()...)

	return errors.Join(errs...)
}

// validateGenerationBudget keeps a generation inside its account lock lease
// and leaves time to write the response after the debit.
func (c *Config) validateGenerationBudget() []error {
	var errs []error
	if c.GenerationTimeout <= 0 {
		return append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if worst := c.GeminiWorstCase(); worst > c.GenerationTimeout {
		errs = append(errs, fmt.Errorf(
			"GEMINI_TIMEOUT x GEMINI_MAX_ATTEMPTS plus backoff (%s) exceeds GENERATION_TIMEOUT (%s)",
			worst, c.GenerationTimeout))
	}
	if c.GenerationTimeout >= c.GenerationLockTTL {
		errs = append(errs, fmt.Errorf(
			"GENERATION_TIMEOUT (%s) must be below GENERATION_LOCK_TTL (%s)",
			c.GenerationTimeout, c.GenerationLockTTL))
	}
	if total := c.GenerationLockWait + c.GenerationTimeout; total >= c.WriteTimeout {
		errs = append(errs, fmt.Errorf(
			"GENERATION_LOCK_WAIT + GENERATION_TIMEOUT (%s) must be below WRITE_TIMEOUT (%s)",
			total, c.WriteTimeout))
	}
	return errs
}

// Load reads an optional .env file, parses environment variables and validates
// the result. Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func humanCount(n int64) string {
	switch {
	case n >= 1_000_000 && n%1_000_000 == 0:
		return fmt.Sprintf("%d Million", n/1_000_000)
	case n >= 1_000 && n%1_000 == 0:
		return fmt.Sprintf("%dK", n/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
