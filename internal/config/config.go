package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server needs from the environment. Upstream
// base URLs are configurable so tests can point the clients at local fakes.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	OpenAIKey   string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel string `mapstructure:"OPENAI_MODEL"`

	PubMedBaseURL string `mapstructure:"PUBMED_BASE_URL"`
	PubMedEmail   string `mapstructure:"PUBMED_EMAIL"`
	PubMedTool    string `mapstructure:"PUBMED_TOOL"`

	TrialsBaseURL string `mapstructure:"TRIALS_BASE_URL"`

	ModelTimeout  time.Duration `mapstructure:"MODEL_TIMEOUT"`
	EnrichTimeout time.Duration `mapstructure:"ENRICH_TIMEOUT"`
	RetryBackoff  time.Duration `mapstructure:"RETRY_BACKOFF"`

	MaxReferences int `mapstructure:"MAX_REFERENCES"`
	MaxTrials     int `mapstructure:"MAX_TRIALS"`
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("OPENAI_MODEL", "gpt-4o")
	v.SetDefault("PUBMED_BASE_URL", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("PUBMED_TOOL", "triage-assistant")
	v.SetDefault("TRIALS_BASE_URL", "https://clinicaltrials.gov/api/v2")
	v.SetDefault("MODEL_TIMEOUT", "30s")
	v.SetDefault("ENRICH_TIMEOUT", "10s")
	v.SetDefault("RETRY_BACKOFF", "2s")
	v.SetDefault("MAX_REFERENCES", 3)
	v.SetDefault("MAX_TRIALS", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("OPENAI_MODEL")
	v.BindEnv("PUBMED_BASE_URL")
	v.BindEnv("PUBMED_EMAIL")
	v.BindEnv("PUBMED_TOOL")
	v.BindEnv("TRIALS_BASE_URL")
	v.BindEnv("MODEL_TIMEOUT")
	v.BindEnv("ENRICH_TIMEOUT")
	v.BindEnv("RETRY_BACKOFF")
	v.BindEnv("MAX_REFERENCES")
	v.BindEnv("MAX_TRIALS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the server cannot run without. PUBMED_EMAIL is
// part of the NCBI identification contract: every E-utilities request must
// carry a contact email, so a missing value aborts startup rather than
// failing per request.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.PubMedEmail == "" {
		return fmt.Errorf("PUBMED_EMAIL is required (NCBI E-utilities identification)")
	}
	if c.ModelTimeout <= 0 || c.EnrichTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// IsDev reports whether the server runs in development mode, which switches
// logging to the human-readable console writer.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}
