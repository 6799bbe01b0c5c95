package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/triage?sslmode=disable")
	t.Setenv("PUBMED_EMAIL", "ops@example.org")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "https://eutils.ncbi.nlm.nih.gov/entrez/eutils", cfg.PubMedBaseURL)
	assert.Equal(t, "triage-assistant", cfg.PubMedTool)
	assert.Equal(t, "https://clinicaltrials.gov/api/v2", cfg.TrialsBaseURL)
	assert.Equal(t, 30*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 10*time.Second, cfg.EnrichTimeout)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)
	assert.Equal(t, 3, cfg.MaxReferences)
	assert.Equal(t, 5, cfg.MaxTrials)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("MODEL_TIMEOUT", "45s")
	t.Setenv("MAX_TRIALS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 45*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 10, cfg.MaxTrials)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PUBMED_EMAIL", "ops@example.org")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRequiresPubMedEmail(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/triage")
	t.Setenv("PUBMED_EMAIL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUBMED_EMAIL")
}

func TestValidateRejectsNonPositiveTimeouts(t *testing.T) {
	cfg := &Config{
		DatabaseURL:   "postgres://localhost/triage",
		PubMedEmail:   "ops@example.org",
		ModelTimeout:  0,
		EnrichTimeout: 10 * time.Second,
	}
	assert.Error(t, cfg.Validate())

	cfg.ModelTimeout = 30 * time.Second
	cfg.EnrichTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg.EnrichTimeout = 10 * time.Second
	assert.NoError(t, cfg.Validate())
}
