package llm

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-assistant/pkg"
)

func TestBuildPromptIncludesAllContext(t *testing.T) {
	age := 55
	got := BuildPrompt(pkg.AssessmentRequest{
		Symptoms:       "chest pain",
		Age:            &age,
		Sex:            "male",
		MedicalHistory: "hypertension",
	})
	assert.Contains(t, got, "Patient symptoms: chest pain")
	assert.Contains(t, got, "Age: 55")
	assert.Contains(t, got, "Sex: male")
	assert.Contains(t, got, "Medical History: hypertension")
}

func TestBuildPromptOmitsAbsentFields(t *testing.T) {
	got := BuildPrompt(pkg.AssessmentRequest{Symptoms: "headache"})
	assert.NotContains(t, got, "Age:")
	assert.NotContains(t, got, "Sex:")
	assert.NotContains(t, got, "Medical History:")
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	req := pkg.AssessmentRequest{Symptoms: "fever"}
	assert.Equal(t, BuildPrompt(req), BuildPrompt(req))
}

func TestParseAssessmentCleanJSON(t *testing.T) {
	raw, err := ParseAssessment(`{"urgency_level":"high","reasoning":"r","recommendations":["a"]}`)
	require.NoError(t, err)
	assert.Equal(t, "high", raw.UrgencyLevel)
	assert.Equal(t, "r", raw.Reasoning)
}

func TestParseAssessmentRepairsFencedJSON(t *testing.T) {
	content := "Here is my assessment:\n```json\n{\"urgency_level\":\"low\",\"reasoning\":\"fine\"}\n```"
	raw, err := ParseAssessment(content)
	require.NoError(t, err)
	assert.Equal(t, "low", raw.UrgencyLevel)
}

func TestParseAssessmentRepairsEmbeddedObject(t *testing.T) {
	content := `The patient should know {"urgency_level":"medium","reasoning":"ok"} and that is all.`
	raw, err := ParseAssessment(content)
	require.NoError(t, err)
	assert.Equal(t, "medium", raw.UrgencyLevel)
}

func TestParseAssessmentMalformed(t *testing.T) {
	_, err := ParseAssessment("I cannot answer in JSON today, sorry.")
	require.Error(t, err)
	assert.Equal(t, pkg.ErrModelOutputMalformed, pkg.KindOf(err))
}

func TestParseAssessmentValidJSONWithoutAssessmentKeys(t *testing.T) {
	_, err := ParseAssessment(`{"hello":"world"}`)
	require.Error(t, err)
	assert.Equal(t, pkg.ErrModelOutputMalformed, pkg.KindOf(err))
}

func TestExtractJSONBalancedBraces(t *testing.T) {
	got := ExtractJSON(`prefix {"a":{"b":1}} suffix {"c":2}`)
	assert.Equal(t, `{"a":{"b":1}}`, got)
}

func TestClassifyCompletionErrorRetryability(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", 429, true},
		{"server error", 503, true},
		{"unauthorized", 401, false},
		{"bad request", 400, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyCompletionError(&openai.APIError{HTTPStatusCode: tt.status})
			assert.Equal(t, pkg.ErrUpstreamUnavailable, pkg.KindOf(err))
			assert.Equal(t, tt.retryable, pkg.IsRetryable(err))
		})
	}
}

func TestClassifyCompletionErrorTransport(t *testing.T) {
	err := classifyCompletionError(context.DeadlineExceeded)
	assert.Equal(t, pkg.ErrUpstreamUnavailable, pkg.KindOf(err))
	assert.True(t, pkg.IsRetryable(err))
}

// TestLiveComplete exercises the real completion API. It is skipped unless
// OPENAI_API_KEY is available (directly or via a .env file).
func TestLiveComplete(t *testing.T) {
	_ = godotenv.Load("../../.env")
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("Skipping live test: OPENAI_API_KEY not set")
	}
	client := NewOpenAIClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
	raw, err := client.Complete(context.Background(), pkg.AssessmentRequest{
		Symptoms: "mild sore throat for two days",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, raw.UrgencyLevel)
	assert.NotEmpty(t, raw.Reasoning)
}
