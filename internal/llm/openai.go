package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"triage-assistant/pkg"
)

// RawAssessment is the model's triage payload before normalization.
// Recommendations, dos and donts stay as raw JSON here because models return
// them inconsistently (native array, JSON-encoded string, or plain prose);
// the orchestrator normalizes them exactly once.
type RawAssessment struct {
	UrgencyLevel       string          `json:"urgency_level"`
	UrgencyDescription string          `json:"urgency_description"`
	Reasoning          string          `json:"reasoning"`
	Recommendations    json.RawMessage `json:"recommendations"`
	Dos                json.RawMessage `json:"dos"`
	Donts              json.RawMessage `json:"donts"`
	Disclaimer         string          `json:"disclaimer"`
}

// Client is the completion capability consumed by the orchestrator.
type Client interface {
	Complete(ctx context.Context, req pkg.AssessmentRequest) (*RawAssessment, error)
}

// OpenAIClient calls the OpenAI chat completion API for symptom triage.
// It is stateless between invocations.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs an OpenAI-backed model client.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}
}

// BuildPrompt renders the deterministic user prompt for a request. Absent
// optional fields are omitted rather than rendered as empty placeholders.
func BuildPrompt(req pkg.AssessmentRequest) string {
	var b strings.Builder
	b.WriteString("Patient symptoms: ")
	b.WriteString(strings.TrimSpace(req.Symptoms))
	b.WriteString("\n")
	if req.Age != nil {
		fmt.Fprintf(&b, "Age: %d\n", *req.Age)
	}
	if req.Sex != "" {
		fmt.Fprintf(&b, "Sex: %s\n", req.Sex)
	}
	if req.MedicalHistory != "" {
		fmt.Fprintf(&b, "Medical History: %s\n", req.MedicalHistory)
	}
	b.WriteString("\nPlease assess the urgency of these symptoms and provide recommendations.")
	return b.String()
}

// Complete sends the assessment prompt and parses the model's JSON reply.
func (c *OpenAIClient) Complete(ctx context.Context, req pkg.AssessmentRequest) (*RawAssessment, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return nil, classifyCompletionError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &pkg.Error{Kind: pkg.ErrModelOutputMalformed, Message: "completion returned no choices"}
	}
	return ParseAssessment(resp.Choices[0].Message.Content)
}

// ParseAssessment decodes the model output, applying one repair pass (strip
// markdown fences, extract the first balanced object) before giving up.
func ParseAssessment(content string) (*RawAssessment, error) {
	var raw RawAssessment
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		repaired := ExtractJSON(content)
		if err2 := json.Unmarshal([]byte(repaired), &raw); err2 != nil {
			return nil, &pkg.Error{
				Kind:    pkg.ErrModelOutputMalformed,
				Message: "completion is not valid assessment JSON",
				Err:     err,
			}
		}
	}
	if strings.TrimSpace(raw.UrgencyLevel) == "" && strings.TrimSpace(raw.Reasoning) == "" {
		return nil, &pkg.Error{
			Kind:    pkg.ErrModelOutputMalformed,
			Message: "completion JSON carries none of the expected assessment keys",
		}
	}
	return &raw, nil
}

// ExtractJSON pulls JSON out of a fenced code block, or failing that the
// first balanced {...} object in the text.
func ExtractJSON(text string) string {
	if start := strings.Index(text, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(text[start:], "```"); end != -1 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	if start := strings.Index(text, "```"); start != -1 {
		start += len("```")
		if end := strings.Index(text[start:], "```"); end != -1 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	if start := strings.Index(text, "{"); start != -1 {
		depth := 0
		for i := start; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return strings.TrimSpace(text)
}

// classifyCompletionError maps transport and API failures onto the upstream
// taxonomy. Rate limits, server errors and timeouts are retryable; auth and
// bad-request rejections are not.
func classifyCompletionError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &pkg.Error{
			Kind:      pkg.ErrUpstreamUnavailable,
			Message:   "completion service rejected the request",
			Retryable: apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500,
			Err:       err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &pkg.Error{
			Kind:      pkg.ErrUpstreamUnavailable,
			Message:   "completion service request failed",
			Retryable: reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500,
			Err:       err,
		}
	}
	// Timeouts and connection failures land here.
	return &pkg.Error{
		Kind:      pkg.ErrUpstreamUnavailable,
		Message:   "completion service unreachable",
		Retryable: true,
		Err:       err,
	}
}
