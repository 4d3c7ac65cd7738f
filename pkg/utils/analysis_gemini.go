package utils

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAnalysisClient implements AnalysisClientInterface using Google's
// Gemini models on the free tier.
type GeminiAnalysisClient struct {
	client *genai.Client
	model  string
}

func NewGeminiAnalysisClient(apiKey, model string) (*GeminiAnalysisClient, error) {
	if model == "" {
		model = "gemini-1.5-flash" // Free tier model
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAnalysisClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiAnalysisClient) Analyze(ctx context.Context, input AnalysisInput) (*AnalysisResult, error) {
	m := c.client.GenerativeModel(c.model)
	// Force JSON-only output so no brace-matching cleanup is needed.
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.1)
	m.SetTopP(0.5)
	m.SetTopK(20)

	resp, err := m.GenerateContent(ctx, genai.Text(buildAnalysisPrompt(input)))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: no content")
	}

	content := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("gemini: not valid json")
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if !validClassification(result.Classification) {
		result.Classification = ClassificationOther
	}

	return &result, nil
}

// Close closes the Gemini client.
func (c *GeminiAnalysisClient) Close() error {
	return c.client.Close()
}
