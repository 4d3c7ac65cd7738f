package utils

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIAnalysisClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIAnalysisClient(apiKey, model string) *OpenAIAnalysisClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAnalysisClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *OpenAIAnalysisClient) Analyze(ctx context.Context, input AnalysisInput) (*AnalysisResult, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildAnalysisPrompt(input),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("openai: invalid json: %w", err)
	}
	if !validClassification(result.Classification) {
		result.Classification = ClassificationOther
	}

	return &result, nil
}
