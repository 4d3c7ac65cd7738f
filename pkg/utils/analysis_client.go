package utils

import (
	"context"
	"fmt"
	"strings"
)

// Classifications the analysis gateway is allowed to return. The fallback
// path picks one of these from the action type alone.
const (
	ClassificationRide         = "ride"
	ClassificationDelivery     = "delivery"
	ClassificationProfessional = "professional_service"
	ClassificationErrand       = "errand"
	ClassificationOther        = "other"
)

// AnalysisInput is the assembled context for one service-request draft.
type AnalysisInput struct {
	Text           string
	OriginLat      float64
	OriginLng      float64
	DestinationLat *float64
	DestinationLng *float64

	// Recipient fields are empty when the requester acts for themselves.
	RecipientName    string
	RecipientContact string
	RecipientNotes   string
}

// AnalysisResult is the gateway's refined view of a draft.
type AnalysisResult struct {
	Classification string            `json:"classification"`
	Summary        string            `json:"summary"`
	Entities       map[string]string `json:"entities"`
	PriceEstimate  *float64          `json:"price_estimate,omitempty"`
}

type AnalysisClientInterface interface {
	Analyze(ctx context.Context, input AnalysisInput) (*AnalysisResult, error)
}

// NewAnalysisClient creates an OpenAI or Gemini backed client based on config.
func NewAnalysisClient(provider, apiKey, model string) (AnalysisClientInterface, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIAnalysisClient(apiKey, model), nil
	case "gemini":
		return NewGeminiAnalysisClient(apiKey, model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// buildAnalysisPrompt renders one instruction shared by both providers.
// JSON-only output with exact keys so no brace-matching cleanup is needed.
func buildAnalysisPrompt(input AnalysisInput) string {
	var b strings.Builder

	b.WriteString(`You are classifying a marketplace service request. Return JSON only, matching exactly:
{"classification":"ride|delivery|professional_service|errand|other","summary":"string","entities":{"key":"value"},"price_estimate":12.5}

"entities" holds every concrete noun you can extract (people counts, items, quantities, task names).
"price_estimate" is an optional rough USD figure; omit it when unsure.

Request:
`)
	b.WriteString(input.Text)
	fmt.Fprintf(&b, "\n\nOrigin coordinate: %f,%f\n", input.OriginLat, input.OriginLng)
	if input.DestinationLat != nil && input.DestinationLng != nil {
		fmt.Fprintf(&b, "Destination coordinate: %f,%f\n", *input.DestinationLat, *input.DestinationLng)
	}
	if input.RecipientName != "" {
		fmt.Fprintf(&b, "Requested on behalf of %s (contact: %s). %s\n",
			input.RecipientName, input.RecipientContact, input.RecipientNotes)
	}
	b.WriteString("\nReturn JSON only. No comments, no markdown.")

	return b.String()
}

func validClassification(c string) bool {
	switch c {
	case ClassificationRide, ClassificationDelivery, ClassificationProfessional,
		ClassificationErrand, ClassificationOther:
		return true
	}
	return false
}
