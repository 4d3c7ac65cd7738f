package analysis_fx

import (
	"log"
	"os"

	"go.uber.org/fx"
	"wayfare/pkg/utils"
)

var Module = fx.Provide(
	provideAnalysisClient, provideEmbeddingClient)

func provideAnalysisClient() utils.AnalysisClientInterface {
	provider := os.Getenv("AI_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if provider == "gemini" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	client, err := utils.NewAnalysisClient(provider, apiKey, os.Getenv("AI_MODEL"))
	if err != nil {
		log.Fatalf("Failed to create analysis client: %v", err)
	}
	return client
}

func provideEmbeddingClient() utils.EmbeddingClientInterface {
	return utils.NewOpenAIEmbeddingClient(os.Getenv("OPENAI_API_KEY"))
}
