package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"AgriPolicy/internal/rag/interfaces"
)

// GoogleModel is an embedding client for the Google GenAI API.
type GoogleModel struct {
	model     *genai.EmbeddingModel
	modelName string
}

// NewGoogleModel creates a GoogleModel for the given API key and model name.
func NewGoogleModel(apiKey, modelName string) (*GoogleModel, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GoogleModel{
		model:     client.EmbeddingModel(modelName),
		modelName: modelName,
	}, nil
}

// Embed generates embedding vectors for a batch of texts.
func (m *GoogleModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	batch := m.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := m.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed contents: %w", err)
	}

	embeddings := make([][]float32, 0, len(res.Embeddings))
	for _, emb := range res.Embeddings {
		embeddings = append(embeddings, emb.Values)
	}
	return embeddings, nil
}

// Name returns the stable identifier recorded in index manifests.
func (m *GoogleModel) Name() string {
	return "gemini/" + m.modelName
}

// compile-time check to ensure GoogleModel implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*GoogleModel)(nil)
