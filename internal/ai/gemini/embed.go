package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultEmbeddingModel = "text-embedding-004"
	defaultEmbedBatch     = 100
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder produces semantic vectors with a Gemini embedding model.
type Embedder struct {
	models    contentEmbedder
	model     string
	batchSize int
	logger    *zap.Logger
}

func NewEmbedder(client *genai.Client, model string, logger *zap.Logger) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	return newEmbedder(client.Models, model, defaultEmbedBatch, logger), nil
}

func newEmbedder(models contentEmbedder, model string, batchSize int, logger *zap.Logger) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	if batchSize <= 0 {
		batchSize = defaultEmbedBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{models: models, model: model, batchSize: batchSize, logger: logger}
}

func (e *Embedder) Model() string {
	return e.model
}

// Embed returns one vector per text, requesting at most batchSize texts per call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		resp, err := e.models.EmbedContent(ctx, e.model, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		if resp == nil || len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embed content: expected %d embeddings", end-start)
		}

		for _, embedding := range resp.Embeddings {
			if embedding == nil {
				return nil, errors.New("embed content: missing embedding")
			}
			vectors = append(vectors, embedding.Values)
		}

		e.logger.Debug("gemini embeddings received", zap.Int("count", end-start))
	}

	return vectors, nil
}
