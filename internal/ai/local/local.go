// Package local provides offline stand-ins for the model-backed capabilities.
// They keep the pipeline usable without an API key and make runs reproducible.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/textproc"
)

const (
	ModelName            = "local-hashed-bow"
	defaultDimensions    = 512
	sentimentSaturation  = 3
	neutralSentimentConf = 0.5
)

// Paraphraser returns the text unchanged.
type Paraphraser struct{}

func (Paraphraser) Paraphrase(_ context.Context, text string) (string, error) {
	return text, nil
}

var (
	positiveWords = []string{
		"achieved", "improved", "led", "successful", "success", "excellent", "passionate",
		"delivered", "award", "innovative", "collaborative", "growth", "strong", "proud",
		"motivated", "efficient", "mentored", "launched", "enjoy", "great",
	}
	negativeWords = []string{
		"failed", "failure", "poor", "lost", "conflict", "problem", "difficult", "weak",
		"terminated", "fired", "late", "negative", "unfortunately", "decline", "issue",
	}
)

// SentimentAnalyzer scores text by counting positive and negative lexicon hits.
type SentimentAnalyzer struct{}

func (SentimentAnalyzer) Analyze(_ context.Context, text string) (ai.Sentiment, error) {
	words := make(map[string]int)
	for _, w := range textproc.Words(strings.ToLower(text)) {
		words[w]++
	}

	positive, negative := 0, 0
	for _, w := range positiveWords {
		positive += words[w]
	}
	for _, w := range negativeWords {
		negative += words[w]
	}

	diff := positive - negative
	switch {
	case diff > 0:
		return ai.Sentiment{Label: ai.SentimentPositive, Score: confidence(diff)}, nil
	case diff < 0:
		return ai.Sentiment{Label: ai.SentimentNegative, Score: confidence(-diff)}, nil
	default:
		return ai.Sentiment{Label: ai.SentimentNeutral, Score: neutralSentimentConf}, nil
	}
}

// confidence maps a lexicon margin to (0.5, 1].
func confidence(margin int) float64 {
	return 0.5 + 0.5*math.Min(float64(margin)/sentimentSaturation, 1)
}

// Embedder hashes lower-cased word tokens into a fixed-size count vector.
type Embedder struct {
	Dimensions int
}

func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	return &Embedder{Dimensions: dimensions}
}

func (e *Embedder) Model() string {
	return ModelName
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	dims := e.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vector := make([]float32, dims)
		for _, w := range textproc.Words(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(w))
			vector[h.Sum32()%uint32(dims)]++
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}
