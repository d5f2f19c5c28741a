// Package ai declares the model-backed capabilities used by the hiring agents.
package ai

import (
	"context"
	"math"
	"strings"
)

const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
)

// Sentiment is a classified label with its confidence in [0, 1].
type Sentiment struct {
	Label string  `json:"label" mapstructure:"label"`
	Score float64 `json:"score" mapstructure:"score"`
}

// IsPositive reports whether the label is POSITIVE.
func (s Sentiment) IsPositive() bool {
	return strings.EqualFold(strings.TrimSpace(s.Label), SentimentPositive)
}

// Paraphraser rewrites text in simpler language.
type Paraphraser interface {
	Paraphrase(ctx context.Context, text string) (string, error)
}

type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (Sentiment, error)
}

// Embedder turns texts into dense vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Cosine returns the cosine similarity of a and b. Zero or mismatched vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
