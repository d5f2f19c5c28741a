package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/utils"
)

const defaultMaxLogLength = 200

//go:embed paraphrase.md
var paraphrasePrompt string

//go:embed sentiment.md
var sentimentPrompt string

type contentGenerator interface {
	GenerateContent(ctx context.Context, systemInstruction, message string) (string, error)
}

// Paraphraser simplifies hard-to-read job descriptions.
type Paraphraser struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewParaphraser(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Paraphraser {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paraphraser{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

func (p *Paraphraser) Paraphrase(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	p.logger.Debug("gemini paraphrase request",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.String("text_preview", utils.TruncateForLog(text, p.maxLogLen)),
	)

	raw, err := p.generator.GenerateContent(ctx, paraphrasePrompt, text)
	if err != nil {
		return "", fmt.Errorf("paraphrase: %w", err)
	}

	output := stripFences(raw)
	if output == "" {
		return "", fmt.Errorf("paraphrase: empty output")
	}

	p.logger.Debug("gemini paraphrase response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, p.maxLogLen)),
	)

	return output, nil
}

// SentimentAnalyzer classifies CV excerpts as POSITIVE, NEGATIVE or NEUTRAL.
type SentimentAnalyzer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewSentimentAnalyzer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *SentimentAnalyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SentimentAnalyzer{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

func (s *SentimentAnalyzer) Analyze(ctx context.Context, text string) (ai.Sentiment, error) {
	if strings.TrimSpace(text) == "" {
		return ai.Sentiment{Label: ai.SentimentNeutral}, nil
	}

	raw, err := s.generator.GenerateContent(ctx, sentimentPrompt, text)
	if err != nil {
		return ai.Sentiment{}, fmt.Errorf("sentiment: %w", err)
	}

	s.logger.Debug("gemini sentiment response",
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	return parseSentiment(raw)
}

func parseSentiment(raw string) (ai.Sentiment, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return ai.Sentiment{}, fmt.Errorf("parse sentiment response: %w", err)
	}

	var sentiment ai.Sentiment
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &sentiment,
	})
	if err != nil {
		return ai.Sentiment{}, err
	}
	if err := decoder.Decode(data); err != nil {
		return ai.Sentiment{}, fmt.Errorf("decode sentiment response: %w", err)
	}

	sentiment.Label = strings.ToUpper(strings.TrimSpace(sentiment.Label))
	switch sentiment.Label {
	case ai.SentimentPositive, ai.SentimentNegative, ai.SentimentNeutral:
	default:
		return ai.Sentiment{}, fmt.Errorf("unexpected sentiment label %q", sentiment.Label)
	}

	if math.IsNaN(sentiment.Score) {
		sentiment.Score = 0
	}
	sentiment.Score = math.Min(math.Max(sentiment.Score, 0), 1)

	return sentiment, nil
}

func extractJSON(raw string) string {
	raw = stripFences(raw)
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start != -1 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
