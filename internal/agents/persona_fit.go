package agents

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/logger"
	"github.com/spigell/hiresense/internal/textproc"
)

const (
	NamePersonaFit = "persona_fit"

	sentimentWeight   = 0.7
	softSkillWeight   = 0.3
	softSkillMaxCount = 20.0
)

type personaFit struct {
	toggle
	sentiment   ai.SentimentAnalyzer
	softSkills  []string
	concurrency int
	logger      *zap.Logger
}

// NewPersonaFit scores the tone and soft-skill vocabulary of each CV preview.
func NewPersonaFit(sentiment ai.SentimentAnalyzer, concurrency int, logger *zap.Logger) Agent {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &personaFit{
		sentiment:   sentiment,
		softSkills:  textproc.SoftSkills,
		concurrency: concurrency,
		logger:      nopIfNil(logger),
	}
}

func (a *personaFit) Name() string { return NamePersonaFit }

func (a *personaFit) Validate(*Batch) error {
	if a.sentiment == nil {
		return fmt.Errorf("sentiment analyzer is required")
	}
	return nil
}

func (a *personaFit) Apply(ctx context.Context, b *Batch) (Step, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, c := range b.Candidates.Items {
		g.Go(func() error {
			sentiment, err := a.sentiment.Analyze(gctx, c.Preview)
			if err != nil {
				return fmt.Errorf("sentiment of %s: %w", c.ID, err)
			}

			c.PersonaFitScore = PersonaScore(sentiment, textproc.CountKeywords(c.Preview, a.softSkills))

			a.logger.Debug("persona fit scored",
				zap.String(logger.FieldCandidate, c.ID),
				zap.String("sentiment", sentiment.Label),
				zap.Float64("persona_fit_score", c.PersonaFitScore),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Step{}, err
	}

	n := b.Candidates.Len()
	return Step{Initial: n, Dropped: 0, Left: n}, nil
}

// PersonaScore is 0.7 * positive sentiment + 0.3 * min(soft skill hits / 20, 1).
func PersonaScore(sentiment ai.Sentiment, softSkillHits int) float64 {
	positive := 0.0
	if sentiment.IsPositive() {
		positive = sentiment.Score
	}
	soft := math.Min(float64(softSkillHits)/softSkillMaxCount, 1)
	return sentimentWeight*positive + softSkillWeight*soft
}

func (a *personaFit) Status() Status {
	return a.status(a.Name(), nil)
}
