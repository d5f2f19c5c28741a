package agents

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/textproc"
)

const (
	NameJDOptimizer = "jd_optimizer"

	DefaultGradeThreshold = 10.0
)

type jdOptimizer struct {
	toggle
	paraphraser ai.Paraphraser
	analyzer    TextAnalyzer
	threshold   float64
	logger      *zap.Logger
}

// NewJDOptimizer grades every job description for readability, rewrites
// those above the grade threshold and extracts entities and noun phrases.
func NewJDOptimizer(paraphraser ai.Paraphraser, analyzer TextAnalyzer, threshold float64, logger *zap.Logger) Agent {
	if threshold <= 0 {
		threshold = DefaultGradeThreshold
	}
	return &jdOptimizer{
		paraphraser: paraphraser,
		analyzer:    analyzer,
		threshold:   threshold,
		logger:      nopIfNil(logger),
	}
}

func (a *jdOptimizer) Name() string { return NameJDOptimizer }

func (a *jdOptimizer) Validate(b *Batch) error {
	if a.paraphraser == nil {
		return fmt.Errorf("paraphraser is required")
	}
	if a.analyzer == nil {
		return fmt.Errorf("text analyzer is required")
	}
	return validate.Var(b.JobDescriptions, "required,min=1,dive,required")
}

func (a *jdOptimizer) Apply(ctx context.Context, b *Batch) (Step, error) {
	rewritten := 0

	for i, jd := range b.JobDescriptions {
		jd.GradeLevel = textproc.FleschKincaidGrade(jd.Description)

		jd.Optimized = jd.Description
		if jd.GradeLevel > a.threshold {
			optimized, err := a.paraphraser.Paraphrase(ctx, jd.Description)
			if err != nil {
				return Step{}, fmt.Errorf("optimize job description %d (%s): %w", i, jd.Title, err)
			}
			jd.Optimized = optimized
			rewritten++
		}

		analysis, err := a.analyzer.Analyze(jd.Description)
		if err != nil {
			return Step{}, fmt.Errorf("extract entities of job description %d: %w", i, err)
		}
		jd.Entities = analysis.Entities
		jd.NounPhrases = analysis.NounPhrases

		a.logger.Debug("job description graded",
			zap.String("title", jd.Title),
			zap.Float64("grade_level", jd.GradeLevel),
			zap.Bool("rewritten", jd.Optimized != jd.Description),
		)
	}

	if rewritten > 0 {
		a.logger.Info("job descriptions rewritten for readability",
			zap.Int("rewritten", rewritten),
			zap.Float64("grade_threshold", a.threshold),
		)
	}

	n := len(b.JobDescriptions)
	return Step{Initial: n, Dropped: 0, Left: n}, nil
}

func (a *jdOptimizer) Status() Status {
	return a.status(a.Name(), map[string]string{
		"grade_threshold": strconv.FormatFloat(a.threshold, 'f', -1, 64),
	})
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
