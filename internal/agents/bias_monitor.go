package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/logger"
	"github.com/spigell/hiresense/internal/textproc"
)

const NameBiasMonitor = "bias_monitor"

type biasMonitor struct {
	toggle
	lexicon  []string
	analyzer TextAnalyzer
	logger   *zap.Logger
}

// NewBiasMonitor flags exclusionary vocabulary and redacts person names in
// optimized job descriptions and CV previews.
func NewBiasMonitor(lexicon []string, analyzer TextAnalyzer, logger *zap.Logger) Agent {
	if len(lexicon) == 0 {
		lexicon = textproc.BiasedTerms
	}
	return &biasMonitor{lexicon: lexicon, analyzer: analyzer, logger: nopIfNil(logger)}
}

func (a *biasMonitor) Name() string { return NameBiasMonitor }

func (a *biasMonitor) Validate(*Batch) error {
	if a.analyzer == nil {
		return fmt.Errorf("text analyzer is required")
	}
	return nil
}

func (a *biasMonitor) Apply(_ context.Context, b *Batch) (Step, error) {
	for i, jd := range b.JobDescriptions {
		jd.BiasFlags = textproc.DetectBias(jd.Optimized, a.lexicon)

		anonymized, err := a.analyzer.Anonymize(jd.Optimized)
		if err != nil {
			return Step{}, fmt.Errorf("anonymize job description %d: %w", i, err)
		}
		jd.Anonymized = anonymized

		if len(jd.BiasFlags) > 0 {
			a.logger.Warn("biased wording in job description",
				zap.String("title", jd.Title),
				zap.Strings("flags", jd.BiasFlags),
			)
		}
	}

	flagged := 0
	for _, c := range b.Candidates.Items {
		c.BiasFlags = textproc.DetectBias(c.Preview, a.lexicon)

		anonymized, err := a.analyzer.Anonymize(c.Preview)
		if err != nil {
			return Step{}, fmt.Errorf("anonymize %s: %w", c.ID, err)
		}
		c.Anonymized = anonymized

		if len(c.BiasFlags) > 0 {
			flagged++
			a.logger.Debug("biased wording in cv",
				zap.String(logger.FieldCandidate, c.ID),
				zap.Strings("flags", c.BiasFlags),
			)
		}
	}

	if flagged > 0 {
		a.logger.Info("candidates with flagged wording", zap.Int("count", flagged))
	}

	n := b.Candidates.Len()
	return Step{Initial: n, Dropped: 0, Left: n}, nil
}

func (a *biasMonitor) Status() Status {
	return a.status(a.Name(), map[string]string{"lexicon": strings.Join(a.lexicon, ",")})
}
