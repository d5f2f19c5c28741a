package agents

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/hiring"
)

const (
	NameExplainability = "explainability"

	// DefaultStrongMatchThreshold decides the verdict, and recruiter_feedback
	// turns a strong verdict into PositiveAdjustment. Without the verdict every
	// candidate would get NegativeAdjustment. Predictions never exceed 1, so a
	// threshold above 1 keeps every verdict partial.
	DefaultStrongMatchThreshold = 0.7

	GradeWeight   = 0.6
	PersonaWeight = 0.4

	VerdictStrong  = "overall: strong match"
	VerdictPartial = "overall: partial match"
)

var explainedFeatures = []string{"grade_score", "persona_fit_score"}

type explainability struct {
	toggle
	strongMatch float64
	logger      *zap.Logger
}

// NewExplainability fits a linear model over grade and persona scores and
// writes a per-candidate explanation of each feature's contribution.
func NewExplainability(strongMatch float64, logger *zap.Logger) Agent {
	if strongMatch <= 0 {
		strongMatch = DefaultStrongMatchThreshold
	}
	return &explainability{strongMatch: strongMatch, logger: nopIfNil(logger)}
}

func (a *explainability) Name() string { return NameExplainability }

func (a *explainability) Validate(*Batch) error { return nil }

func (a *explainability) Apply(_ context.Context, b *Batch) (Step, error) {
	n := b.Candidates.Len()
	if n == 0 {
		return Step{}, nil
	}

	x := make([][]float64, 0, n)
	y := make([]float64, 0, n)
	for _, c := range b.Candidates.Items {
		x = append(x, features(c))
		y = append(y, GradeWeight*c.GradeScore+PersonaWeight*c.PersonaFitScore)
	}

	model, ok := fitOLS(x, y)
	if !ok {
		// fall back to the target weights around the sample means
		model.Coef = []float64{GradeWeight, PersonaWeight}
		model.Intercept = 0
		a.logger.Debug("singular feature matrix, using target weights",
			zap.Int("candidates", n),
		)
	}

	for i, c := range b.Candidates.Items {
		contributions := model.Contributions(x[i])
		c.Explanation = Explain(c.ID, contributions, model.Predict(x[i]) >= a.strongMatch)
	}

	a.logger.Debug("explanations generated",
		zap.Float64("grade_coef", model.Coef[0]),
		zap.Float64("persona_coef", model.Coef[1]),
		zap.Float64("intercept", model.Intercept),
	)

	return Step{Initial: n, Dropped: 0, Left: n}, nil
}

func features(c *hiring.Candidate) []float64 {
	return []float64{c.GradeScore, c.PersonaFitScore}
}

// Explain renders contributions as
// "Candidate 'id': grade_score increases score by 0.12; persona_fit_score decreases score by 0.03; overall: ...".
func Explain(id string, contributions []float64, strong bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Candidate '%s': ", id)
	for j, value := range contributions {
		direction := "increases"
		if value < 0 {
			direction = "decreases"
		}
		fmt.Fprintf(&b, "%s %s score by %.2f; ", explainedFeatures[j], direction, math.Abs(value))
	}

	if strong {
		b.WriteString(VerdictStrong)
	} else {
		b.WriteString(VerdictPartial)
	}
	return b.String()
}

func (a *explainability) Status() Status {
	return a.status(a.Name(), map[string]string{
		"strong_match_threshold": strconv.FormatFloat(a.strongMatch, 'f', -1, 64),
	})
}
