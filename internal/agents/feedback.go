package agents

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/hiresense/internal/logger"
)

const (
	NameRecruiterFeedback = "recruiter_feedback"

	PositiveAdjustment = 0.05
	NegativeAdjustment = -0.02

	strongMatchPhrase = "strong match"
)

type recruiterFeedback struct {
	toggle
	notesFile string
	notes     map[string]string
	logger    *zap.Logger
}

// NewRecruiterFeedback computes composite scores and nudges them by recruiter
// feedback: a note per candidate from notesFile when present, else the explanation.
func NewRecruiterFeedback(notesFile string, logger *zap.Logger) Agent {
	return &recruiterFeedback{notesFile: strings.TrimSpace(notesFile), logger: nopIfNil(logger)}
}

func (a *recruiterFeedback) Name() string { return NameRecruiterFeedback }

func (a *recruiterFeedback) Validate(*Batch) error {
	a.notes = nil
	if a.notesFile == "" {
		return nil
	}

	notes, err := ReadNotes(a.notesFile)
	if err != nil {
		return err
	}
	a.notes = notes
	return nil
}

func (a *recruiterFeedback) Apply(_ context.Context, b *Batch) (Step, error) {
	for _, c := range b.Candidates.Items {
		feedback := c.Explanation
		if note, ok := a.notes[c.ID]; ok && strings.TrimSpace(note) != "" {
			feedback = note
			a.logger.Debug("using recruiter note", zap.String(logger.FieldCandidate, c.ID))
		}

		c.CompositeScore = GradeWeight*c.GradeScore + PersonaWeight*c.PersonaFitScore
		c.FeedbackAdjustment = Adjustment(feedback)
		c.UpdatedScore = c.CompositeScore + c.FeedbackAdjustment
	}

	n := b.Candidates.Len()
	return Step{Initial: n, Dropped: 0, Left: n}, nil
}

// Adjustment is +0.05 when feedback mentions a strong match, -0.02 otherwise.
func Adjustment(feedback string) float64 {
	if strings.Contains(strings.ToLower(feedback), strongMatchPhrase) {
		return PositiveAdjustment
	}
	return NegativeAdjustment
}

// ReadNotes loads a YAML mapping of candidate id to recruiter note.
func ReadNotes(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recruiter notes: %w", err)
	}

	notes := make(map[string]string)
	if err := yaml.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("parse recruiter notes %s: %w", path, err)
	}
	return notes, nil
}

func (a *recruiterFeedback) Status() Status {
	details := map[string]string{}
	if a.notesFile != "" {
		details["notes_file"] = a.notesFile
	}
	return a.status(a.Name(), details)
}
