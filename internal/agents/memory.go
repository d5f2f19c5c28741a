package agents

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/hiring"
)

const NameMemory = "memory"

// CandidateStore is the persistence used by the memory agent.
type CandidateStore interface {
	Reset(ctx context.Context) error
	Insert(ctx context.Context, candidates *hiring.Candidates) error
	Selected(ctx context.Context, threshold float64) (*hiring.Candidates, error)
}

type memoryAgent struct {
	toggle
	store     CandidateStore
	threshold float64
	logger    *zap.Logger
}

// NewMemory persists every scored candidate and keeps only those whose
// updated score reaches threshold.
func NewMemory(store CandidateStore, threshold float64, logger *zap.Logger) Agent {
	return &memoryAgent{store: store, threshold: threshold, logger: nopIfNil(logger)}
}

func (a *memoryAgent) Name() string { return NameMemory }

func (a *memoryAgent) Validate(*Batch) error {
	if a.store == nil {
		return fmt.Errorf("candidate store is required")
	}
	return nil
}

func (a *memoryAgent) Apply(ctx context.Context, b *Batch) (Step, error) {
	if err := a.store.Reset(ctx); err != nil {
		return Step{}, err
	}
	if err := a.store.Insert(ctx, b.Candidates); err != nil {
		return Step{}, err
	}

	selected, err := a.store.Selected(ctx, a.threshold)
	if err != nil {
		return Step{}, err
	}

	initial := b.Candidates.Len()
	b.Scored = b.Candidates
	b.Candidates = selected

	a.logger.Info("candidates selected",
		zap.Float64("threshold", a.threshold),
		zap.Strings("selected", selected.IDs()),
	)

	return Step{Initial: initial, Dropped: initial - selected.Len(), Left: selected.Len()}, nil
}

func (a *memoryAgent) Status() Status {
	return a.status(a.Name(), map[string]string{
		"threshold": strconv.FormatFloat(a.threshold, 'f', -1, 64),
	})
}
