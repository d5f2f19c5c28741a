// Package agents runs the hiring pipeline: an ordered chain of agents that
// enrich a shared batch of job descriptions and candidates.
package agents

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/documents"
	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/logger"
	"github.com/spigell/hiresense/internal/telemetry"
	"github.com/spigell/hiresense/internal/textproc"
)

var (
	tracer   = telemetry.GetTracer(telemetry.Instrumentation + "/agents")
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Agent is a single pipeline stage.
type Agent interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(b *Batch) error
	Apply(ctx context.Context, b *Batch) (Step, error)
}

// Step describes the result of executing an agent.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Batch is the state shared by all agents of one run.
type Batch struct {
	RunID           string                   `validate:"required"`
	JobDescriptions []*hiring.JobDescription `validate:"required,min=1,dive,required"`

	// Documents are preloaded CVs; when empty the grader reads its folder.
	Documents []documents.Document

	// Candidates is the working list. The memory agent replaces it with the selection.
	Candidates *hiring.Candidates
	// Scored keeps every candidate as it was before selection.
	Scored *hiring.Candidates
}

// ReferenceJD is the job description candidates are graded against.
func (b *Batch) ReferenceJD() *hiring.JobDescription {
	if b == nil || len(b.JobDescriptions) == 0 {
		return nil
	}
	return b.JobDescriptions[0]
}

// TextAnalyzer extracts entities and anonymizes text.
type TextAnalyzer interface {
	Analyze(text string) (*textproc.Analysis, error)
	Anonymize(text string) (string, error)
}

// Status represents runtime information about an agent.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// StepHook is called after every applied agent.
type StepHook func(ctx context.Context, agent Agent, b *Batch) error

// toggle implements the enable/disable part of Agent.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string, details map[string]string) Status {
	return Status{Name: name, Enabled: !t.disabled, Reason: t.reason, Details: details}
}

// DisableByName marks the agent with the provided name as disabled while keeping it in the chain.
func DisableByName(agents []Agent, name, reason string) bool {
	found := false
	for _, agent := range agents {
		if agent.Name() == name {
			agent.Disable(reason)
			found = true
		}
	}
	return found
}

// Run validates the batch and every enabled agent, then applies the agents in order.
// The first failure aborts the run as a *StageError.
func Run(ctx context.Context, log *zap.Logger, agents []Agent, b *Batch, hooks ...StepHook) error {
	if log == nil {
		log = zap.NewNop()
	}
	if b == nil {
		return fmt.Errorf("batch is required")
	}
	if err := validate.Struct(b); err != nil {
		return newStageError("batch", fmt.Errorf("invalid batch: %w", err))
	}
	if b.Candidates == nil {
		b.Candidates = &hiring.Candidates{}
	}

	for _, agent := range agents {
		if !agent.IsEnabled() {
			continue
		}
		if err := agent.Validate(b); err != nil {
			return newStageError(agent.Name(), err)
		}
	}

	for _, agent := range agents {
		agentLog := logger.ForAgent(log, agent.Name(), b.RunID)

		if !agent.IsEnabled() {
			agentLog.Info("agent disabled")
			continue
		}

		if err := applyAgent(ctx, agentLog, agent, b); err != nil {
			return err
		}

		for _, hook := range hooks {
			if err := hook(ctx, agent, b); err != nil {
				return newStageError(agent.Name(), err)
			}
		}
	}

	return nil
}

func applyAgent(ctx context.Context, log *zap.Logger, agent Agent, b *Batch) error {
	ctx, span := tracer.Start(ctx, "agent."+agent.Name())
	defer span.End()

	span.SetAttributes(telemetry.String("run_id", b.RunID))

	info, err := agent.Apply(ctx, b)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return newStageError(agent.Name(), err)
	}

	span.SetAttributes(
		telemetry.Int("step.initial", info.Initial),
		telemetry.Int("step.dropped", info.Dropped),
		telemetry.Int("step.left", info.Left),
	)

	log.Info("agent step",
		zap.Int("initial", info.Initial),
		zap.Int("dropped", info.Dropped),
		zap.Int("left", info.Left),
	)
	return nil
}

// Describe returns status entries for the provided agents.
func Describe(agents []Agent) []Status {
	statuses := make([]Status, 0, len(agents))
	for _, agent := range agents {
		if reporter, ok := agent.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    agent.Name(),
			Enabled: agent.IsEnabled(),
		})
	}
	return statuses
}
