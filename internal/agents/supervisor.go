package agents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/documents"
	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/notify"
	"github.com/spigell/hiresense/internal/telemetry"
)

// Config holds the tunables of the pipeline.
type Config struct {
	GradeThreshold       float64  `mapstructure:"grade-threshold"`
	StrongMatchThreshold float64  `mapstructure:"strong-match-threshold"`
	SelectionThreshold   float64  `mapstructure:"selection-threshold"`
	PreviewLength        int      `mapstructure:"preview-length"`
	Concurrency          int      `mapstructure:"concurrency"`
	CVFolder             string   `mapstructure:"cv-folder"`
	OutputDir            string   `mapstructure:"output-dir"`
	NotesFile            string   `mapstructure:"notes-file"`
	BiasLexicon          []string `mapstructure:"bias-lexicon"`
	Disabled             []string `mapstructure:"disabled"`
}

// Deps are the collaborators the agents are built from.
type Deps struct {
	Paraphraser ai.Paraphraser
	Sentiment   ai.SentimentAnalyzer
	Embedder    ai.Embedder
	Analyzer    TextAnalyzer
	Store       CandidateStore
	Publisher   notify.Publisher
	Loader      *documents.Loader
	Logger      *zap.Logger
}

// Result is the outcome of one supervised run.
type Result struct {
	RunID           string
	JobDescriptions []*hiring.JobDescription
	// Scored holds every graded candidate; Selected those kept by the memory agent.
	Scored   *hiring.Candidates
	Selected *hiring.Candidates
}

// Supervisor runs the fixed agent chain.
type Supervisor struct {
	cfg       Config
	agents    []Agent
	publisher notify.Publisher
	logger    *zap.Logger
}

// artifacts maps agent names to the CSV files written after them.
var artifacts = map[string][]artifact{
	NameJDOptimizer: {{file: "optimized_jds.csv", write: writeJDs(false)}},
	NameCVGrader:    {{file: "cv_grading_results.csv", write: writeCandidates(hiring.GradingColumns)}},
	NameBiasMonitor: {
		{file: "jd_bias_fairness.csv", write: writeJDs(true)},
		{file: "cv_bias_fairness.csv", write: writeCandidates(hiring.BiasColumns)},
	},
	NamePersonaFit:        {{file: "persona_fit_results.csv", write: writeCandidates(hiring.PersonaColumns)}},
	NameExplainability:    {{file: "explainability_results.csv", write: writeCandidates(hiring.ExplainColumns)}},
	NameRecruiterFeedback: {{file: "feedback_adjusted_results.csv", write: writeCandidates(hiring.FeedbackColumns)}},
	NameMemory:            {{file: "final_selected_candidates.csv", write: writeCandidates(hiring.SelectedColumns)}},
}

type artifact struct {
	file  string
	write func(w io.Writer, b *Batch) error
}

func writeJDs(withBias bool) func(io.Writer, *Batch) error {
	return func(w io.Writer, b *Batch) error {
		return hiring.WriteJobDescriptionsCSV(w, b.JobDescriptions, withBias)
	}
}

func writeCandidates(columns []string) func(io.Writer, *Batch) error {
	return func(w io.Writer, b *Batch) error {
		return hiring.WriteCandidatesCSV(w, b.Candidates, columns)
	}
}

// NewSupervisor assembles the agent chain in pipeline order.
func NewSupervisor(cfg Config, deps Deps) (*Supervisor, error) {
	logger := nopIfNil(deps.Logger)

	publisher := deps.Publisher
	if publisher == nil {
		publisher = notify.Nop{}
	}

	loader := deps.Loader
	if loader == nil {
		loader = documents.NewLoader(logger)
	}

	chain := []Agent{
		NewJDOptimizer(deps.Paraphraser, deps.Analyzer, cfg.GradeThreshold, logger),
		NewCVGrader(CVGraderConfig{
			Folder:        cfg.CVFolder,
			PreviewLength: cfg.PreviewLength,
			Concurrency:   cfg.Concurrency,
		}, deps.Embedder, deps.Analyzer, loader, logger),
		NewBiasMonitor(cfg.BiasLexicon, deps.Analyzer, logger),
		NewPersonaFit(deps.Sentiment, cfg.Concurrency, logger),
		NewExplainability(cfg.StrongMatchThreshold, logger),
		NewRecruiterFeedback(cfg.NotesFile, logger),
		NewMemory(deps.Store, cfg.SelectionThreshold, logger),
	}

	for _, name := range cfg.Disabled {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !DisableByName(chain, name, "disabled in config") {
			return nil, fmt.Errorf("unknown agent %q in disabled list", name)
		}
	}

	return &Supervisor{cfg: cfg, agents: chain, publisher: publisher, logger: logger}, nil
}

func (s *Supervisor) Agents() []Agent {
	return s.agents
}

// Run executes the chain over the job descriptions and, when given, the
// uploaded documents instead of the configured CV folder.
func (s *Supervisor) Run(ctx context.Context, jds []*hiring.JobDescription, docs []documents.Document) (*Result, error) {
	runID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "supervisor.Run")
	defer span.End()
	span.SetAttributes(
		telemetry.String("run_id", runID),
		telemetry.Int("job_descriptions", len(jds)),
		telemetry.Int("documents", len(docs)),
	)

	batch := &Batch{
		RunID:           runID,
		JobDescriptions: jds,
		Documents:       docs,
	}

	var hooks []StepHook
	if dir := strings.TrimSpace(s.cfg.OutputDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		hooks = append(hooks, s.writeArtifacts(dir))
	}

	s.logger.Info("starting pipeline", zap.String("run_id", runID), zap.Int("agents", len(s.agents)))

	if err := Run(ctx, s.logger, s.agents, batch, hooks...); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &Result{
		RunID:           runID,
		JobDescriptions: batch.JobDescriptions,
		Scored:          batch.Scored,
		Selected:        batch.Candidates,
	}
	if result.Scored == nil {
		result.Scored = batch.Candidates
	}

	s.publish(ctx, result)

	return result, nil
}

func (s *Supervisor) writeArtifacts(dir string) StepHook {
	return func(_ context.Context, agent Agent, b *Batch) error {
		for _, a := range artifacts[agent.Name()] {
			path := filepath.Join(dir, a.file)
			if err := hiring.WriteFile(path, func(w io.Writer) error { return a.write(w, b) }); err != nil {
				return fmt.Errorf("write %s: %w", a.file, err)
			}
			s.logger.Debug("artifact written", zap.String("path", path))
		}
		return nil
	}
}

func (s *Supervisor) publish(ctx context.Context, result *Result) {
	title := ""
	if len(result.JobDescriptions) > 0 {
		title = result.JobDescriptions[0].Title
	}

	selection := &notify.Selection{
		RunID:      result.RunID,
		JobTitle:   title,
		Threshold:  s.cfg.SelectionThreshold,
		Candidates: result.Selected.Scorecards(),
	}

	if err := s.publisher.Publish(ctx, selection); err != nil {
		s.logger.Warn("publishing selection", zap.String("run_id", result.RunID), zap.Error(err))
	}
}
