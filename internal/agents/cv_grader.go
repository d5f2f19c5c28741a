package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/documents"
	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/logger"
	"github.com/spigell/hiresense/internal/utils"
)

const (
	NameCVGrader = "cv_grader"

	DefaultPreviewLength = 200
	DefaultConcurrency   = 4
)

type CVGraderConfig struct {
	Folder        string
	PreviewLength int
	Concurrency   int
}

type cvGrader struct {
	toggle
	cfg      CVGraderConfig
	embedder ai.Embedder
	analyzer TextAnalyzer
	loader   *documents.Loader
	logger   *zap.Logger
}

// NewCVGrader scores each CV by the semantic similarity of its text to the
// reference job description.
func NewCVGrader(cfg CVGraderConfig, embedder ai.Embedder, analyzer TextAnalyzer, loader *documents.Loader, logger *zap.Logger) Agent {
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	logger = nopIfNil(logger)
	if loader == nil {
		loader = documents.NewLoader(logger)
	}
	return &cvGrader{cfg: cfg, embedder: embedder, analyzer: analyzer, loader: loader, logger: logger}
}

func (a *cvGrader) Name() string { return NameCVGrader }

func (a *cvGrader) Validate(b *Batch) error {
	if a.embedder == nil {
		return fmt.Errorf("embedder is required")
	}
	if a.analyzer == nil {
		return fmt.Errorf("text analyzer is required")
	}
	if len(b.Documents) == 0 && strings.TrimSpace(a.cfg.Folder) == "" {
		return fmt.Errorf("a cv folder or uploaded documents are required")
	}
	return nil
}

func (a *cvGrader) Apply(ctx context.Context, b *Batch) (Step, error) {
	reference := b.ReferenceJD()
	if reference == nil || strings.TrimSpace(reference.Optimized) == "" {
		return Step{}, fmt.Errorf("reference job description has no optimized text")
	}

	docs := b.Documents
	processed := len(docs)
	if len(docs) == 0 {
		var err error
		docs, processed, err = a.loader.LoadFolder(ctx, a.cfg.Folder)
		if err != nil {
			return Step{}, err
		}
	}

	docs = documents.UniqueNames(docs)

	jdVectors, err := a.embedder.Embed(ctx, []string{reference.Optimized})
	if err != nil {
		return Step{}, fmt.Errorf("embed reference job description: %w", err)
	}
	if len(jdVectors) != 1 {
		return Step{}, fmt.Errorf("embed reference job description: expected 1 vector, got %d", len(jdVectors))
	}
	jdVector := jdVectors[0]

	candidates := make([]*hiring.Candidate, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			a.logger.Warn("skipping document without text", zap.String(logger.FieldCandidate, doc.Name))
			continue
		}
		candidates = append(candidates, &hiring.Candidate{ID: doc.Name, Text: doc.Text})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)

	for _, candidate := range candidates {
		g.Go(func() error {
			return a.grade(gctx, candidate, jdVector)
		})
	}

	if err := g.Wait(); err != nil {
		return Step{}, err
	}

	b.Candidates = &hiring.Candidates{Items: candidates}
	b.Candidates.SortByGrade()

	return Step{Initial: processed, Dropped: processed - len(candidates), Left: len(candidates)}, nil
}

func (a *cvGrader) grade(ctx context.Context, c *hiring.Candidate, jdVector []float32) error {
	analysis, err := a.analyzer.Analyze(c.Text)
	if err != nil {
		return fmt.Errorf("extract entities of %s: %w", c.ID, err)
	}

	vectors, err := a.embedder.Embed(ctx, []string{c.Text})
	if err != nil {
		return fmt.Errorf("embed %s: %w", c.ID, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("embed %s: expected 1 vector, got %d", c.ID, len(vectors))
	}

	c.Entities = analysis.Entities
	c.GradeScore = ai.Cosine(vectors[0], jdVector)
	c.Preview = utils.FirstRunes(c.Text, a.cfg.PreviewLength)

	a.logger.Debug("candidate graded",
		zap.String(logger.FieldCandidate, c.ID),
		zap.Float64("grade_score", c.GradeScore),
	)
	return nil
}

func (a *cvGrader) Status() Status {
	details := map[string]string{
		"preview_length": strconv.Itoa(a.cfg.PreviewLength),
		"concurrency":    strconv.Itoa(a.cfg.Concurrency),
	}
	if a.cfg.Folder != "" {
		details["folder"] = a.cfg.Folder
	}
	if a.embedder != nil {
		details["embedding_model"] = a.embedder.Model()
	}
	return a.status(a.Name(), details)
}
