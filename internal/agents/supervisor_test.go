package agents

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/documents"
	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/memory"
)

func testDeps(t *testing.T, publisher *recordingPublisher) Deps {
	t.Helper()
	_, embedder := gradedBatch()
	embedder.vectors["go dev"] = []float32{1, 0}
	return Deps{
		Paraphraser: &fakeParaphraser{},
		Sentiment:   &fakeSentiment{fallback: ai.Sentiment{Label: ai.SentimentPositive, Score: 0.9}},
		Embedder:    embedder,
		Analyzer:    &fakeAnalyzer{names: []string{"carol"}},
		Store:       openStore(t),
		Publisher:   publisher,
		Logger:      zaptest.NewLogger(t),
	}
}

func testDocuments() []documents.Document {
	return []documents.Document{
		{Name: "alice.pdf", Text: "alice writes go"},
		{Name: "bob.txt", Text: "bob writes java"},
		{Name: "carol.txt", Text: "carol writes both"},
	}
}

func referenceJDs() []*hiring.JobDescription {
	// simple enough to be kept verbatim, so the optimized text matches the embedder fixture
	return []*hiring.JobDescription{{Title: "Go Developer", Description: "go dev"}}
}

func TestSupervisorRunWritesArtifactsAndPublishes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	publisher := &recordingPublisher{}

	supervisor, err := NewSupervisor(Config{
		OutputDir:          dir,
		SelectionThreshold: 0.3,
	}, testDeps(t, publisher))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := supervisor.Run(context.Background(), referenceJDs(), testDocuments())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RunID == "" {
		t.Fatal("expected run id")
	}
	if result.Scored.Len() != 3 {
		t.Fatalf("expected three scored candidates, got %d", result.Scored.Len())
	}
	// bob has no similarity: 0.4*0.63 - 0.02 stays below 0.3
	if got := result.Selected.IDs(); !reflect.DeepEqual(got, []string{"alice.pdf", "carol.txt"}) {
		t.Fatalf("unexpected selection %v", got)
	}
	if result.JobDescriptions[0].Optimized != "go dev" {
		t.Fatalf("unexpected optimized text %q", result.JobDescriptions[0].Optimized)
	}

	for _, file := range []string{
		"optimized_jds.csv",
		"cv_grading_results.csv",
		"jd_bias_fairness.csv",
		"cv_bias_fairness.csv",
		"persona_fit_results.csv",
		"explainability_results.csv",
		"feedback_adjusted_results.csv",
		"final_selected_candidates.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "final_selected_candidates.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read final csv: %v", err)
	}
	if len(records) != 3 || !reflect.DeepEqual(records[0], hiring.SelectedColumns) {
		t.Fatalf("unexpected final csv %v", records)
	}

	if !reflect.DeepEqual(publisher.selections, []string{"Go Developer:2"}) {
		t.Fatalf("unexpected publications %v", publisher.selections)
	}
}

func TestSupervisorDisabledAgents(t *testing.T) {
	dir := t.TempDir()
	deps := testDeps(t, &recordingPublisher{})

	supervisor, err := NewSupervisor(Config{
		OutputDir: dir,
		Disabled:  []string{NameBiasMonitor, " "},
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses := Describe(supervisor.Agents())
	if len(statuses) != 7 {
		t.Fatalf("expected seven agents, got %d", len(statuses))
	}
	for _, status := range statuses {
		if status.Enabled == (status.Name == NameBiasMonitor) {
			t.Fatalf("unexpected status %+v", status)
		}
	}

	result, err := supervisor.Run(context.Background(), referenceJDs(), testDocuments())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range result.Scored.Items {
		if c.Anonymized != "" {
			t.Fatalf("bias monitor must not run, %s anonymized as %q", c.ID, c.Anonymized)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "cv_bias_fairness.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no bias artifact, got %v", err)
	}

	if _, err := NewSupervisor(Config{Disabled: []string{"unknown"}}, deps); err == nil {
		t.Fatal("expected error for unknown agent")
	}
}

func TestSupervisorPublishFailureIsNotFatal(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("nats down")}
	supervisor, err := NewSupervisor(Config{}, testDeps(t, publisher))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := supervisor.Run(context.Background(), referenceJDs(), testDocuments()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(publisher.selections) != 1 {
		t.Fatalf("expected one publish attempt, got %v", publisher.selections)
	}
}

func TestSupervisorRunReportsFailingStage(t *testing.T) {
	deps := testDeps(t, &recordingPublisher{})
	deps.Embedder = nil

	supervisor, err := NewSupervisor(Config{}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = supervisor.Run(context.Background(), referenceJDs(), testDocuments())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Agent != NameCVGrader {
		t.Fatalf("expected cv grader failure, got %v", err)
	}
}

func TestSupervisorRunKeepsCandidatesWithSameFileName(t *testing.T) {
	deps := testDeps(t, &recordingPublisher{})
	store := deps.Store.(*memory.Store)
	supervisor, err := NewSupervisor(Config{SelectionThreshold: -1}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	docs := []documents.Document{
		{Name: "cv.pdf", Text: "alice writes go"},
		{Name: "cv.pdf", Text: "carol writes both"},
	}
	result, err := supervisor.Run(context.Background(), referenceJDs(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := result.Selected.IDs(); !reflect.DeepEqual(got, []string{"cv.pdf", "cv-2.pdf"}) {
		t.Fatalf("expected both uploads kept under distinct ids, got %v", got)
	}

	stored, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if stored.Len() != 2 {
		t.Fatalf("expected two stored candidates, got %d", stored.Len())
	}
}
