package agents

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/logger"
)

func jd() *hiring.JobDescription {
	return &hiring.JobDescription{Title: "Backend Engineer", Description: simpleJD}
}

func TestRunRejectsInvalidBatch(t *testing.T) {
	cases := map[string]*Batch{
		"no job descriptions": {RunID: "run-1"},
		"no run id":           {JobDescriptions: []*hiring.JobDescription{jd()}},
		"nil job description": {RunID: "run-1", JobDescriptions: []*hiring.JobDescription{nil}},
		"empty description":   {RunID: "run-1", JobDescriptions: []*hiring.JobDescription{{Title: "x"}}},
	}

	for name, batch := range cases {
		t.Run(name, func(t *testing.T) {
			err := Run(context.Background(), nil, nil, batch)
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				t.Fatalf("expected stage error, got %v", err)
			}
			if stageErr.Agent != "batch" {
				t.Fatalf("expected batch stage, got %q", stageErr.Agent)
			}
		})
	}

	if err := Run(context.Background(), nil, nil, nil); err == nil {
		t.Fatal("expected error for nil batch")
	}
}

func TestRunValidatesEveryAgentBeforeApplying(t *testing.T) {
	var applied []string
	validationErr := errors.New("missing dependency")
	chain := []Agent{
		&recordingAgent{name: "first", applied: &applied},
		&recordingAgent{name: "second", applied: &applied, validateErr: validationErr},
	}

	err := Run(context.Background(), nil, chain, newBatch(jd()))

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if stageErr.Agent != "second" {
		t.Fatalf("expected failure in second agent, got %q", stageErr.Agent)
	}
	if !errors.Is(err, validationErr) {
		t.Fatalf("expected wrapped validation error, got %v", err)
	}
	if len(stageErr.StackTrace()) == 0 {
		t.Fatal("expected captured stack")
	}
	if len(applied) != 0 {
		t.Fatalf("no agent must run when validation fails, applied %v", applied)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	var applied []string
	applyErr := errors.New("boom")
	chain := []Agent{
		&recordingAgent{name: "first", applied: &applied},
		&recordingAgent{name: "second", applied: &applied, applyErr: applyErr},
		&recordingAgent{name: "third", applied: &applied},
	}

	err := Run(context.Background(), nil, chain, newBatch(jd()))
	if !errors.Is(err, applyErr) {
		t.Fatalf("expected apply error, got %v", err)
	}
	if err.Error() != "second: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !reflect.DeepEqual(applied, []string{"first"}) {
		t.Fatalf("unexpected applied agents %v", applied)
	}
}

func TestRunSkipsDisabledAgentsAndCallsHooks(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	var applied, hooked []string
	chain := []Agent{
		&recordingAgent{name: "first", applied: &applied},
		&recordingAgent{name: "second", applied: &applied},
		&recordingAgent{name: "third", applied: &applied},
	}
	if !DisableByName(chain, "second", "testing") {
		t.Fatal("expected second agent to be found")
	}

	hook := func(_ context.Context, agent Agent, _ *Batch) error {
		hooked = append(hooked, agent.Name())
		return nil
	}

	batch := newBatch(jd())
	if err := Run(context.Background(), log, chain, batch, hook); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "third"}
	if !reflect.DeepEqual(applied, want) {
		t.Fatalf("applied %v, want %v", applied, want)
	}
	if !reflect.DeepEqual(hooked, want) {
		t.Fatalf("hooked %v, want %v", hooked, want)
	}
	if batch.Candidates == nil {
		t.Fatal("expected candidates to be initialized")
	}

	disabled := logs.FilterMessage("agent disabled").All()
	if len(disabled) != 1 {
		t.Fatalf("expected one disabled log, got %d", len(disabled))
	}
	if got := disabled[0].ContextMap()[logger.FieldAgent]; got != "second" {
		t.Fatalf("unexpected agent field %v", got)
	}
	if got := logs.FilterMessage("agent step").Len(); got != 2 {
		t.Fatalf("expected two step logs, got %d", got)
	}
}

func TestRunHookErrorAbortsRun(t *testing.T) {
	var applied []string
	chain := []Agent{
		&recordingAgent{name: "first", applied: &applied},
		&recordingAgent{name: "second", applied: &applied},
	}
	hookErr := errors.New("disk full")

	err := Run(context.Background(), nil, chain, newBatch(jd()), func(context.Context, Agent, *Batch) error {
		return hookErr
	})

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Agent != "first" {
		t.Fatalf("expected stage error from first agent, got %v", err)
	}
	if !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected run to stop after the first agent, applied %v", applied)
	}
}

func TestDescribe(t *testing.T) {
	var applied []string
	optimizer := NewJDOptimizer(&fakeParaphraser{}, &fakeAnalyzer{}, 12, nil)
	optimizer.Disable("manual")
	chain := []Agent{optimizer, &recordingAgent{name: "plain", applied: &applied}}

	statuses := Describe(chain)
	if len(statuses) != 2 {
		t.Fatalf("expected two statuses, got %d", len(statuses))
	}

	want := Status{
		Name:    NameJDOptimizer,
		Enabled: false,
		Reason:  "manual",
		Details: map[string]string{"grade_threshold": "12"},
	}
	if !reflect.DeepEqual(statuses[0], want) {
		t.Fatalf("unexpected status %+v", statuses[0])
	}
	if statuses[1].Name != "plain" || !statuses[1].Enabled {
		t.Fatalf("unexpected status %+v", statuses[1])
	}
}

func TestDisableByNameUnknown(t *testing.T) {
	var applied []string
	chain := []Agent{&recordingAgent{name: "first", applied: &applied}}
	if DisableByName(chain, "missing", "") {
		t.Fatal("expected unknown agent to be reported")
	}
	if !chain[0].IsEnabled() {
		t.Fatal("agent must stay enabled")
	}
}
