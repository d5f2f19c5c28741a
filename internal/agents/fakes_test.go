package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/notify"
	"github.com/spigell/hiresense/internal/textproc"
)

const (
	simpleJD  = "We need a dev. You will write code. The team is fun."
	complexJD = "Responsibilities include architecting comprehensive distributed infrastructure, coordinating interdepartmental organizational initiatives, and communicating sophisticated technical considerations effectively."
)

type fakeParaphraser struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeParaphraser) Paraphrase(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return "", f.err
	}
	return "simple: " + text, nil
}

// fakeAnalyzer reports every configured name found in a text as a PERSON.
type fakeAnalyzer struct {
	mu       sync.Mutex
	names    []string
	analyzed []string
}

func (f *fakeAnalyzer) Analyze(text string) (*textproc.Analysis, error) {
	f.mu.Lock()
	f.analyzed = append(f.analyzed, text)
	f.mu.Unlock()

	analysis := &textproc.Analysis{NounPhrases: []string{"phrase"}}
	for _, name := range f.names {
		if strings.Contains(text, name) {
			analysis.Entities = append(analysis.Entities, hiring.Entity{Text: name, Label: textproc.LabelPerson})
		}
	}
	return analysis, nil
}

func (f *fakeAnalyzer) Anonymize(text string) (string, error) {
	return textproc.Redact(text, f.names), nil
}

type fakeSentiment struct {
	byText   map[string]ai.Sentiment
	fallback ai.Sentiment
	err      error
}

func (f *fakeSentiment) Analyze(_ context.Context, text string) (ai.Sentiment, error) {
	if f.err != nil {
		return ai.Sentiment{}, f.err
	}
	if s, ok := f.byText[text]; ok {
		return s, nil
	}
	return f.fallback, nil
}

// fakeEmbedder maps known texts to fixed vectors and everything else to fallback.
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	calls    int
	err      error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, f.fallback)
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embedding" }

// recordingAgent appends its name to applied on every Apply.
type recordingAgent struct {
	toggle
	name        string
	validateErr error
	applyErr    error
	applied     *[]string
}

func (a *recordingAgent) Name() string { return a.name }

func (a *recordingAgent) Validate(*Batch) error { return a.validateErr }

func (a *recordingAgent) Apply(_ context.Context, b *Batch) (Step, error) {
	if a.applyErr != nil {
		return Step{}, a.applyErr
	}
	*a.applied = append(*a.applied, a.name)
	n := b.Candidates.Len()
	return Step{Initial: n, Left: n}, nil
}

type recordingPublisher struct {
	selections []string
	err        error
}

func (p *recordingPublisher) Publish(_ context.Context, selection *notify.Selection) error {
	p.selections = append(p.selections, fmt.Sprintf("%s:%d", selection.JobTitle, len(selection.Candidates)))
	return p.err
}

func (p *recordingPublisher) Close() {}

func newBatch(jds ...*hiring.JobDescription) *Batch {
	return &Batch{RunID: "run-1", JobDescriptions: jds}
}

func candidates(items ...*hiring.Candidate) *hiring.Candidates {
	return &hiring.Candidates{Items: items}
}
