package textproc

import (
	"reflect"
	"testing"
)

func TestRedact(t *testing.T) {
	text := "Jane Doe led the team. Jane mentored John."

	got := Redact(text, []string{"Jane", "Jane Doe", "John", "  ", "Jane"})
	want := "[REDACTED] led the team. [REDACTED] mentored [REDACTED]."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	if Redact(text, nil) != text {
		t.Fatalf("text without names must be unchanged")
	}
}

func TestRedactMatchesWholeWords(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		names []string
		want  string
	}{
		{
			name:  "name inside longer words",
			text:  "Mark led the Marketing team with Ann on Annual plans.",
			names: []string{"Mark", "Ann"},
			want:  "[REDACTED] led the Marketing team with [REDACTED] on Annual plans.",
		},
		{
			name:  "punctuation and line edges",
			text:  "Ann\n(Ann), Ann's CV; MaryAnn",
			names: []string{"Ann"},
			want:  "[REDACTED]\n([REDACTED]), [REDACTED]'s CV; MaryAnn",
		},
		{
			name:  "non-ascii neighbours",
			text:  "José and Josémaria",
			names: []string{"José"},
			want:  "[REDACTED] and Josémaria",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Redact(tc.text, tc.names); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNounPhrases(t *testing.T) {
	tokens := []TaggedToken{
		{Text: "We", Tag: "PRP"},
		{Text: "need", Tag: "VBP"},
		{Text: "a", Tag: "DT"},
		{Text: "senior", Tag: "JJ"},
		{Text: "backend", Tag: "NN"},
		{Text: "engineer", Tag: "NN"},
		{Text: "with", Tag: "IN"},
		{Text: "strong", Tag: "JJ"},
		{Text: "and", Tag: "CC"},
		{Text: "distributed", Tag: "JJ"},
		{Text: "systems", Tag: "NNS"},
		{Text: "experience", Tag: "NN"},
	}

	got := NounPhrases(tokens)
	want := []string{"senior backend engineer", "distributed systems experience"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	analysis, err := NewAnalyzer().Analyze("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analysis.Entities) != 0 || len(analysis.NounPhrases) != 0 {
		t.Fatalf("expected empty analysis, got %+v", analysis)
	}
}
