package hiring

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestWriteCandidatesCSVColumns(t *testing.T) {
	c := &Candidates{Items: []*Candidate{{
		ID:         "jane.pdf",
		GradeScore: 0.75,
		Entities:   []Entity{{Text: "Google", Label: "ORGANIZATION"}},
		Preview:    "Jane Doe, team leader",
	}}}

	var buf bytes.Buffer
	if err := WriteCandidatesCSV(&buf, c, BiasColumns); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if strings.Join(records[0], ",") != strings.Join(BiasColumns, ",") {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[1] != "0.75" {
		t.Fatalf("unexpected grade: %q", row[1])
	}
	if row[2] != `[{"text":"Google","label":"ORGANIZATION"}]` {
		t.Fatalf("unexpected entities: %q", row[2])
	}
	if row[4] != "[]" {
		t.Fatalf("expected empty flag list, got %q", row[4])
	}
}

func TestWriteCandidatesCSVRejectsUnknownColumn(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCandidatesCSV(&buf, &Candidates{}, []string{"salary"}); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestWriteJobDescriptionsCSV(t *testing.T) {
	jds := []*JobDescription{{Title: "Go", Description: "desc", Optimized: "opt", GradeLevel: 12.5, BiasFlags: []string{"guru"}, Anonymized: "anon"}}

	var buf bytes.Buffer
	if err := WriteJobDescriptionsCSV(&buf, jds, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records[0]) != 7 {
		t.Fatalf("expected 7 columns, got %v", records[0])
	}
	if records[1][3] != "12.5" || records[1][5] != `["guru"]` {
		t.Fatalf("unexpected row: %v", records[1])
	}
}

func TestExportYAML(t *testing.T) {
	var buf bytes.Buffer
	c := &Candidates{Items: []*Candidate{{ID: "a.pdf", UpdatedScore: 0.7, Text: "full text is never exported"}}}

	if err := Export(&buf, FormatYAML, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "full text") {
		t.Fatalf("raw text leaked into export: %s", buf.String())
	}

	var decoded []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if decoded[0]["candidate_id"] != "a.pdf" {
		t.Fatalf("unexpected yaml: %v", decoded)
	}
}

func TestExportUnsupported(t *testing.T) {
	if err := Export(&bytes.Buffer{}, Format("xml"), &Candidates{}); err == nil {
		t.Fatalf("expected error")
	}
}
