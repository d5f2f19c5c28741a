package hiring

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Column sets written after each pipeline stage.
var (
	GradingColumns  = []string{"candidate_filename", "grade_score", "extracted_entities", "cv_text_preview"}
	BiasColumns     = append(append([]string{}, GradingColumns...), "cv_bias_flags", "cv_anonymized")
	PersonaColumns  = append(append([]string{}, BiasColumns...), "persona_fit_score")
	ExplainColumns  = append(append([]string{}, PersonaColumns...), "explanation")
	FeedbackColumns = append(append([]string{}, ExplainColumns...), "composite_score", "feedback_adjustment", "updated_score")
	SelectedColumns = []string{
		"candidate_id", "candidate_name", "grade_score", "extracted_entities", "cv_text_preview",
		"cv_bias_flags", "cv_anonymized", "persona_fit_score", "explanation",
		"composite_score", "feedback_adjustment", "updated_score",
	}
)

var candidateColumns = map[string]func(*Candidate) string{
	"candidate_filename":  func(c *Candidate) string { return c.ID },
	"candidate_id":        func(c *Candidate) string { return c.ID },
	"candidate_name":      func(c *Candidate) string { return c.Name },
	"grade_score":         func(c *Candidate) string { return formatFloat(c.GradeScore) },
	"extracted_entities":  func(c *Candidate) string { return mustJSON(nonNilEntities(c.Entities)) },
	"cv_text_preview":     func(c *Candidate) string { return c.Preview },
	"cv_bias_flags":       func(c *Candidate) string { return mustJSON(nonNil(c.BiasFlags)) },
	"cv_anonymized":       func(c *Candidate) string { return c.Anonymized },
	"persona_fit_score":   func(c *Candidate) string { return formatFloat(c.PersonaFitScore) },
	"explanation":         func(c *Candidate) string { return c.Explanation },
	"composite_score":     func(c *Candidate) string { return formatFloat(c.CompositeScore) },
	"feedback_adjustment": func(c *Candidate) string { return formatFloat(c.FeedbackAdjustment) },
	"updated_score":       func(c *Candidate) string { return formatFloat(c.UpdatedScore) },
}

// WriteCandidatesCSV writes the given columns for every candidate.
func WriteCandidatesCSV(w io.Writer, candidates *Candidates, columns []string) error {
	for _, column := range columns {
		if _, ok := candidateColumns[column]; !ok {
			return fmt.Errorf("unknown candidate column %q", column)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, candidate := range candidates.Items {
		row := make([]string, 0, len(columns))
		for _, column := range columns {
			row = append(row, candidateColumns[column](candidate))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJobDescriptionsCSV writes optimized job descriptions, with bias columns when requested.
func WriteJobDescriptionsCSV(w io.Writer, jds []*JobDescription, withBias bool) error {
	cw := csv.NewWriter(w)

	header := []string{ColumnJobTitle, ColumnJobDescription, "optimized_jd", "grade_level", "extracted_entities"}
	if withBias {
		header = append(header, "jd_bias_flags", "jd_anonymized")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, jd := range jds {
		extracted := map[string]any{
			"entities":     nonNilEntities(jd.Entities),
			"noun_phrases": nonNil(jd.NounPhrases),
		}
		row := []string{jd.Title, jd.Description, jd.Optimized, formatFloat(jd.GradeLevel), mustJSON(extracted)}
		if withBias {
			row = append(row, mustJSON(nonNil(jd.BiasFlags)), jd.Anonymized)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Export writes candidates in the requested format.
func Export(w io.Writer, format Format, candidates *Candidates) error {
	switch Format(strings.ToLower(string(format))) {
	case FormatCSV, "":
		return WriteCandidatesCSV(w, candidates, SelectedColumns)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates.Items)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(candidates.Items); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteFile creates path and writes into it with fn.
func WriteFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return err
	}
	return f.Close()
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilEntities(e []Entity) []Entity {
	if e == nil {
		return []Entity{}
	}
	return e
}
