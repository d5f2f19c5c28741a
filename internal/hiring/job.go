package hiring

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	ColumnJobTitle       = "Job Title"
	ColumnJobDescription = "Job Description"
)

type JobDescription struct {
	Title       string   `json:"job_title" yaml:"job_title" validate:"required"`
	Description string   `json:"job_description" yaml:"job_description" validate:"required"`
	Optimized   string   `json:"optimized_jd" yaml:"optimized_jd"`
	GradeLevel  float64  `json:"grade_level" yaml:"grade_level"`
	Entities    []Entity `json:"entities,omitempty" yaml:"entities,omitempty"`
	NounPhrases []string `json:"noun_phrases,omitempty" yaml:"noun_phrases,omitempty"`
	BiasFlags   []string `json:"jd_bias_flags" yaml:"jd_bias_flags"`
	Anonymized  string   `json:"jd_anonymized" yaml:"jd_anonymized"`
}

// ReadJobDescriptionsFile loads job descriptions from a CSV file with
// "Job Title" and "Job Description" columns.
func ReadJobDescriptionsFile(path string) ([]*JobDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Spreadsheet exports on Windows are Windows-1252, a superset of Latin-1.
	if !utf8.Valid(data) {
		data, err = charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	return ReadJobDescriptions(bytes.NewReader(data))
}

func ReadJobDescriptions(r io.Reader) ([]*JobDescription, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("job description csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	titleIdx, descIdx := -1, -1
	for i, column := range header {
		switch strings.TrimSpace(strings.TrimPrefix(column, "\ufeff")) {
		case ColumnJobTitle:
			titleIdx = i
		case ColumnJobDescription:
			descIdx = i
		}
	}
	if titleIdx == -1 {
		return nil, fmt.Errorf("csv file must contain a %q column", ColumnJobTitle)
	}
	if descIdx == -1 {
		return nil, fmt.Errorf("csv file must contain a %q column", ColumnJobDescription)
	}

	var jds []*JobDescription
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		jds = append(jds, &JobDescription{
			Title:       field(record, titleIdx),
			Description: field(record, descIdx),
		})
	}

	return jds, nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return record[idx]
}
