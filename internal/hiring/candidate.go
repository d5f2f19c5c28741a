package hiring

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

const CandidateIDField = "ID"

type Entity struct {
	Text  string `json:"text" yaml:"text"`
	Label string `json:"label" yaml:"label"`
}

type Candidates struct {
	Items []*Candidate
}

type Candidate struct {
	// ID is the CV file name the candidate was loaded from.
	ID                 string   `json:"candidate_id" yaml:"candidate_id"`
	Name               string   `json:"candidate_name,omitempty" yaml:"candidate_name,omitempty"`
	GradeScore         float64  `json:"grade_score" yaml:"grade_score"`
	Entities           []Entity `json:"extracted_entities,omitempty" yaml:"extracted_entities,omitempty"`
	Text               string   `json:"-" yaml:"-"`
	Preview            string   `json:"cv_text_preview" yaml:"cv_text_preview"`
	BiasFlags          []string `json:"cv_bias_flags" yaml:"cv_bias_flags"`
	Anonymized         string   `json:"cv_anonymized" yaml:"cv_anonymized"`
	PersonaFitScore    float64  `json:"persona_fit_score" yaml:"persona_fit_score"`
	Explanation        string   `json:"explanation" yaml:"explanation"`
	CompositeScore     float64  `json:"composite_score" yaml:"composite_score"`
	FeedbackAdjustment float64  `json:"feedback_adjustment" yaml:"feedback_adjustment"`
	UpdatedScore       float64  `json:"updated_score" yaml:"updated_score"`
}

func (c *Candidate) GetStringField(name string) string {
	switch name {
	case CandidateIDField:
		return c.ID
	default:
		return ""
	}
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, c.Len())
	if c == nil {
		return ids
	}
	for _, candidate := range c.Items {
		ids = append(ids, candidate.ID)
	}
	return ids
}

func (c *Candidates) FindByID(id string) *Candidate {
	if c == nil {
		return nil
	}
	for _, candidate := range c.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

// SortByGrade orders candidates by grade score, highest first. Ties keep ID order.
func (c *Candidates) SortByGrade() {
	sortByScore(c.Items, func(x *Candidate) float64 { return x.GradeScore })
}

// SortByUpdated orders candidates by feedback-adjusted score, highest first.
func (c *Candidates) SortByUpdated() {
	sortByScore(c.Items, func(x *Candidate) float64 { return x.UpdatedScore })
}

func sortByScore(items []*Candidate, score func(*Candidate) float64) {
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := score(items[i]), score(items[j])
		if si != sj {
			return si > sj
		}
		return items[i].ID < items[j].ID
	})
}

// Top returns up to n candidates with the highest updated score without modifying c.
func (c *Candidates) Top(n int) *Candidates {
	items := make([]*Candidate, c.Len())
	copy(items, c.Items)
	top := &Candidates{Items: items}
	top.SortByUpdated()
	if n >= 0 && n < len(top.Items) {
		top.Items = top.Items[:n]
	}
	return top
}

// Exclude removes candidates whose field matches one of targets and returns the removed ids.
// Order of the remaining candidates is preserved.
func (c *Candidates) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		set[target] = struct{}{}
	}

	var excluded []string
	kept := c.Items[:0]
	for _, candidate := range c.Items {
		if _, ok := set[candidate.GetStringField(name)]; ok {
			excluded = append(excluded, candidate.ID)
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept
	return excluded
}

// ReportByScore groups candidates into score bands for a quick overview.
func (c *Candidates) ReportByScore() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, candidate := range c.Items {
		key := scoreBand(candidate.UpdatedScore)
		entry := map[string]string{
			"candidate":     candidate.ID,
			"updated_score": fmt.Sprintf("%.3f", candidate.UpdatedScore),
			"grade_score":   fmt.Sprintf("%.3f", candidate.GradeScore),
			"persona_score": fmt.Sprintf("%.3f", candidate.PersonaFitScore),
		}
		if len(candidate.BiasFlags) > 0 {
			entry["bias_flags"] = strings.Join(candidate.BiasFlags, ",")
		}
		report[key] = append(report[key], entry)
	}
	return report
}

func scoreBand(score float64) string {
	switch {
	case score >= 0.75:
		return "strong (>= 0.75)"
	case score >= 0.5:
		return "moderate (0.50-0.75)"
	default:
		return "weak (< 0.50)"
	}
}

func (c *Candidates) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	return file.Name(), nil
}
