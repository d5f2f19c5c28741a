package hiring

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// biasFlagPenaltyBase is the number of flags that would bring the bias-free score to zero.
const biasFlagPenaltyBase = 10.0

// Scorecard is the recruiter-facing summary of a candidate, expressed in percent.
type Scorecard struct {
	Candidate     string  `json:"candidate" yaml:"candidate"`
	MatchScore    float64 `json:"match_score" yaml:"match_score"`
	CVScore       float64 `json:"cv_score" yaml:"cv_score"`
	PersonaScore  float64 `json:"persona_score" yaml:"persona_score"`
	BiasFreeScore float64 `json:"bias_free_score" yaml:"bias_free_score"`
	Explanation   string  `json:"explanation" yaml:"explanation"`
}

func (c *Candidate) Scorecard() Scorecard {
	biasFree := 100.0
	if len(c.BiasFlags) > 0 {
		biasFree = (1 - float64(len(c.BiasFlags))/biasFlagPenaltyBase) * 100
	}

	return Scorecard{
		Candidate:     c.ID,
		MatchScore:    c.UpdatedScore * 100,
		CVScore:       c.GradeScore * 100,
		PersonaScore:  c.PersonaFitScore * 100,
		BiasFreeScore: biasFree,
		Explanation:   c.Explanation,
	}
}

func (c *Candidates) Scorecards() []Scorecard {
	cards := make([]Scorecard, 0, c.Len())
	if c == nil {
		return cards
	}
	for _, candidate := range c.Items {
		cards = append(cards, candidate.Scorecard())
	}
	return cards
}

// WriteScorecardsCSV writes the dashboard download format.
func WriteScorecardsCSV(w io.Writer, cards []Scorecard) error {
	cw := csv.NewWriter(w)

	header := []string{"candidate", "match_score", "cv_score", "persona_score", "bias_free_score", "explanation"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, card := range cards {
		row := []string{
			card.Candidate,
			formatFloat(card.MatchScore),
			formatFloat(card.CVScore),
			formatFloat(card.PersonaScore),
			formatFloat(card.BiasFreeScore),
			card.Explanation,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
