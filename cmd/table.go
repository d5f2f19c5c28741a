package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/spigell/hiresense/internal/hiring"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Width(100)
)

func renderScorecards(cards []hiring.Scorecard) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("#", "Candidate", "Match", "CV", "Persona", "Bias-free").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, card := range cards {
		t.Row(
			fmt.Sprint(i+1),
			card.Candidate,
			percent(card.MatchScore),
			percent(card.CVScore),
			percent(card.PersonaScore),
			percent(card.BiasFreeScore),
		)
	}

	return t.Render()
}

func renderCandidate(c *hiring.Candidate) string {
	card := c.Scorecard()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (Match Score: %s)", card.Candidate, percent(card.MatchScore))))
	b.WriteString("\n")
	b.WriteString(renderScorecards([]hiring.Scorecard{card}))
	b.WriteString("\n")
	b.WriteString(textStyle.Render(card.Explanation))
	if len(c.BiasFlags) > 0 {
		b.WriteString("\n")
		b.WriteString(textStyle.Render("Flagged wording: " + strings.Join(c.BiasFlags, ", ")))
	}
	return b.String()
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
