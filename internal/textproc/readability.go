// Package textproc holds the text heuristics shared by the hiring agents:
// readability grading, vocabulary checks and entity-based anonymization.
package textproc

import (
	"regexp"
	"strings"
)

var (
	wordRe        = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	nonLetterRe   = regexp.MustCompile(`[^a-z]`)
	vowelGroupRe  = regexp.MustCompile(`[aeiouy]+`)
)

// Words returns the word tokens of text.
func Words(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// Sentences splits text on terminal punctuation, dropping empty fragments.
func Sentences(text string) []string {
	var sentences []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// CountSyllables approximates the syllable count of a word by its vowel groups.
func CountSyllables(word string) int {
	word = nonLetterRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(word)), "")
	if word == "" {
		return 0
	}

	count := len(vowelGroupRe.FindAllString(word, -1))
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		return 1
	}
	return count
}

// FleschKincaidGrade computes 0.39*(words/sentences) + 11.8*(syllables/words) - 15.59.
func FleschKincaidGrade(text string) float64 {
	totalSentences := len(Sentences(text))
	if totalSentences == 0 {
		totalSentences = 1
	}

	words := Words(text)
	totalWords := len(words)
	if totalWords == 0 {
		totalWords = 1
	}

	totalSyllables := 0
	for _, w := range words {
		totalSyllables += CountSyllables(w)
	}

	return 0.39*(float64(totalWords)/float64(totalSentences)) +
		11.8*(float64(totalSyllables)/float64(totalWords)) - 15.59
}
