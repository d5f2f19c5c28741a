package textproc

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"

	"github.com/spigell/hiresense/internal/hiring"
)

const (
	LabelPerson = "PERSON"
	Redacted    = "[REDACTED]"
)

// Analysis is the NLP view of a single text.
type Analysis struct {
	Entities    []hiring.Entity
	NounPhrases []string
}

// Analyzer runs tokenization, tagging and named-entity recognition.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Analyze(text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return &Analysis{}, nil
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("analyze text: %w", err)
	}

	analysis := &Analysis{}
	for _, ent := range doc.Entities() {
		analysis.Entities = append(analysis.Entities, hiring.Entity{Text: ent.Text, Label: ent.Label})
	}

	tokens := make([]TaggedToken, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, TaggedToken{Text: tok.Text, Tag: tok.Tag})
	}
	analysis.NounPhrases = NounPhrases(tokens)

	return analysis, nil
}

// Anonymize replaces every PERSON entity of text with [REDACTED].
func (a *Analyzer) Anonymize(text string) (string, error) {
	analysis, err := a.Analyze(text)
	if err != nil {
		return "", err
	}

	var names []string
	for _, ent := range analysis.Entities {
		if ent.Label == LabelPerson {
			names = append(names, ent.Text)
		}
	}
	return Redact(text, names), nil
}

// Redact replaces each name with [REDACTED], longest names first so that
// "Jane Doe" is not split by an earlier "Jane".
func Redact(text string, names []string) string {
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	sort.SliceStable(unique, func(i, j int) bool { return len(unique[i]) > len(unique[j]) })

	for _, name := range unique {
		text = replaceWord(text, name, Redacted)
	}
	return text
}

// replaceWord replaces whole-word occurrences of word, so "Ann" leaves
// "Annual" alone.
func replaceWord(text, word, with string) string {
	var b strings.Builder
	rest := text
	for {
		i := strings.Index(rest, word)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := i + len(word)
		before, _ := utf8.DecodeLastRuneInString(rest[:i])
		after, _ := utf8.DecodeRuneInString(rest[end:])
		b.WriteString(rest[:i])
		if (i == 0 || !isWordRune(before)) && (end == len(rest) || !isWordRune(after)) {
			b.WriteString(with)
		} else {
			b.WriteString(word)
		}
		rest = rest[end:]
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// TaggedToken is a token with its Penn Treebank part-of-speech tag.
type TaggedToken struct {
	Text string
	Tag  string
}

// NounPhrases chunks maximal runs of adjective and noun tags that end in a noun.
func NounPhrases(tokens []TaggedToken) []string {
	var (
		phrases []string
		current []TaggedToken
	)

	flush := func() {
		// trim trailing adjectives: a phrase must end in a noun
		for len(current) > 0 && !isNoun(current[len(current)-1].Tag) {
			current = current[:len(current)-1]
		}
		if len(current) > 0 {
			words := make([]string, 0, len(current))
			for _, tok := range current {
				words = append(words, tok.Text)
			}
			phrases = append(phrases, strings.Join(words, " "))
		}
		current = current[:0]
	}

	for _, tok := range tokens {
		if isNoun(tok.Tag) || isAdjective(tok.Tag) {
			current = append(current, tok)
			continue
		}
		flush()
	}
	flush()

	return phrases
}

func isNoun(tag string) bool {
	return strings.HasPrefix(tag, "NN")
}

func isAdjective(tag string) bool {
	return strings.HasPrefix(tag, "JJ")
}
