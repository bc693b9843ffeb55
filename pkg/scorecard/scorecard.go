// Package scorecard defines the tokenizer/scorer boundary (C3) the counting
// core depends on but never implements: how "is this sentence toki pona"
// gets decided is an external, swappable concern.
package scorecard

import "strings"

// PassingScore is the minimum Score a Scorecard must report for a sentence
// to be considered toki pona and eligible for counting (§4.2).
const PassingScore = 0.8

// Scorecard is the result of scoring one sentence: its raw tokens, the
// subset of tokens that survive cleaning (case-folding, punctuation strip),
// and a confidence score in [0, 1].
type Scorecard struct {
	Tokens        []string
	CleanedTokens []string
	Score         float64
}

// Passes reports whether this scorecard clears the counting threshold.
func (s Scorecard) Passes() bool {
	return s.Score >= PassingScore
}

// Scorer tokenizes and scores a block of text, splitting it into sentences
// along the way. Production code wires in a real toki pona language model;
// pkg/scorecard itself only ships the oracle test double below, since the
// scoring model is out of scope for this pipeline (§0 Non-goals).
type Scorer interface {
	Score(text string) []Scorecard
}

// Oracle is a deterministic, dependency-free Scorer used by tests and by
// any caller that wants a cheap placeholder: it splits on sentence-ending
// punctuation and whitespace, lowercases, and scores a sentence 1.0 if every
// word is in its Vocabulary (or Vocabulary is nil, meaning "accept all").
type Oracle struct {
	// Vocabulary, if non-nil, is the set of words considered valid toki
	// pona tokens. A sentence's score is the fraction of its cleaned
	// tokens found in Vocabulary.
	Vocabulary map[string]struct{}
}

func (o Oracle) Score(text string) []Scorecard {
	var out []Scorecard
	for _, raw := range splitSentences(text) {
		tokens := strings.Fields(raw)
		if len(tokens) == 0 {
			continue
		}
		cleaned := make([]string, 0, len(tokens))
		for _, t := range tokens {
			cleaned = append(cleaned, cleanToken(t))
		}
		out = append(out, Scorecard{
			Tokens:        tokens,
			CleanedTokens: cleaned,
			Score:         o.score(cleaned),
		})
	}
	return out
}

func (o Oracle) score(cleaned []string) float64 {
	if o.Vocabulary == nil {
		return 1.0
	}
	if len(cleaned) == 0 {
		return 0.0
	}
	hits := 0
	for _, w := range cleaned {
		if _, ok := o.Vocabulary[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(cleaned))
}

func cleanToken(t string) string {
	t = strings.ToLower(t)
	return strings.TrimFunc(t, func(r rune) bool {
		return strings.ContainsRune(".,!?;:\"'()[]{}", r)
	})
}

func splitSentences(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	trimmed := fields[:0]
	for _, f := range fields {
		if f != "" {
			trimmed = append(trimmed, f)
		}
	}
	return trimmed
}
