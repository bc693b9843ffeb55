// Package counter implements the n-gram windowing core (C4): turning a
// stream of scored, tokenized sentences into per-term hit and author-set
// tallies.
package counter

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sipeed/sonamute/pkg/smtypes"
)

// MaxTermLen bounds how long a counted n-gram may be.
const MaxTermLen = smtypes.MaxTermLen

// MaxMinSentLenCeiling bounds the min-sentence-length axis a caller may
// request (§4.4); MinSentLen itself is a per-run parameter within this range.
const MaxMinSentLenCeiling = 6

// avgSentLen is the corpus-wide average sentence length used to size the
// nonsense filter's thresholds.
const avgSentLen = 4.13557

// nonsenseHardCapMultiple and nonsenseSoftCapMultiple (times avgSentLen)
// bound sentence length; past the soft cap, a sentence whose most frequent
// token reaches nonsenseSoftCapShare of its positions is rejected (§4.4).
const (
	nonsenseHardCapMultiple = 50
	nonsenseSoftCapMultiple = 5
	nonsenseSoftCapShare    = 0.5
)

// Key identifies one accumulated row in a StatsCounter.
type Key struct {
	TermLen    int
	TermText   string
	Attribute  smtypes.Attr
	MinSentLen int
}

// Tally is the accumulated hits and distinct authors for one Key.
type Tally struct {
	Hits    uint64
	Authors map[uuid.UUID]struct{}
}

// StatsCounter is the full output of a counting run: commutative,
// order-independent, and cheap to merge (Merge below).
type StatsCounter struct {
	counts map[Key]*Tally
	interner map[string]string
}

// New returns an empty StatsCounter.
func New() *StatsCounter {
	return &StatsCounter{
		counts:   make(map[Key]*Tally),
		interner: make(map[string]string),
	}
}

// intern returns a single shared string for equal values of s, bounding
// memory when the same term text recurs across many windows in a run.
func (c *StatsCounter) intern(s string) string {
	if v, ok := c.interner[s]; ok {
		return v
	}
	c.interner[s] = s
	return s
}

func (c *StatsCounter) bump(key Key, author uuid.UUID) {
	t, ok := c.counts[key]
	if !ok {
		t = &Tally{Authors: make(map[uuid.UUID]struct{})}
		c.counts[key] = t
	}
	t.Hits++
	t.Authors[author] = struct{}{}
}

// IsNonsense reports whether a sentence of n tokens, whose most frequent
// token occurs maxTokenCount times, should be rejected outright (§4.4).
func IsNonsense(n int, maxTokenCount int) bool {
	if n == 0 {
		return false
	}
	if float64(n) >= nonsenseHardCapMultiple*avgSentLen {
		return true
	}
	if float64(n) > nonsenseSoftCapMultiple*avgSentLen {
		share := float64(maxTokenCount) / float64(n)
		if share >= nonsenseSoftCapShare {
			return true
		}
	}
	return false
}

func maxTokenFrequency(words []string) int {
	counts := make(map[string]int, len(words))
	best := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > best {
			best = counts[w]
		}
	}
	return best
}

// Count folds one ScoredSentence into the counter, applying the nonsense
// filter and the sliding-window/attribute rules of §4.4. minSentLenCeiling
// is the run's MAX_MIN_SENT_LEN parameter (1..6).
func (c *StatsCounter) Count(sentence smtypes.ScoredSentence, minSentLenCeiling int) {
	n := len(sentence.Words)
	if n == 0 {
		return
	}
	if IsNonsense(n, maxTokenFrequency(sentence.Words)) {
		return
	}
	if minSentLenCeiling > MaxMinSentLenCeiling {
		minSentLenCeiling = MaxMinSentLenCeiling
	}

	maxL := MaxTermLen
	if n < maxL {
		maxL = n
	}

	for l := 1; l <= maxL; l++ {
		for start := 0; start+l <= n; start++ {
			end := start + l
			window := sentence.Words[start:end]
			term := c.intern(strings.Join(window, " "))
			isStart := start == 0
			isEnd := end == n

			maxMSL := minSentLenCeiling
			if n < maxMSL {
				maxMSL = n
			}
			for msl := l; msl <= maxMSL; msl++ {
				c.bump(Key{TermLen: l, TermText: term, Attribute: smtypes.AttrAll, MinSentLen: msl}, sentence.Author)
				if isStart {
					c.bump(Key{TermLen: l, TermText: term, Attribute: smtypes.AttrSentenceStart, MinSentLen: msl}, sentence.Author)
				}
				if isEnd {
					c.bump(Key{TermLen: l, TermText: term, Attribute: smtypes.AttrSentenceEnd, MinSentLen: msl}, sentence.Author)
				}
			}
		}
	}
}

// CountAll folds every sentence in sentences into the counter.
func (c *StatsCounter) CountAll(sentences []smtypes.ScoredSentence, minSentLenCeiling int) {
	for _, s := range sentences {
		c.Count(s, minSentLenCeiling)
	}
}

// Get returns the tally for key, or a zero Tally if key was never observed.
func (c *StatsCounter) Get(key Key) Tally {
	t, ok := c.counts[key]
	if !ok {
		return Tally{Authors: map[uuid.UUID]struct{}{}}
	}
	return *t
}

// Keys returns every key observed so far, in no particular order.
func (c *StatsCounter) Keys() []Key {
	out := make([]Key, 0, len(c.counts))
	for k := range c.counts {
		out = append(out, k)
	}
	return out
}

// Len reports the number of distinct keys accumulated.
func (c *StatsCounter) Len() int {
	return len(c.counts)
}

// Merge folds other's tallies into c, matching the author-set monotonicity
// property (§8): merging counters from disjoint streams equals counting
// their concatenation.
func (c *StatsCounter) Merge(other *StatsCounter) {
	for key, tally := range other.counts {
		t, ok := c.counts[key]
		if !ok {
			t = &Tally{Authors: make(map[uuid.UUID]struct{}, len(tally.Authors))}
			c.counts[key] = t
		}
		t.Hits += tally.Hits
		for a := range tally.Authors {
			t.Authors[a] = struct{}{}
		}
	}
}
