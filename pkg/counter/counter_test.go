package counter

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/sonamute/pkg/smtypes"
)

func sentence(author uuid.UUID, words ...string) smtypes.ScoredSentence {
	return smtypes.ScoredSentence{Words: words, Author: author}
}

func TestCount_FourWordSentence(t *testing.T) {
	author := uuid.New()
	c := New()
	c.Count(sentence(author, "toki", "pona", "li", "pona"), 4)

	// L=1..4 (MaxTermLen=6 but n=4, MAX_MIN_SENT_LEN here is 4)
	tally := c.Get(Key{TermLen: 1, TermText: "toki", Attribute: smtypes.AttrAll, MinSentLen: 1})
	assert.EqualValues(t, 1, tally.Hits)
	assert.Contains(t, tally.Authors, author)

	start := c.Get(Key{TermLen: 1, TermText: "toki", Attribute: smtypes.AttrSentenceStart, MinSentLen: 1})
	assert.EqualValues(t, 1, start.Hits)

	end := c.Get(Key{TermLen: 1, TermText: "pona", Attribute: smtypes.AttrSentenceEnd, MinSentLen: 1})
	assert.EqualValues(t, 1, end.Hits)

	// whole-sentence window is both start and end (Open Question b)
	whole := c.Get(Key{TermLen: 4, TermText: "toki pona li pona", Attribute: smtypes.AttrSentenceStart, MinSentLen: 4})
	assert.EqualValues(t, 1, whole.Hits)
	wholeEnd := c.Get(Key{TermLen: 4, TermText: "toki pona li pona", Attribute: smtypes.AttrSentenceEnd, MinSentLen: 4})
	assert.EqualValues(t, 1, wholeEnd.Hits)
}

func TestCount_DuplicateMessage(t *testing.T) {
	author := uuid.New()
	c := New()
	s := sentence(author, "mi", "moku")
	c.Count(s, 2)
	c.Count(s, 2)

	tally := c.Get(Key{TermLen: 1, TermText: "mi", Attribute: smtypes.AttrAll, MinSentLen: 1})
	assert.EqualValues(t, 2, tally.Hits)
}

func TestCount_NonsenseSentence(t *testing.T) {
	c := New()
	words := make([]string, 300)
	for i := range words {
		words[i] = "b"
	}
	for i := 0; i < 160; i++ {
		words[i] = "a"
	}
	c.Count(sentence(uuid.New(), words...), 6)
	assert.Equal(t, 0, c.Len(), "nonsense sentence must leave the counter untouched")
}

func TestCount_MinSentLenCeiling(t *testing.T) {
	// min_sent_len ceiling caps how high msl climbs even for long sentences.
	c := New()
	c.Count(sentence(uuid.New(), "a", "b", "c", "d", "e"), 3)
	// msl only goes up to 3, never to len(sentence)=5
	assert.EqualValues(t, 1, c.Get(Key{TermLen: 1, TermText: "a", Attribute: smtypes.AttrAll, MinSentLen: 3}).Hits)
	assert.EqualValues(t, 0, c.Get(Key{TermLen: 1, TermText: "a", Attribute: smtypes.AttrAll, MinSentLen: 5}).Hits)
}

func TestCount_AuthorCardinality(t *testing.T) {
	a1, a2 := uuid.New(), uuid.New()
	c := New()
	c.Count(sentence(a1, "toki", "pona"), 2)
	c.Count(sentence(a2, "toki", "pona"), 2)
	c.Count(sentence(a1, "toki", "pona"), 2)

	tally := c.Get(Key{TermLen: 2, TermText: "toki pona", Attribute: smtypes.AttrAll, MinSentLen: 2})
	assert.EqualValues(t, 3, tally.Hits)
	assert.Len(t, tally.Authors, 2)
}

func TestCount_NonsenseFilterCutoff(t *testing.T) {
	// a sentence of distinct tokens at n=207 is rejected on the hard cap alone
	c := New()
	words := make([]string, 207)
	for i := range words {
		words[i] = strings_Itoa(i)
	}
	c.Count(sentence(uuid.New(), words...), 6)
	assert.Equal(t, 0, c.Len())

	c2 := New()
	words206 := make([]string, 206)
	for i := range words206 {
		words206[i] = strings_Itoa(i)
	}
	c2.Count(sentence(uuid.New(), words206...), 6)
	assert.NotEqual(t, 0, c2.Len())
}

func strings_Itoa(i int) string {
	var b strings.Builder
	b.WriteString("w")
	for i > 0 {
		b.WriteByte(byte('0' + i%10))
		i /= 10
	}
	return b.String()
}

func TestWindowingCorrectness(t *testing.T) {
	author := uuid.New()
	words := []string{"a", "b", "c", "d", "e"}
	n := len(words)

	for l := 1; l <= n; l++ {
		c := New()
		c.Count(sentence(author, words...), 6)

		wantWindows := n - l + 1
		gotWindows := 0
		startHits, endHits := 0, 0
		for _, k := range c.Keys() {
			if k.TermLen != l || k.MinSentLen != l {
				continue
			}
			switch k.Attribute {
			case smtypes.AttrAll:
				gotWindows++
			case smtypes.AttrSentenceStart:
				startHits += int(c.Get(k).Hits)
			case smtypes.AttrSentenceEnd:
				endHits += int(c.Get(k).Hits)
			}
		}
		assert.Equal(t, wantWindows, gotWindows, "L=%d", l)
		assert.Equal(t, 1, startHits, "L=%d start", l)
		assert.Equal(t, 1, endHits, "L=%d end", l)
	}
}

func TestOrderIndependence(t *testing.T) {
	author := uuid.New()
	sentences := []smtypes.ScoredSentence{
		sentence(author, "mi", "moku", "e", "kili"),
		sentence(author, "sina", "toki", "pona"),
		sentence(uuid.New(), "jan", "li", "pona"),
	}

	c1 := New()
	c1.CountAll(sentences, 6)

	shuffled := append([]smtypes.ScoredSentence(nil), sentences...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	c2 := New()
	c2.CountAll(shuffled, 6)

	require.Equal(t, c1.Len(), c2.Len())
	for _, k := range c1.Keys() {
		t1, t2 := c1.Get(k), c2.Get(k)
		assert.Equal(t, t1.Hits, t2.Hits, "key %+v", k)
		assert.Equal(t, len(t1.Authors), len(t2.Authors), "key %+v", k)
	}
}

func TestMerge_MonotonicityWithConcatenation(t *testing.T) {
	a1, a2 := uuid.New(), uuid.New()
	batch1 := []smtypes.ScoredSentence{sentence(a1, "mi", "moku")}
	batch2 := []smtypes.ScoredSentence{sentence(a2, "mi", "moku"), sentence(a1, "toki", "pona")}

	merged := New()
	c1 := New()
	c1.CountAll(batch1, 2)
	c2 := New()
	c2.CountAll(batch2, 2)
	merged.Merge(c1)
	merged.Merge(c2)

	concat := New()
	concat.CountAll(append(append([]smtypes.ScoredSentence{}, batch1...), batch2...), 2)

	require.Equal(t, concat.Len(), merged.Len())
	for _, k := range concat.Keys() {
		assert.Equal(t, concat.Get(k).Hits, merged.Get(k).Hits, "key %+v", k)
	}
}

func TestIdempotence(t *testing.T) {
	sentences := []smtypes.ScoredSentence{
		sentence(uuid.New(), "mi", "wile", "e", "ni"),
	}
	c1 := New()
	c1.CountAll(sentences, 6)
	c2 := New()
	c2.CountAll(sentences, 6)

	require.Equal(t, c1.Len(), c2.Len())
	for _, k := range c1.Keys() {
		assert.Equal(t, c1.Get(k).Hits, c2.Get(k).Hits)
	}
}
