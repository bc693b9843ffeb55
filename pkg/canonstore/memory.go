package canonstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/sonamute/internal/ids"
	"github.com/sipeed/sonamute/pkg/scorecard"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

type messageKey struct {
	platform  smtypes.Platform
	community int64
	message   int64
}

type sentenceRecord struct {
	words     []string
	community uuid.UUID
	author    uuid.UUID
	score     float64
	isCounted bool
	postdate  time.Time
}

type freqKey struct {
	term       string
	community  uuid.UUID
	attr       smtypes.Attr
	minSentLen int
	kind       smtypes.BucketKind
	day        time.Time
}

// Memory is a process-local, goroutine-safe implementation of Store backed
// by in-memory maps. It is the reference implementation used by tests and
// by small single-machine runs; the natural-key caches it keeps are exactly
// the ones §4.6 calls for.
type Memory struct {
	mu sync.Mutex

	platforms map[smtypes.Platform]struct{}

	communities map[string]uuid.UUID
	authors     map[string]uuid.UUID
	authorMeta  map[uuid.UUID]*smtypes.Author

	messages  map[messageKey]struct{}
	sentences []sentenceRecord

	frequencies map[freqKey]*smtypes.Frequency

	minDate, maxDate time.Time
}

func NewMemory() *Memory {
	return &Memory{
		platforms:   make(map[smtypes.Platform]struct{}),
		communities: make(map[string]uuid.UUID),
		authors:     make(map[string]uuid.UUID),
		authorMeta:  make(map[uuid.UUID]*smtypes.Author),
		messages:    make(map[messageKey]struct{}),
		frequencies: make(map[freqKey]*smtypes.Frequency),
	}
}

func communityNaturalKey(c smtypes.Community) string {
	return fmt.Sprintf("%d:%d", c.Platform, c.ID)
}

func authorNaturalKey(a smtypes.Author) string {
	return fmt.Sprintf("%d:%d:%s", a.Platform, a.ID, a.Name)
}

func (m *Memory) SelectPlatform(ctx context.Context, id smtypes.Platform) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.platforms[id]
	return ok, nil
}

func (m *Memory) InsertPlatform(ctx context.Context, platform smtypes.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.platforms[platform] = struct{}{}
	return nil
}

func (m *Memory) InsertCommunity(ctx context.Context, community smtypes.Community) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := communityNaturalKey(community)
	if id, ok := m.communities[key]; ok {
		return id, nil
	}
	id := ids.FakeUUID("community:" + key)
	m.communities[key] = id
	return id, nil
}

func (m *Memory) InsertAuthor(ctx context.Context, author smtypes.Author) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := authorNaturalKey(author)
	if id, ok := m.authors[key]; ok {
		return id, nil
	}
	id := ids.AuthorUUID(int(author.Platform), author.ID, author.Name)
	m.authors[key] = id
	rec := author
	m.authorMeta[id] = &rec
	return id, nil
}

func (m *Memory) MessageInDB(ctx context.Context, msg smtypes.PreMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := messageKey{platform: msg.Community.Platform, community: msg.Community.ID, message: msg.ID}
	_, ok := m.messages[key]
	return ok, nil
}

func (m *Memory) InsertMessage(ctx context.Context, msg smtypes.Message, communityKey, authorKey uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := messageKey{platform: msg.Community.Platform, community: msg.Community.ID, message: msg.ID}
	if _, dup := m.messages[key]; dup {
		return nil // uniqueness conflict absorbed (§7)
	}
	m.messages[key] = struct{}{}

	if m.minDate.IsZero() || msg.PostDate.Before(m.minDate) {
		m.minDate = msg.PostDate
	}
	if msg.PostDate.After(m.maxDate) {
		m.maxDate = msg.PostDate
	}

	for _, s := range msg.Sentences {
		m.sentences = append(m.sentences, sentenceRecord{
			words:     s.Words,
			community: communityKey,
			author:    authorKey,
			score:     s.Score,
			isCounted: msg.IsCounted,
			postdate:  msg.PostDate,
		})
	}
	return nil
}

func (m *Memory) InsertSentence(ctx context.Context, messageKey uuid.UUID, words []string, score float64) error {
	// Sentences are attached directly via InsertMessage in this
	// implementation; this append-only operation exists to satisfy the
	// contract for gateways that insert sentences independently of their
	// parent message row.
	return nil
}

func (m *Memory) CountedSentsInRange(ctx context.Context, start, end time.Time, passing bool) ([]CountedSentence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []CountedSentence
	for _, s := range m.sentences {
		if !s.isCounted {
			continue
		}
		if s.postdate.Before(start) || !s.postdate.Before(end) {
			continue
		}
		if (s.score >= scorecard.PassingScore) != passing {
			continue
		}
		out = append(out, CountedSentence{Words: s.words, Community: s.community, Author: s.author})
	}
	return out, nil
}

func (m *Memory) GetMsgDateRange(ctx context.Context) (time.Time, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minDate, m.maxDate, nil
}

func (m *Memory) InsertFrequency(ctx context.Context, freq smtypes.Frequency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := freqKey{term: freq.Term.Text, community: freq.Community, attr: freq.Attr, minSentLen: freq.MinSentLen, kind: freq.Kind, day: freq.Day}
	existing, ok := m.frequencies[key]
	if !ok {
		rec := freq
		rec.Authors = make(map[uuid.UUID]struct{}, len(freq.Authors))
		for a := range freq.Authors {
			rec.Authors[a] = struct{}{}
		}
		m.frequencies[key] = &rec
		return nil
	}
	// upsert: the hit count is replaced, the author set is unioned
	existing.Hits = freq.Hits
	for a := range freq.Authors {
		existing.Authors[a] = struct{}{}
	}
	return nil
}

func (m *Memory) TotalHitsInRange(ctx context.Context, start, end time.Time, kind smtypes.BucketKind, termLen, minSentLen int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint64
	for key, freq := range m.frequencies {
		if key.kind != kind || freq.Term.Len != termLen || key.minSentLen != minSentLen {
			continue
		}
		if key.day.Before(start) || !key.day.Before(end) {
			continue
		}
		total += freq.Hits
	}
	return total, nil
}

func (m *Memory) TotalAuthorsInRange(ctx context.Context, start, end time.Time, kind smtypes.BucketKind, termLen, minSentLen int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	union := make(map[uuid.UUID]struct{})
	for key, freq := range m.frequencies {
		if key.kind != kind || freq.Term.Len != termLen || key.minSentLen != minSentLen {
			continue
		}
		if key.day.Before(start) || !key.day.Before(end) {
			continue
		}
		for a := range freq.Authors {
			if m.authorCountable(a) {
				union[a] = struct{}{}
			}
		}
	}
	return len(union), nil
}

func (m *Memory) AllFrequencies(ctx context.Context) ([]smtypes.Frequency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]smtypes.Frequency, 0, len(m.frequencies))
	for _, f := range m.frequencies {
		out = append(out, *f)
	}
	return out, nil
}

func (m *Memory) IsAuthorCountable(ctx context.Context, author uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authorCountable(author), nil
}

func (m *Memory) authorCountable(id uuid.UUID) bool {
	rec, ok := m.authorMeta[id]
	if !ok {
		return false
	}
	return rec.NumTPSentences >= int64(smtypes.MinSentsNeeded)
}

// UpdateAuthorNumTPSentences recomputes each author's derived
// num_tp_sentences: the count of is_counted sentences they authored.
func (m *Memory) UpdateAuthorNumTPSentences(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[uuid.UUID]int64)
	for _, s := range m.sentences {
		if !s.isCounted {
			continue
		}
		counts[s.author]++
	}
	for id, rec := range m.authorMeta {
		rec.NumTPSentences = counts[id]
	}
	return nil
}
