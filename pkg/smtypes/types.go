// Package smtypes defines the canonical entities and value types shared
// across the ingestion, counting, and projection stages of the pipeline.
package smtypes

import (
	"time"

	"github.com/google/uuid"
)

// Attr classifies the position of an observed term window inside a sentence.
type Attr int

const (
	AttrAll Attr = iota
	AttrSentenceStart
	AttrSentenceEnd
)

func (a Attr) String() string {
	switch a {
	case AttrAll:
		return "all"
	case AttrSentenceStart:
		return "sentence_start"
	case AttrSentenceEnd:
		return "sentence_end"
	default:
		return "unknown"
	}
}

// Platform is a stable small-integer enum identifying a source platform.
type Platform int

const (
	PlatformOther       Platform = 0
	PlatformDiscord     Platform = 1
	PlatformTelegram    Platform = 2
	PlatformReddit      Platform = 4
	PlatformYouTube     Platform = 5
	PlatformForum       Platform = 100
	PlatformPublication Platform = 200
)

func (p Platform) String() string {
	switch p {
	case PlatformDiscord:
		return "Discord"
	case PlatformTelegram:
		return "Telegram"
	case PlatformReddit:
		return "Reddit"
	case PlatformYouTube:
		return "YouTube"
	case PlatformForum:
		return "Forum"
	case PlatformPublication:
		return "Publication"
	default:
		return "Other"
	}
}

// NullContainer is the sentinel container id for platforms without a
// channel/thread concept (Telegram, Reddit, YouTube, Publication).
const NullContainer int64 = 0

// NullAuthor is the sentinel author id for content with no attributable author.
const NullAuthor int64 = 0

// Process-wide counting and projection parameters (§4.4, §4.7), shared by
// the counter core, the canonical store gateway, and the analytics
// projector so the "non-trivial author" and pruning thresholds agree
// everywhere they're applied.
const (
	MaxTermLen      = 6
	MinHitsNeeded   = 40
	MinSentsNeeded  = 20
	LongSentenceLen = 4
)

// Community is unique by (Platform, ID).
type Community struct {
	ID       int64
	Name     string
	Platform Platform
}

// Author is unique by (Platform, ID, Name).
type Author struct {
	ID        int64
	Name      string
	Platform  Platform
	IsBot     bool
	IsWebhook bool

	// NumTPSentences is derived by update_author_num_tp_sentences (§4.2) and
	// is only meaningful after a full ingestion pass.
	NumTPSentences int64
}

// Countable reports whether messages from this author can ever be counted,
// independent of container/platform ignore lists (§3: is_bot ∧ ¬is_webhook ⇒
// messages not counted).
func (a Author) Countable() bool {
	return !(a.IsBot && !a.IsWebhook)
}

// PreMessage is the canonical form emitted by every source adapter (C1),
// before scoring and sentence splitting.
type PreMessage struct {
	ID        int64
	Community Community
	Container int64
	Author    Author
	PostDate  time.Time
	Content   string
}

// Sentence is one scored sentence split out of a message's content.
type Sentence struct {
	Words []string
	Score float64
}

// Message is a PreMessage enriched with a score, sentence list, and the
// is_counted derivation (§3). Messages are immutable once produced.
type Message struct {
	PreMessage
	Score     float64
	IsCounted bool
	Sentences []Sentence
}

// ScoredSentence is the input unit to the counter core (C4): a cleaned,
// lowercased token sequence plus the author who wrote it.
type ScoredSentence struct {
	Words  []string
	Author uuid.UUID
}

// CommSentence additionally carries the community, used by the bucket
// aggregator (C5) before it groups sentences per community.
type CommSentence struct {
	Words     []string
	Community uuid.UUID
	Author    uuid.UUID
}

// Term is an n-gram: a space-joined run of lowercase tokens. Unique by Text.
type Term struct {
	Text string
	Len  int
}

// BucketKind distinguishes the monthly and yearly time-bucket axes, which
// the analytics projector renders into separate tables (§4.7) even though
// a yearly bucket's day (always August 1st) can coincide with a monthly
// bucket's day of the same calendar month.
type BucketKind int

const (
	BucketMonth BucketKind = iota
	BucketYear
)

// Frequency is one accumulated (term, attribute, community, min_sent_len, day)
// row as stored by the canonical store gateway (C6).
type Frequency struct {
	Term       Term
	Attr       Attr
	Community  uuid.UUID
	MinSentLen int
	Kind       BucketKind
	Day        time.Time
	Hits       uint64
	Authors    map[uuid.UUID]struct{}
}
