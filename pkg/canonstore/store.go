// Package canonstore defines the canonical store gateway contract (C6) and
// an in-memory implementation suitable for tests and small runs.
package canonstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/sonamute/pkg/smtypes"
)

// CountedSentence is one sentence yielded by CountedSentsInRange: its
// tokens, the community it belongs to, and the author who wrote it.
type CountedSentence struct {
	Words     []string
	Community uuid.UUID
	Author    uuid.UUID
}

// Store is the canonical store gateway contract (§6.3). Every write is
// idempotent under its natural key; every range read is half-open.
type Store interface {
	SelectPlatform(ctx context.Context, id smtypes.Platform) (bool, error)
	InsertPlatform(ctx context.Context, platform smtypes.Platform) error
	InsertCommunity(ctx context.Context, community smtypes.Community) (uuid.UUID, error)
	InsertAuthor(ctx context.Context, author smtypes.Author) (uuid.UUID, error)

	MessageInDB(ctx context.Context, msg smtypes.PreMessage) (bool, error)
	InsertMessage(ctx context.Context, msg smtypes.Message, communityKey, authorKey uuid.UUID) error
	InsertSentence(ctx context.Context, messageKey uuid.UUID, words []string, score float64) error

	CountedSentsInRange(ctx context.Context, start, end time.Time, passing bool) ([]CountedSentence, error)
	GetMsgDateRange(ctx context.Context) (time.Time, time.Time, error)

	InsertFrequency(ctx context.Context, freq smtypes.Frequency) error
	TotalHitsInRange(ctx context.Context, start, end time.Time, kind smtypes.BucketKind, termLen, minSentLen int) (uint64, error)
	TotalAuthorsInRange(ctx context.Context, start, end time.Time, kind smtypes.BucketKind, termLen, minSentLen int) (int, error)

	// AllFrequencies enumerates every stored Frequency row, feeding the
	// analytics projector (C7). Not part of §6.3's contract table, which
	// covers range-scoped reads only; needed because projection is a
	// full rebuild, not a windowed query.
	AllFrequencies(ctx context.Context) ([]smtypes.Frequency, error)

	// IsAuthorCountable reports whether an author clears the
	// non-trivial-author threshold (num_tp_sentences ≥ MinSentsNeeded),
	// applied by the projector at projection time (§4.7).
	IsAuthorCountable(ctx context.Context, author uuid.UUID) (bool, error)

	UpdateAuthorNumTPSentences(ctx context.Context) error
}
