package buckets

import (
	"context"
	"testing"
	"time"

	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

func seedCountedMessage(t *testing.T, store *canonstore.Memory, community smtypes.Community, author smtypes.Author, id int64, postdate time.Time, words []string) {
	t.Helper()
	ctx := context.Background()
	communityKey, err := store.InsertCommunity(ctx, community)
	if err != nil {
		t.Fatal(err)
	}
	authorKey, err := store.InsertAuthor(ctx, author)
	if err != nil {
		t.Fatal(err)
	}
	msg := smtypes.Message{
		PreMessage: smtypes.PreMessage{ID: id, Community: community, Author: author, PostDate: postdate},
		IsCounted:  true,
		Sentences:  []smtypes.Sentence{{Words: words, Score: 0.95}},
	}
	if err := store.InsertMessage(ctx, msg, communityKey, authorKey); err != nil {
		t.Fatal(err)
	}
}

func TestAggregator_RunMonths(t *testing.T) {
	store := canonstore.NewMemory()
	community := smtypes.Community{ID: 1, Platform: smtypes.PlatformDiscord}
	author := smtypes.Author{ID: 2, Name: "jan", Platform: smtypes.PlatformDiscord}

	seedCountedMessage(t, store, community, author, 1, dt(2020, time.January, 5), []string{"mi", "moku"})
	seedCountedMessage(t, store, community, author, 2, dt(2020, time.February, 10), []string{"sina", "moku"})

	agg := NewAggregator(store)
	if err := agg.RunMonths(context.Background()); err != nil {
		t.Fatal(err)
	}

	total, err := store.TotalHitsInRange(context.Background(), dt(2020, time.January, 1), dt(2020, time.February, 1), smtypes.BucketMonth, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if total == 0 {
		t.Error("expected January frequencies to have been written")
	}
}

func TestAggregator_RunEpochs_WritesAllTime(t *testing.T) {
	store := canonstore.NewMemory()
	community := smtypes.Community{ID: 1, Platform: smtypes.PlatformDiscord}
	author := smtypes.Author{ID: 2, Name: "jan", Platform: smtypes.PlatformDiscord}

	seedCountedMessage(t, store, community, author, 1, dt(2020, time.January, 5), []string{"mi", "moku"})

	agg := NewAggregator(store)
	if err := agg.RunEpochs(context.Background()); err != nil {
		t.Fatal(err)
	}

	allTime := AllTimeWindow(dt(2020, time.January, 5))
	total, err := store.TotalHitsInRange(context.Background(), allTime.Day(true), allTime.Day(true).Add(time.Second), smtypes.BucketYear, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if total == 0 {
		t.Error("expected all-time frequencies to have been written")
	}
}

func TestAggregator_EmptyStore(t *testing.T) {
	store := canonstore.NewMemory()
	agg := NewAggregator(store)
	if err := agg.RunMonths(context.Background()); err != nil {
		t.Fatal(err)
	}
}
