package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/scorecard"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

func TestCleanContent_StripsSoftHyphenAndNull(t *testing.T) {
	in := "a­b c"
	got := cleanContent(in)
	if got != "abc" {
		t.Errorf("cleanContent(%q) = %q, want %q", in, got, "abc")
	}
}

func TestPersist_DedupAndCountable(t *testing.T) {
	store := canonstore.NewMemory()
	n := New(store, scorecard.Oracle{})
	ctx := context.Background()

	pre := smtypes.PreMessage{
		ID:        1,
		Community: smtypes.Community{ID: 1, Platform: smtypes.PlatformDiscord},
		Author:    smtypes.Author{ID: 2, Name: "jan", Platform: smtypes.PlatformDiscord},
		PostDate:  time.Now().UTC(),
		Content:   "mi moku.",
	}

	result, err := n.Persist(ctx, pre)
	if err != nil {
		t.Fatal(err)
	}
	if result != Persisted {
		t.Fatalf("result = %v, want Persisted", result)
	}

	present, err := store.MessageInDB(ctx, pre)
	if err != nil {
		t.Fatal(err)
	}
	if !present {
		t.Fatal("message should be in store after persist")
	}

	result, err = n.Persist(ctx, pre)
	if err != nil {
		t.Fatal(err)
	}
	if result != AlreadyPresent {
		t.Fatalf("second persist result = %v, want AlreadyPresent", result)
	}
}

func TestPersist_BotMessageNotCounted(t *testing.T) {
	store := canonstore.NewMemory()
	n := New(store, scorecard.Oracle{})
	ctx := context.Background()

	pre := smtypes.PreMessage{
		ID:        2,
		Community: smtypes.Community{ID: 1, Platform: smtypes.PlatformDiscord},
		Author:    smtypes.Author{ID: 99, Name: "botty", Platform: smtypes.PlatformDiscord, IsBot: true},
		PostDate:  time.Now().UTC(),
		Content:   "toki a",
	}

	if _, err := n.Persist(ctx, pre); err != nil {
		t.Fatal(err)
	}

	sents, err := store.CountedSentsInRange(ctx, pre.PostDate.Add(-time.Hour), pre.PostDate.Add(time.Hour), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(sents) != 0 {
		t.Errorf("bot message should not be countable, got %d counted sentences", len(sents))
	}
}
