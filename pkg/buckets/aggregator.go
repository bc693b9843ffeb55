package buckets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/counter"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/smtypes"
)

// Aggregator drives the counter core (C4) over the time windows read from
// the canonical store (C6), writing Frequency rows back for each window.
type Aggregator struct {
	Store             canonstore.Store
	MinSentLenCeiling int
}

// NewAggregator returns an Aggregator with the default min-sentence-length
// ceiling (6, §4.4).
func NewAggregator(store canonstore.Store) *Aggregator {
	return &Aggregator{Store: store, MinSentLenCeiling: 6}
}

// RunMonths drives the counter over every calendar month touching the
// canonical store's message date range.
func (a *Aggregator) RunMonths(ctx context.Context) error {
	start, end, err := a.Store.GetMsgDateRange(ctx)
	if err != nil {
		return fmt.Errorf("buckets: reading date range: %w", err)
	}
	if start.IsZero() {
		return nil
	}
	for _, w := range MonthsInRange(start, end) {
		if err := a.runWindow(ctx, w, smtypes.BucketMonth, false); err != nil {
			return err
		}
	}
	return nil
}

// RunEpochs drives the counter over every August-1-anchored year touching
// the canonical store's message date range, then over the single all-time
// window with the day=0 sentinel.
func (a *Aggregator) RunEpochs(ctx context.Context) error {
	start, end, err := a.Store.GetMsgDateRange(ctx)
	if err != nil {
		return fmt.Errorf("buckets: reading date range: %w", err)
	}
	if start.IsZero() {
		return nil
	}
	for _, w := range EpochsInRange(start, end) {
		if err := a.runWindow(ctx, w, smtypes.BucketYear, false); err != nil {
			return err
		}
	}
	return a.runWindow(ctx, AllTimeWindow(end), smtypes.BucketYear, true)
}

// runWindow fetches passing sentences in the window, groups them by
// community, counts each community's stream independently (§4.5 step 2),
// and writes Frequency rows. Buckets run strictly serially; within a
// bucket, writes may be issued concurrently by the caller's Store
// implementation.
func (a *Aggregator) runWindow(ctx context.Context, w Window, kind smtypes.BucketKind, isAllTime bool) error {
	sents, err := a.Store.CountedSentsInRange(ctx, w.Start, w.End, true)
	if err != nil {
		return fmt.Errorf("buckets: reading sentences for window %v: %w", w, err)
	}

	byCommunity := make(map[uuid.UUID][]smtypes.ScoredSentence)
	for _, s := range sents {
		byCommunity[s.Community] = append(byCommunity[s.Community], smtypes.ScoredSentence{
			Words:  s.Words,
			Author: s.Author,
		})
	}

	day := w.Day(isAllTime)
	for community, group := range byCommunity {
		c := counter.New()
		c.CountAll(group, a.MinSentLenCeiling)

		for _, key := range c.Keys() {
			tally := c.Get(key)
			freq := smtypes.Frequency{
				Term:       smtypes.Term{Text: key.TermText, Len: key.TermLen},
				Attr:       key.Attribute,
				Community:  community,
				MinSentLen: key.MinSentLen,
				Kind:       kind,
				Day:        day,
				Hits:       tally.Hits,
				Authors:    tally.Authors,
			}
			if err := a.Store.InsertFrequency(ctx, freq); err != nil {
				return fmt.Errorf("buckets: writing frequency for window %v: %w", w, err)
			}
		}
		// release this community's author sets before the next one (§4.5 step 4)
		c = nil
	}

	logger.DebugCF("buckets", "window counted", map[string]any{
		"start":      w.Start.Format(time.RFC3339),
		"end":        w.End.Format(time.RFC3339),
		"communities": len(byCommunity),
	})
	return nil
}
