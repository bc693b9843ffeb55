// Package ingest implements the ingestion normalizer (C2): turning raw
// source-adapter PreMessages into scored, sentence-split canonical Messages
// and persisting them through the canonical store gateway.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/logger"
	"github.com/sipeed/sonamute/pkg/scorecard"
	"github.com/sipeed/sonamute/pkg/smtypes"
	"github.com/sipeed/sonamute/pkg/sources"
)

// DefaultBatchSize bounds in-flight canonical-store requests during
// ingestion (§4.2, §5).
const DefaultBatchSize = 150

// PersistResult reports what happened to one PreMessage.
type PersistResult int

const (
	Persisted PersistResult = iota
	AlreadyPresent
)

// cleanContent drops U+00AD (soft hyphen) and U+0000, the only characters
// the normalizer strips (§4.2 step 2).
func cleanContent(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '­' || r == 0 {
			return -1
		}
		return r
	}, s)
}

// Normalizer is the C2 component: it wraps a Store and a Scorer.
type Normalizer struct {
	Store     canonstore.Store
	Scorer    scorecard.Scorer
	BatchSize int
}

func New(store canonstore.Store, scorer scorecard.Scorer) *Normalizer {
	return &Normalizer{Store: store, Scorer: scorer, BatchSize: DefaultBatchSize}
}

// Persist implements §4.2's per-message steps: dedup check, content
// cleaning, scoring, is_counted derivation, then upsert + insert.
func (n *Normalizer) Persist(ctx context.Context, pre smtypes.PreMessage) (PersistResult, error) {
	present, err := n.Store.MessageInDB(ctx, pre)
	if err != nil {
		return 0, fmt.Errorf("ingest: checking message presence: %w", err)
	}
	if present {
		return AlreadyPresent, nil
	}

	cleaned := pre
	cleaned.Content = cleanContent(pre.Content)

	cards := n.Scorer.Score(cleaned.Content)
	sentences := make([]smtypes.Sentence, 0, len(cards))
	var maxScore float64
	for _, card := range cards {
		sentences = append(sentences, smtypes.Sentence{Words: card.CleanedTokens, Score: card.Score})
		if card.Score > maxScore {
			maxScore = card.Score
		}
	}

	isCounted := sources.IsCountable(cleaned) && anyPassing(cards)

	msg := smtypes.Message{
		PreMessage: cleaned,
		Score:      maxScore,
		IsCounted:  isCounted,
		Sentences:  sentences,
	}

	communityKey, err := n.Store.InsertCommunity(ctx, cleaned.Community)
	if err != nil {
		return 0, fmt.Errorf("ingest: upserting community: %w", err)
	}
	authorKey, err := n.Store.InsertAuthor(ctx, cleaned.Author)
	if err != nil {
		return 0, fmt.Errorf("ingest: upserting author: %w", err)
	}
	if err := n.Store.InsertMessage(ctx, msg, communityKey, authorKey); err != nil {
		return 0, fmt.Errorf("ingest: inserting message: %w", err)
	}
	return Persisted, nil
}

func anyPassing(cards []scorecard.Scorecard) bool {
	for _, c := range cards {
		if c.Passes() {
			return true
		}
	}
	return false
}

// RunFetcher drains a source Fetcher through Persist, consuming messages in
// fixed-size batches and issuing the batch's inserts concurrently (§4.2,
// §5). It returns the first error encountered, after letting its batch
// finish.
func (n *Normalizer) RunFetcher(ctx context.Context, fetcher sources.Fetcher) error {
	batchSize := n.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ch := fetcher.Fetch(ctx)
	batch := make([]smtypes.PreMessage, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		var wg sync.WaitGroup
		errs := make([]error, len(batch))
		for i, pre := range batch {
			wg.Add(1)
			go func(i int, pre smtypes.PreMessage) {
				defer wg.Done()
				if _, err := n.Persist(ctx, pre); err != nil {
					errs[i] = err
				}
			}(i, pre)
		}
		wg.Wait()
		batch = batch[:0]
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}

	for pre := range ch {
		batch = append(batch, pre)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := n.Store.UpdateAuthorNumTPSentences(ctx); err != nil {
		return fmt.Errorf("ingest: updating author sentence counts: %w", err)
	}
	logger.InfoC("ingest", "fetch complete")
	return nil
}
