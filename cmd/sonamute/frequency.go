package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sipeed/sonamute/pkg/buckets"
	"github.com/sipeed/sonamute/pkg/canonstore"
)

// newFrequencyCommand implements menu option 2. Standalone, it counts over
// a fresh empty store; it is wired meaningfully via `run` or the
// interactive menu, which share one store across the fetch and frequency
// steps of a session.
func newFrequencyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "frequency",
		Short: "Regenerate monthly and yearly term frequencies",
		RunE: func(_ *cobra.Command, _ []string) error {
			return regenerateFrequencies(context.Background(), canonstore.NewMemory())
		},
	}
}

// regenerateFrequencies drives the bucket aggregator (C5) over both the
// monthly and epoch/all-time axes (§4.5).
func regenerateFrequencies(ctx context.Context, store canonstore.Store) error {
	agg := buckets.NewAggregator(store)
	if err := agg.RunMonths(ctx); err != nil {
		return err
	}
	return agg.RunEpochs(ctx)
}
