package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/config"
	"github.com/sipeed/sonamute/pkg/fileutil"
	"github.com/sipeed/sonamute/pkg/ingest"
	"github.com/sipeed/sonamute/pkg/scorecard"
	"github.com/sipeed/sonamute/pkg/smtypes"
	"github.com/sipeed/sonamute/pkg/sources"
)

// newFetcher resolves a sources.yml/--source platform name to its adapter
// (§4.1). An unknown name is a configuration error, never a runtime one.
func newFetcher(name, root string) (sources.Fetcher, error) {
	switch name {
	case "discord":
		return sources.NewDiscordFetcher(root), nil
	case "telegram":
		return sources.NewTelegramFetcher(root), nil
	case "reddit":
		return sources.NewRedditFetcher(root), nil
	case "youtube":
		return sources.NewYouTubeFetcher(root), nil
	case "forum":
		return sources.NewForumFetcher(root), nil
	case "publication":
		return sources.NewPublicationFetcher(root), nil
	default:
		return nil, asConfigError(fmt.Errorf("unknown source %q", name))
	}
}

// runActions executes every sources.yml entry (§6.1) against a shared
// canonical store, fetching straight to disk for entries with to_db=false.
func runActions(ctx context.Context, store canonstore.Store, scorer scorecard.Scorer, actions []config.SourceAction) error {
	for _, a := range actions {
		fetcher, err := newFetcher(a.Source, a.Root)
		if err != nil {
			return err
		}
		if a.ToDB {
			if err := ingest.New(store, scorer).RunFetcher(ctx, fetcher); err != nil {
				return fmt.Errorf("run: fetching %s: %w", a.Source, err)
			}
			continue
		}
		if err := fetchToJSON(ctx, fetcher, a.Output); err != nil {
			return fmt.Errorf("run: fetching %s to %s: %w", a.Source, a.Output, err)
		}
	}
	return nil
}

// fetchToJSON drains a Fetcher straight to a JSON file, skipping the
// canonical store entirely (§6.1's `to_db: false` destination).
func fetchToJSON(ctx context.Context, fetcher sources.Fetcher, path string) error {
	var pres []smtypes.PreMessage
	for pre := range fetcher.Fetch(ctx) {
		pres = append(pres, pre)
	}
	data, err := json.MarshalIndent(pres, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling fetched messages: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
