package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/ingest"
	"github.com/sipeed/sonamute/pkg/scorecard"
)

// newFetchCommand implements menu option 1 as a scriptable subcommand: one
// adapter run, either into a fresh in-memory canonical store or out to a
// JSON file (§6.1). A standalone invocation starts from an empty store;
// `run` and the interactive menu are what carry one store across a full
// fetch + frequency + export pass in a single process, since §6.3 treats a
// persistent canonical store as an external collaborator this repo doesn't
// implement.
func newFetchCommand() *cobra.Command {
	var source, root, output string
	var toDB bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one platform export into the canonical store or a JSON file",
		RunE: func(_ *cobra.Command, _ []string) error {
			if source == "" || root == "" {
				return asConfigError(fmt.Errorf("fetch: --source and --root are required"))
			}
			if !toDB && output == "" {
				return asConfigError(fmt.Errorf("fetch: --output is required when --to-db=false"))
			}

			fetcher, err := newFetcher(source, root)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if !toDB {
				return fetchToJSON(ctx, fetcher, output)
			}
			store := canonstore.NewMemory()
			return ingest.New(store, scorecard.Oracle{}).RunFetcher(ctx, fetcher)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Source platform (discord, telegram, reddit, youtube, forum, publication)")
	cmd.Flags().StringVar(&root, "root", "", "Root directory of the platform export")
	cmd.Flags().BoolVar(&toDB, "to-db", true, "Send fetched messages to the canonical store")
	cmd.Flags().StringVar(&output, "output", "", "JSON output path, required when --to-db=false")
	return cmd
}
