package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sipeed/sonamute/pkg/analytics"
	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/config"
	"github.com/sipeed/sonamute/pkg/scorecard"
)

// newRunCommand implements menu option 4: every sources.yml action,
// frequency regeneration, and analytics export, all against one shared
// in-memory canonical store built for the run (§6.1).
func newRunCommand() *cobra.Command {
	var sourcesPath, full, trim, postprocess string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run fetch, frequency regeneration, and export in one pass",
		RunE: func(_ *cobra.Command, _ []string) error {
			if sourcesPath == "" || full == "" || trim == "" {
				return asConfigError(fmt.Errorf("run: --sources, --full, and --trim are required"))
			}
			actions, err := config.LoadSourcesFile(sourcesPath)
			if err != nil {
				return asConfigError(err)
			}

			ctx := context.Background()
			store := canonstore.NewMemory()
			scorer := scorecard.Oracle{}

			if err := runActions(ctx, store, scorer, actions); err != nil {
				return err
			}
			if err := regenerateFrequencies(ctx, store); err != nil {
				return err
			}
			return analytics.NewProjector(store).Project(ctx, full, trim, postprocess)
		},
	}
	cmd.Flags().StringVar(&sourcesPath, "sources", "", "sources.yml path")
	cmd.Flags().StringVar(&full, "full", "", "Full analytics SQLite output path")
	cmd.Flags().StringVar(&trim, "trim", "", "Trimmed analytics SQLite output path")
	cmd.Flags().StringVar(&postprocess, "postprocess", "", "Directory of .sql postprocess scripts")
	return cmd
}
