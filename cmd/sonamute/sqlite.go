package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sipeed/sonamute/pkg/analytics"
	"github.com/sipeed/sonamute/pkg/canonstore"
)

// newSqliteCommand implements menu option 3: project the canonical store's
// Frequency rows into a full SQLite file, then a trimmed, postprocessed
// copy (§4.7).
func newSqliteCommand() *cobra.Command {
	var full, trim, postprocess string

	cmd := &cobra.Command{
		Use:   "sqlite",
		Short: "Export the analytics store to a full and trimmed SQLite file",
		RunE: func(_ *cobra.Command, _ []string) error {
			if full == "" || trim == "" {
				return asConfigError(fmt.Errorf("sqlite: --full and --trim are required"))
			}
			store := canonstore.NewMemory()
			return analytics.NewProjector(store).Project(context.Background(), full, trim, postprocess)
		},
	}
	cmd.Flags().StringVar(&full, "full", "", "Full analytics SQLite output path")
	cmd.Flags().StringVar(&trim, "trim", "", "Trimmed analytics SQLite output path")
	cmd.Flags().StringVar(&postprocess, "postprocess", "", "Directory of .sql postprocess scripts, applied in lexicographic order")
	return cmd
}
