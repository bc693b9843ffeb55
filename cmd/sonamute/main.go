// Command sonamute drives the toki pona term-frequency analytics pipeline:
// fetching platform exports, regenerating frequency buckets, and exporting
// the analytics store (§6.1).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sipeed/sonamute/pkg/logger"
)

// configError marks a failure that maps to exit code 2 (§6.1): a missing
// or malformed configuration, never a runtime failure reaching out to the
// canonical or analytics store.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func asConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &configError{err: err}
}

func isConfigError(err error) bool {
	var ce *configError
	return errors.As(err, &ce)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isConfigError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "sonamute",
		Short: "Toki pona term-frequency analytics pipeline",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if debug {
				logger.SetLevel(logger.DEBUG)
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMenu()
		},
	}
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.AddCommand(newFetchCommand(), newFrequencyCommand(), newSqliteCommand(), newRunCommand())
	return cmd
}
