package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sipeed/sonamute/pkg/analytics"
	"github.com/sipeed/sonamute/pkg/canonstore"
	"github.com/sipeed/sonamute/pkg/config"
	"github.com/sipeed/sonamute/pkg/ingest"
	"github.com/sipeed/sonamute/pkg/scorecard"
)

// runMenu drives the five-option interactive session (§6.1), the default
// when sonamute is invoked with no subcommand. It replaces the python
// original's rich.prompt menu with stdlib bufio/fmt: a full TUI is
// disproportionate to five options. The menu keeps one canonical store
// alive for the session, so fetching (1) and then running all pending
// actions (4) actually sees what was fetched.
func runMenu() error {
	store := canonstore.NewMemory()
	scorer := scorecard.Oracle{}
	reader := bufio.NewReader(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Println("\nsonamute")
		fmt.Println("1) fetch new data")
		fmt.Println("2) regenerate frequencies")
		fmt.Println("3) export analytics store")
		fmt.Println("4) run all pending actions")
		fmt.Println("5) cancel")
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}

		switch strings.TrimSpace(line) {
		case "1":
			if err := menuFetch(ctx, reader, store, scorer); err != nil {
				fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
			}
		case "2":
			if err := regenerateFrequencies(ctx, store); err != nil {
				fmt.Fprintf(os.Stderr, "frequency regeneration failed: %v\n", err)
			}
		case "3":
			if err := menuExport(ctx, reader, store); err != nil {
				fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			}
		case "4":
			if err := menuRunAll(ctx, reader, store, scorer); err != nil {
				fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			}
		case "5", "":
			fmt.Println("cancelled")
			return nil
		default:
			fmt.Println("unrecognized option")
		}
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func menuFetch(ctx context.Context, reader *bufio.Reader, store canonstore.Store, scorer scorecard.Scorer) error {
	source := prompt(reader, "source (discord/telegram/reddit/youtube/forum/publication)")
	root := prompt(reader, "root directory")
	fetcher, err := newFetcher(source, root)
	if err != nil {
		return err
	}

	if strings.EqualFold(prompt(reader, "send to canonical store? (y/n)"), "y") {
		return ingest.New(store, scorer).RunFetcher(ctx, fetcher)
	}
	return fetchToJSON(ctx, fetcher, prompt(reader, "output JSON path"))
}

func menuExport(ctx context.Context, reader *bufio.Reader, store canonstore.Store) error {
	full := prompt(reader, "full analytics store path")
	trim := prompt(reader, "trimmed analytics store path")
	postprocess := prompt(reader, "postprocess script directory (blank to skip)")
	return analytics.NewProjector(store).Project(ctx, full, trim, postprocess)
}

func menuRunAll(ctx context.Context, reader *bufio.Reader, store canonstore.Store, scorer scorecard.Scorer) error {
	actions, err := config.LoadSourcesFile(prompt(reader, "sources.yml path"))
	if err != nil {
		return err
	}
	if err := runActions(ctx, store, scorer, actions); err != nil {
		return err
	}
	if err := regenerateFrequencies(ctx, store); err != nil {
		return err
	}
	return menuExport(ctx, reader, store)
}
