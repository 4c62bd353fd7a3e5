package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/runnerr0/profilestore/internal/storage"
)

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	return withStore(c.globals, c.run)
}

func (c *HistoryCommand) run(ctx context.Context, store *storage.Store) error {
	since, err := sinceTime(c.Since, time.Now())
	if err != nil {
		return err
	}
	entries, err := store.History(ctx, since, c.Limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if c.globals.JSON {
		return printJSON(historyJSON(entries))
	}
	if len(entries) == 0 {
		fmt.Println("No history")
		return nil
	}
	return outputHistoryTable(entries)
}

type historyEntryJSON struct {
	Place       int64  `json:"place"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	LastVisited string `json:"last_visited"`
	VisitCount  int64  `json:"visit_count"`
}

func historyJSON(entries []storage.HistoryEntry) []historyEntryJSON {
	out := make([]historyEntryJSON, len(entries))
	for i, e := range entries {
		out[i] = historyEntryJSON{
			Place:       int64(e.Place),
			URL:         e.URL,
			Title:       e.Title,
			LastVisited: e.LastVisited.UTC().Format(time.RFC3339),
			VisitCount:  e.VisitCount,
		}
	}
	return out
}

func outputHistoryTable(entries []storage.HistoryEntry) error {
	var table = tablewriter.NewWriter(os.Stdout)
	table.Header("Title", "URL", "Visits", "Last Visited")

	for _, e := range entries {
		if err := table.Append([]string{
			e.Title,
			e.URL,
			strconv.FormatInt(e.VisitCount, 10),
			humanize.Time(e.LastVisited),
		}); err != nil {
			return fmt.Errorf("render history: %w", err)
		}
	}
	return table.Render()
}

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	query := strings.Join(args, " ")
	if query == "" {
		return fmt.Errorf("a search query is required")
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.Store) error {
		return c.run(ctx, store, query)
	})
}

func (c *SearchCommand) run(ctx context.Context, store *storage.Store, query string) error {
	since, err := sinceTime(c.Since, time.Now())
	if err != nil {
		return err
	}
	urls, err := store.VisitedMatches(ctx, query, since, c.Limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.globals.JSON {
		return printJSON(struct {
			Count   int      `json:"count"`
			Query   string   `json:"query"`
			Results []string `json:"results"`
		}{len(urls), query, urls})
	}

	if len(urls) == 0 {
		fmt.Printf("No results found for %q\n", query)
		return nil
	}
	resultWord := "results"
	if len(urls) == 1 {
		resultWord = "result"
	}
	fmt.Printf("Found %d %s for %q\n\n", len(urls), resultWord, query)
	for i, u := range urls {
		fmt.Printf("%d. %s\n", i+1, u)
	}
	return nil
}
