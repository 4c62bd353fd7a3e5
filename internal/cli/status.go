package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/runnerr0/profilestore/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	DatabasePath      string `json:"database_path"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	SchemaVersion     int    `json:"schema_version"`
	Places            int64  `json:"places"`
	Visits            int64  `json:"visits"`
	Titles            int64  `json:"titles"`
	Stars             int64  `json:"stars"`
	Sessions          int64  `json:"sessions"`
	OpenSessions      int64  `json:"open_sessions"`
	HistoryRows       int64  `json:"history_rows"`
	StarredRows       int64  `json:"starred_rows"`

	Metrics []metricSample `json:"metrics,omitempty"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withStore(c.globals, c.run)
}

func (c *StatusCommand) run(ctx context.Context, store *storage.Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	var samples []metricSample
	if c.Metrics {
		if samples, err = gatherMetrics(); err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(statusJSON{
			Version:           c.version,
			DatabasePath:      store.Path(),
			DatabaseSizeBytes: stats.DatabaseSizeBytes,
			SchemaVersion:     stats.SchemaVersion,
			Places:            stats.Places,
			Visits:            stats.Visits,
			Titles:            stats.Titles,
			Stars:             stats.Stars,
			Sessions:          stats.Sessions,
			OpenSessions:      stats.OpenSessions,
			HistoryRows:       stats.HistoryRows,
			StarredRows:       stats.StarredRows,
			Metrics:           samples,
		})
	}

	fmt.Println("Profile Status")
	fmt.Println("==============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", store.Path(), humanize.Bytes(uint64(stats.DatabaseSizeBytes)))
	fmt.Printf("Schema:        v%d\n", stats.SchemaVersion)
	fmt.Printf("Places:        %s\n", humanize.Comma(stats.Places))
	fmt.Printf("Visits:        %s\n", humanize.Comma(stats.Visits))
	fmt.Printf("Titles:        %s\n", humanize.Comma(stats.Titles))
	fmt.Printf("Star events:   %s\n", humanize.Comma(stats.Stars))
	fmt.Printf("Sessions:      %s (%s open)\n", humanize.Comma(stats.Sessions), humanize.Comma(stats.OpenSessions))
	fmt.Println()
	fmt.Printf("History rows:  %s\n", humanize.Comma(stats.HistoryRows))
	fmt.Printf("Starred:       %s\n", humanize.Comma(stats.StarredRows))

	if c.Metrics {
		fmt.Println()
		return outputMetricsTable(samples)
	}
	return nil
}
