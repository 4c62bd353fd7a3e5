package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/runnerr0/profilestore/internal/storage"
)

// Execute implements the go-flags Commander interface for StarredCommand.
func (c *StarredCommand) Execute(args []string) error {
	return withStore(c.globals, c.run)
}

func (c *StarredCommand) run(ctx context.Context, store *storage.Store) error {
	urls, err := store.Starred(ctx)
	if err != nil {
		return fmt.Errorf("starred: %w", err)
	}
	sort.Strings(urls)

	if c.globals.JSON {
		return printJSON(urls)
	}
	if len(urls) == 0 {
		fmt.Println("No starred pages")
		return nil
	}
	for _, u := range urls {
		fmt.Println(u)
	}
	return nil
}
