package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/profilestore/internal/storage"
)

// ErrInconsistent is returned by check when the projections disagree with
// the event log and --repair was not given.
var ErrInconsistent = errors.New("projections are out of date")

// Execute implements the go-flags Commander interface for RematerializeCommand.
func (c *RematerializeCommand) Execute(args []string) error {
	return withStore(c.globals, func(ctx context.Context, store *storage.Store) error {
		if err := store.Rematerialize(ctx); err != nil {
			return err
		}
		if c.globals.JSON {
			return printJSON(map[string]bool{"rematerialized": true})
		}
		fmt.Println("Rematerialized history and starred tables")
		return nil
	})
}

// Execute implements the go-flags Commander interface for CheckCommand.
func (c *CheckCommand) Execute(args []string) error {
	return withStore(c.globals, c.run)
}

func (c *CheckCommand) run(ctx context.Context, store *storage.Store) error {
	result, err := store.Check(ctx)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	if c.globals.JSON {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printConsistency(result)
	}
	if result.OK() {
		return nil
	}
	if !c.Repair {
		return ErrInconsistent
	}

	if err := store.Rematerialize(ctx); err != nil {
		return fmt.Errorf("repair: %w", err)
	}
	if !c.globals.JSON {
		fmt.Println("Repaired: projections rematerialized")
	}
	return nil
}

func printConsistency(c *storage.Consistency) {
	if c.OK() {
		fmt.Println("OK: projections match the event log")
		return
	}
	fmt.Println("Projections differ from the event log:")
	fmt.Printf("  history missing:    %d\n", c.HistoryMissing)
	fmt.Printf("  history stale:      %d\n", c.HistoryStale)
	fmt.Printf("  history duplicates: %d\n", c.HistoryDuplicates)
	fmt.Printf("  starred missing:    %d\n", c.StarredMissing)
	fmt.Printf("  starred stale:      %d\n", c.StarredStale)
}
