package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/profilestore/internal/storage"
)

// Execute implements the go-flags Commander interface for StarCommand.
func (c *StarCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for star command")
	}
	return withStore(c.globals, c.run)
}

func (c *StarCommand) run(ctx context.Context, store *storage.Store) error {
	if err := validateURL(c.URL); err != nil {
		return err
	}
	action := storage.Star
	if c.Unstar {
		action = storage.Unstar
	}

	var place storage.PlaceID
	err := withSession(ctx, store, c.Session, func(session storage.SessionID) error {
		var err error
		place, err = store.StarPage(ctx, c.URL, session, action)
		return err
	})
	if err != nil {
		return err
	}

	if c.globals.JSON {
		return printJSON(map[string]any{"place": place, "url": c.URL, "action": action.String()})
	}
	fmt.Printf("Recorded %s of %s (place %d)\n", action, c.URL, place)
	return nil
}
