package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/profilestore/internal/storage"
)

// Execute implements the go-flags Commander interface for SessionStartCommand.
func (c *SessionStartCommand) Execute(args []string) error {
	return withStore(c.globals, func(ctx context.Context, store *storage.Store) error {
		id, err := store.StartSession(ctx, c.Scope, storage.SessionID(c.Ancestor))
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		if c.globals.JSON {
			return printJSON(map[string]int64{"session": int64(id)})
		}
		fmt.Println(id)
		return nil
	})
}

// Execute implements the go-flags Commander interface for SessionEndCommand.
func (c *SessionEndCommand) Execute(args []string) error {
	if c.ID == 0 {
		return fmt.Errorf("--id is required for session-end command")
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.Store) error {
		if err := store.EndSession(ctx, storage.SessionID(c.ID)); err != nil {
			return fmt.Errorf("end session %d: %w", c.ID, err)
		}
		if c.globals.JSON {
			return printJSON(map[string]any{"session": c.ID, "ended": true})
		}
		fmt.Printf("Ended session %d\n", c.ID)
		return nil
	})
}
