package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/runnerr0/profilestore/internal/storage"
)

var visitTypes = map[string]storage.VisitType{
	"link":    storage.VisitLink,
	"typed":   storage.VisitTyped,
	"reload":  storage.VisitReload,
	"restore": storage.VisitRestore,
}

// Execute implements the go-flags Commander interface for VisitCommand.
func (c *VisitCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for visit command")
	}
	return withStore(c.globals, c.run)
}

func (c *VisitCommand) run(ctx context.Context, store *storage.Store) error {
	if err := validateURL(c.URL); err != nil {
		return err
	}
	typ, ok := visitTypes[c.Type]
	if !ok {
		return fmt.Errorf("unknown visit type %q", c.Type)
	}

	var place storage.PlaceID
	err := withSession(ctx, store, c.Session, func(session storage.SessionID) error {
		var err error
		place, err = store.VisitTyped(ctx, c.URL, session, c.Title, typ)
		return err
	})
	if err != nil {
		return err
	}

	if c.globals.JSON {
		return printJSON(map[string]any{"place": place, "url": c.URL, "title": c.Title})
	}
	fmt.Printf("Recorded visit to %s (place %d)\n", c.URL, place)
	return nil
}

// validateURL rejects strings that are not absolute URLs.
func validateURL(raw string) error {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || parsed.Scheme == "" {
		return fmt.Errorf("invalid URL: %s", raw)
	}
	return nil
}
