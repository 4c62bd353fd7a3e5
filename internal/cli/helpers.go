package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/profilestore/internal/config"
	"github.com/runnerr0/profilestore/internal/storage"
)

// loadConfig resolves configuration: --config if given, otherwise the
// default path (written with defaults on first use). --profile-dir, when
// set, skips the default config file entirely.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	switch {
	case globals.Config != "":
		cfg, err = config.Load(globals.Config)
	case globals.ProfileDir != "":
		cfg = config.DefaultConfig()
	default:
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, err
	}

	if globals.ProfileDir != "" {
		cfg.Profile.Dir = globals.ProfileDir
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return nil, err
	}
	if globals.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

// openStore opens the profile store described by the global flags.
func openStore(ctx context.Context, globals *GlobalFlags) (*storage.Store, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dir, err := cfg.ProfileDir()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, dir,
		storage.WithJournalMode(cfg.Storage.JournalMode),
		storage.WithBusyTimeout(time.Duration(cfg.Storage.BusyTimeoutMS)*time.Millisecond),
		storage.WithDefaultLimit(cfg.Query.DefaultLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("open profile %s: %w", dir, err)
	}
	return store, nil
}

// withStore opens the store, runs fn and closes the store.
func withStore(globals *GlobalFlags, fn func(ctx context.Context, store *storage.Store) error) error {
	ctx := context.Background()
	store, err := openStore(ctx, globals)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, store)
}

// withSession runs fn in session, or in a one-off session that is ended
// afterwards when session is zero.
func withSession(ctx context.Context, store *storage.Store, session int64, fn func(storage.SessionID) error) error {
	if session != 0 {
		return fn(storage.SessionID(session))
	}

	id, err := store.StartSession(ctx, 0, 0)
	if err != nil {
		return err
	}
	runErr := fn(id)
	if err := store.EndSession(ctx, id); err != nil && runErr == nil {
		return err
	}
	return runErr
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// sinceTime converts a --since flag into an absolute cutoff. Empty means
// no cutoff.
func sinceTime(since string, now time.Time) (time.Time, error) {
	if since == "" {
		return time.Time{}, nil
	}
	d, err := parseDuration(since)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value: %w", err)
	}
	return now.Add(-d), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
