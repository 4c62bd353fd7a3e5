package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// FileName is the profile database file inside a profile directory.
const FileName = "browser.db"

const (
	defaultLimit         = 10
	defaultBusyTimeoutMS = 5000
	defaultJournalMode   = "wal"
)

// Store is the profile storage engine: an event log of places, titles,
// visits, stars and sessions, with mHistory and mStarred kept in step
// with it. A Store assumes it is the only writer of its file.
type Store struct {
	db      *sql.DB
	path    string
	version int

	places *placeCache
	gate   *semaphore.Weighted
	closed atomic.Bool

	now          func() time.Time
	defaultLimit int

	// beforeMaterialize, when set, runs after event rows are inserted and
	// before the projection update; a returned error aborts the write.
	beforeMaterialize func() error
}

type options struct {
	now           func() time.Time
	journalMode   string
	busyTimeoutMS int
	defaultLimit  int
}

// Option configures Open.
type Option func(*options)

// WithClock sets the source of event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithJournalMode sets the SQLite journal mode (wal, delete, truncate,
// persist, memory or off).
func WithJournalMode(mode string) Option {
	return func(o *options) { o.journalMode = mode }
}

// WithBusyTimeout sets how long a connection waits on a locked file.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeoutMS = int(d / time.Millisecond) }
}

// WithDefaultLimit sets the result cap used when a query passes limit <= 0.
func WithDefaultLimit(n int) Option {
	return func(o *options) { o.defaultLimit = n }
}

// JournalModes lists the SQLite journal modes accepted by WithJournalMode.
var JournalModes = []string{"wal", "delete", "truncate", "persist", "memory", "off"}

// ValidJournalMode reports whether mode, in any case, is one of JournalModes.
func ValidJournalMode(mode string) bool {
	return slices.Contains(JournalModes, strings.ToLower(mode))
}

// Open opens the profile in dir, creating the directory and database as
// needed, brings the schema to SchemaVersion and loads the place cache.
// Schema errors (a newer store, a missing upgrade step) are fatal.
func Open(ctx context.Context, dir string, opts ...Option) (*Store, error) {
	o := options{
		now:           time.Now,
		journalMode:   defaultJournalMode,
		busyTimeoutMS: defaultBusyTimeoutMS,
		defaultLimit:  defaultLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	mode := strings.ToLower(o.journalMode)
	if !ValidJournalMode(mode) {
		return nil, fmt.Errorf("invalid journal mode %q", o.journalMode)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}
	path := filepath.Join(dir, FileName)

	db, err := sql.Open(DriverName, dsn(path, o.busyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+mode); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}

	version, err := newSchemaManager().createOrUpdate(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	if version != SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, version, SchemaVersion)
	}

	s := &Store{
		db:           db,
		path:         path,
		version:      version,
		places:       newPlaceCache(),
		gate:         semaphore.NewWeighted(1),
		now:          o.now,
		defaultLimit: o.defaultLimit,
	}
	n, err := s.places.load(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load places: %w", err)
	}

	log.WithFields(log.Fields{"path": path, "version": version, "places": n}).
		Info("opened profile store")
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Version returns the schema version the store was opened at.
func (s *Store) Version() int { return s.version }

func (s *Store) timestamp() int64 {
	return s.now().UnixMicro()
}

func (s *Store) limit(n int) int {
	if n <= 0 {
		return s.defaultLimit
	}
	return n
}

// StartSession records the start of a browsing session and returns its id.
// A zero scope or ancestor means none.
func (s *Store) StartSession(ctx context.Context, scope int64, ancestor SessionID) (SessionID, error) {
	return s.recordSessionStart(ctx, scope, ancestor, s.timestamp())
}

// EndSession records the end of session.
func (s *Store) EndSession(ctx context.Context, session SessionID) error {
	return s.recordSessionEnd(ctx, session, s.timestamp())
}

// Visit records a link visit to url in session. An empty title writes no
// title event.
func (s *Store) Visit(ctx context.Context, url string, session SessionID, title string) (PlaceID, error) {
	return s.VisitTyped(ctx, url, session, title, VisitLink)
}

// VisitTyped is Visit with an explicit visit type.
func (s *Store) VisitTyped(ctx context.Context, url string, session SessionID, title string, typ VisitType) (PlaceID, error) {
	return s.recordVisit(ctx, url, session, title, typ, s.timestamp())
}

// StarPage stars or unstars url. Any action other than Star or Unstar
// fails with ErrUnknownAction before storage is touched.
func (s *Store) StarPage(ctx context.Context, url string, session SessionID, action StarAction) (PlaceID, error) {
	if action != Star && action != Unstar {
		return 0, fmt.Errorf("%w: %d", ErrUnknownAction, int(action))
	}
	return s.recordStar(ctx, url, session, action, s.timestamp())
}

// VisitedMatches returns URLs of visited places whose title or URL
// contains substr, most recently visited first. Matching follows SQLite
// LIKE, which is case-insensitive for ASCII only.
func (s *Store) VisitedMatches(ctx context.Context, substr string, since time.Time, limit int) ([]string, error) {
	pattern := "%" + escapeLike(substr) + "%"
	return s.queryURLs(ctx, `
		SELECT url FROM mHistory
		WHERE lastVisited >= ?
		  AND (lastTitle LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\')
		ORDER BY lastVisited DESC
		LIMIT ?`,
		toMicros(since), pattern, pattern, s.limit(limit))
}

// Visited returns URLs of visited places, most recently visited first.
func (s *Store) Visited(ctx context.Context, since time.Time, limit int) ([]string, error) {
	return s.queryURLs(ctx, `
		SELECT url FROM mHistory
		WHERE lastVisited >= ?
		ORDER BY lastVisited DESC
		LIMIT ?`,
		toMicros(since), s.limit(limit))
}

// Starred returns the URLs of all currently starred places.
func (s *Store) Starred(ctx context.Context) ([]string, error) {
	return s.queryURLs(ctx, "SELECT url FROM mStarred")
}

// History returns materialized history rows, most recently visited first.
func (s *Store) History(ctx context.Context, since time.Time, limit int) ([]HistoryEntry, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT place, url, lastTitle, lastVisited, visitCount FROM mHistory
		WHERE lastVisited >= ?
		ORDER BY lastVisited DESC
		LIMIT ?`,
		toMicros(since), s.limit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var title sql.NullString
		var last int64
		if err := rows.Scan(&e.Place, &e.URL, &title, &last, &e.VisitCount); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Title = title.String
		e.LastVisited = fromMicros(last)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Lookup returns the place id interned for url.
func (s *Store) Lookup(url string) (PlaceID, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	id, ok := s.places.lookup(url)
	if !ok {
		return 0, fmt.Errorf("place %q: %w", url, ErrNotFound)
	}
	return id, nil
}

// Rematerialize recomputes mHistory and mStarred from the event log.
func (s *Store) Rematerialize(ctx context.Context) error {
	start := time.Now()
	err := s.write(ctx, "rematerialize", func(w *writeTx) error {
		return rematerialize(w.tx)
	})
	if err != nil {
		return fmt.Errorf("rematerialize: %w", err)
	}
	log.WithField("elapsed", time.Since(start)).Info("rematerialized projections")
	return nil
}

// Check compares the materialized tables with their defining views. It
// holds the writer so no write lands between the comparisons.
func (s *Store) Check(ctx context.Context) (*Consistency, error) {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire writer: %w", err)
	}
	defer s.gate.Release(1)
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return checkProjections(ctx, s.db)
}

// Stats returns aggregate counts over the store.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	stats := &Stats{SchemaVersion: s.version, CachedPlaces: s.places.len()}

	counts := []struct {
		dst   *int64
		query string
	}{
		{&stats.Places, "SELECT COUNT(*) FROM placeEvents"},
		{&stats.Visits, "SELECT COUNT(*) FROM visitEvents"},
		{&stats.Titles, "SELECT COUNT(*) FROM titleEvents"},
		{&stats.Stars, "SELECT COUNT(*) FROM starEvents"},
		{&stats.Sessions, "SELECT COUNT(*) FROM sessionStarts"},
		{&stats.OpenSessions, `SELECT COUNT(*) FROM sessionStarts s
			WHERE NOT EXISTS (SELECT 1 FROM sessionEnds e WHERE e.id = s.id)`},
		{&stats.HistoryRows, "SELECT COUNT(*) FROM mHistory"},
		{&stats.StarredRows, "SELECT COUNT(*) FROM mStarred"},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseSizeBytes = info.Size()
	}
	return stats, nil
}

// Close waits for an in-flight write, drops the place cache and closes
// the database. Later calls on s fail with ErrClosed.
func (s *Store) Close() error {
	if err := s.gate.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer s.gate.Release(1)
	if s.closed.Swap(true) {
		return nil
	}
	s.places.reset()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	log.WithField("path", s.path).Debug("closed profile store")
	return nil
}

func (s *Store) queryURLs(ctx context.Context, query string, args ...any) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// escapeLike makes s match literally inside a LIKE pattern using '\' as
// the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
