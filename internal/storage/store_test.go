package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/profilestore/internal/metrics"
)

// fakeClock advances one second on every reading, so successive writes
// get strictly increasing timestamps.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// openTestStore opens a store in a fresh temp directory.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStoreAt(t, t.TempDir(), newFakeClock())
}

func openTestStoreAt(t *testing.T, dir string, clock *fakeClock) *Store {
	t.Helper()
	s, err := Open(context.Background(), dir, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func startSession(t *testing.T, s *Store) SessionID {
	t.Helper()
	id, err := s.StartSession(context.Background(), 0, 0)
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// --- Open ---

func TestOpen_CreatesDirectoryAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles", "default")

	s, err := Open(context.Background(), dir)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, "browser.db"), s.Path())
	assert.Equal(t, SchemaVersion, s.Version())
	_, err = os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestOpen_RejectsUnknownJournalMode(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), WithJournalMode("bogus; DROP TABLE x"))
	assert.Error(t, err)
}

func TestValidJournalMode(t *testing.T) {
	assert.True(t, ValidJournalMode("wal"))
	assert.True(t, ValidJournalMode("DELETE"))
	assert.False(t, ValidJournalMode("sideways"))
	assert.False(t, ValidJournalMode(""))
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	s := openTestStore(t)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

// --- Interning ---

func TestVisit_InternsPlaceOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	first, err := s.Visit(ctx, "https://example.com/", session, "Example")
	require.NoError(t, err)
	second, err := s.Visit(ctx, "https://example.com/", session, "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), countRows(t, s, "placeEvents"))

	got, err := s.Lookup("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestIntern_IDsIncreaseInFirstReferenceOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	urls := []string{"https://c.test/", "https://a.test/", "https://b.test/", "https://a.test/"}
	var ids []PlaceID
	for i, u := range urls {
		var id PlaceID
		var err error
		if i%2 == 0 {
			id, err = s.Visit(ctx, u, session, "")
		} else {
			id, err = s.StarPage(ctx, u, session, Star)
		}
		require.NoError(t, err)
		ids = append(ids, id)
	}

	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])
	assert.Equal(t, ids[1], ids[3], "repeat reference reuses the id")
}

func TestLookup_Unknown(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Lookup("https://never.test/")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- History projection ---

func TestVisit_FirstVisitCreatesOneHistoryRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://example.com/", session, "Example")
	require.NoError(t, err)

	entries, err := s.History(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].VisitCount)
	assert.Equal(t, "Example", entries[0].Title)
	assert.Equal(t, "https://example.com/", entries[0].URL)
}

func TestVisit_RepeatVisitsUpdateInPlace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	for _, title := range []string{"One", "Two", "Three"} {
		_, err := s.Visit(ctx, "https://example.com/", session, title)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), countRows(t, s, "mHistory"))
	entries, err := s.History(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].VisitCount)
	assert.Equal(t, "Three", entries[0].Title)

	var lastVisitEvent int64
	require.NoError(t, s.db.QueryRow("SELECT MAX(ts) FROM visitEvents").Scan(&lastVisitEvent))
	assert.Equal(t, lastVisitEvent, entries[0].LastVisited.UnixMicro())
}

func TestVisit_OmittedTitleKeepsPreviousTitle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://example.com/", session, "Kept")
	require.NoError(t, err)
	_, err = s.Visit(ctx, "https://example.com/", session, "")
	require.NoError(t, err)

	entries, err := s.History(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Kept", entries[0].Title)
	assert.Equal(t, int64(1), countRows(t, s, "titleEvents"))

	c, err := s.Check(ctx)
	require.NoError(t, err)
	assert.True(t, c.OK(), "%+v", c)
}

// steppedClock returns the given instants in order, repeating the last.
type steppedClock struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *steppedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}
	return t
}

func TestVisit_ClockStepsBackKeepsNewestTitle(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &steppedClock{times: []time.Time{
		base,                        // session start
		base.Add(200 * time.Second), // "New"
		base.Add(150 * time.Second), // "Old", clock stepped back
		base.Add(100 * time.Second), // untitled visit
	}}
	s, err := Open(context.Background(), t.TempDir(), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	session := startSession(t, s)

	_, err = s.Visit(ctx, "https://example.com/", session, "New")
	require.NoError(t, err)
	_, err = s.Visit(ctx, "https://example.com/", session, "Old")
	require.NoError(t, err)
	_, err = s.Visit(ctx, "https://example.com/", session, "")
	require.NoError(t, err)

	entries, err := s.History(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New", entries[0].Title)
	assert.Equal(t, base.Add(200*time.Second), entries[0].LastVisited.UTC())
	assert.Equal(t, int64(3), entries[0].VisitCount)

	c, err := s.Check(ctx)
	require.NoError(t, err)
	assert.True(t, c.OK(), "%+v", c)
}

func TestVisit_AfterStarInsertsHistoryRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	starred, err := s.StarPage(ctx, "https://example.com/", session, Star)
	require.NoError(t, err)
	assert.Equal(t, int64(0), countRows(t, s, "mHistory"))

	visited, err := s.Visit(ctx, "https://example.com/", session, "")
	require.NoError(t, err)
	assert.Equal(t, starred, visited)
	assert.Equal(t, int64(1), countRows(t, s, "mHistory"))
}

// --- Queries ---

func TestVisited_OrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	for _, u := range []string{"https://one.test/", "https://two.test/", "https://three.test/"} {
		_, err := s.Visit(ctx, u, session, "")
		require.NoError(t, err)
	}

	urls, err := s.Visited(ctx, time.Time{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://three.test/", "https://two.test/"}, urls)
}

func TestVisited_RevisitMovesToFront(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	for _, u := range []string{"https://a.test/", "https://b.test/", "https://a.test/"} {
		_, err := s.Visit(ctx, u, session, "")
		require.NoError(t, err)
	}

	urls, err := s.Visited(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test/", "https://b.test/"}, urls)
}

func TestVisited_DefaultLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	for i := 0; i < 12; i++ {
		_, err := s.Visit(ctx, "https://example.com/"+string(rune('a'+i)), session, "")
		require.NoError(t, err)
	}

	urls, err := s.Visited(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, urls, 10)
}

func TestVisited_Since(t *testing.T) {
	clock := newFakeClock()
	s := openTestStoreAt(t, t.TempDir(), clock)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://old.test/", session, "")
	require.NoError(t, err)
	cutoff := clock.Now()
	_, err = s.Visit(ctx, "https://new.test/", session, "")
	require.NoError(t, err)

	urls, err := s.Visited(ctx, cutoff, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://new.test/"}, urls)
}

func TestVisitedMatches_TitleOrURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://golang.org/doc", session, "Documentation")
	require.NoError(t, err)
	_, err = s.Visit(ctx, "https://rust-lang.org/", session, "Rust Programming Language")
	require.NoError(t, err)
	_, err = s.Visit(ctx, "https://python.org/", session, "Welcome to Python")
	require.NoError(t, err)

	urls, err := s.VisitedMatches(ctx, "golang", time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://golang.org/doc"}, urls)

	// LIKE is case-insensitive for ASCII.
	urls, err = s.VisitedMatches(ctx, "programming", time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rust-lang.org/"}, urls)

	urls, err = s.VisitedMatches(ctx, ".org", time.Time{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://python.org/", "https://rust-lang.org/"}, urls)
}

func TestVisitedMatches_WildcardsAreLiteral(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://example.com/100%25", session, "100% done")
	require.NoError(t, err)
	_, err = s.Visit(ctx, "https://example.com/other", session, "1000 done")
	require.NoError(t, err)

	urls, err := s.VisitedMatches(ctx, "100%", time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/100%25"}, urls)

	urls, err = s.VisitedMatches(ctx, "_", time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

// --- Stars ---

func TestStarPage_Alternation(t *testing.T) {
	tests := []struct {
		name    string
		actions []StarAction
		starred bool
	}{
		{"star", []StarAction{Star}, true},
		{"star unstar", []StarAction{Star, Unstar}, false},
		{"star unstar star", []StarAction{Star, Unstar, Star}, true},
		{"four", []StarAction{Star, Unstar, Star, Unstar}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := openTestStore(t)
			ctx := context.Background()
			session := startSession(t, s)

			for _, a := range tc.actions {
				_, err := s.StarPage(ctx, "https://example.com/", session, a)
				require.NoError(t, err)
			}

			urls, err := s.Starred(ctx)
			require.NoError(t, err)
			if tc.starred {
				assert.Equal(t, []string{"https://example.com/"}, urls)
			} else {
				assert.Empty(t, urls)
			}

			c, err := s.Check(ctx)
			require.NoError(t, err)
			assert.True(t, c.OK(), "%+v", c)
		})
	}
}

func TestStarPage_RepeatedActionsStayConsistent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	for _, a := range []StarAction{Unstar, Unstar, Star, Star} {
		_, err := s.StarPage(ctx, "https://example.com/", session, a)
		require.NoError(t, err)
	}

	urls, err := s.Starred(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/"}, urls)

	c, err := s.Check(ctx)
	require.NoError(t, err)
	assert.True(t, c.OK(), "%+v", c)
}

func TestStarPage_UnknownAction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	for _, a := range []StarAction{0, 2, -2} {
		_, err := s.StarPage(ctx, "https://example.com/", session, a)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownAction))
	}

	assert.Equal(t, int64(0), countRows(t, s, "starEvents"))
	assert.Equal(t, int64(0), countRows(t, s, "placeEvents"))
}

// --- Sessions ---

func TestSessions_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	root, err := s.StartSession(ctx, 7, 0)
	require.NoError(t, err)
	child, err := s.StartSession(ctx, 0, root)
	require.NoError(t, err)
	assert.NotEqual(t, root, child)

	var ancestor int64
	require.NoError(t, s.db.QueryRow("SELECT ancestor FROM sessionStarts WHERE id = ?", child).Scan(&ancestor))
	assert.Equal(t, int64(root), ancestor)

	require.NoError(t, s.EndSession(ctx, child))
	assert.Error(t, s.EndSession(ctx, child), "a session ends once")
	assert.Error(t, s.EndSession(ctx, 9999), "unknown session")

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Sessions)
	assert.Equal(t, int64(1), stats.OpenSessions)
}

func TestSessions_UnknownAncestorFails(t *testing.T) {
	s := openTestStore(t)

	_, err := s.StartSession(context.Background(), 0, 42)
	assert.Error(t, err)
}

func TestVisit_UnknownSessionFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Visit(ctx, "https://example.com/", 42, "Example")
	require.Error(t, err)

	assert.Equal(t, int64(0), countRows(t, s, "placeEvents"))
	assert.Equal(t, int64(0), countRows(t, s, "titleEvents"))
	_, err = s.Lookup("https://example.com/")
	assert.True(t, errors.Is(err, ErrNotFound), "aborted write must not reach the cache")

	// The place is interned normally once a valid session exists.
	session := startSession(t, s)
	id, err := s.Visit(ctx, "https://example.com/", session, "Example")
	require.NoError(t, err)
	got, err := s.Lookup("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

// --- Atomicity ---

func TestVisit_FailureBeforeMaterializeRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://kept.test/", session, "Kept")
	require.NoError(t, err)

	before, err := s.Visited(ctx, time.Time{}, 0)
	require.NoError(t, err)
	historyRows := countRows(t, s, "mHistory")
	visitRows := countRows(t, s, "visitEvents")
	rollbacks := testutil.ToFloat64(metrics.RollbacksTotal)

	boom := errors.New("boom")
	s.beforeMaterialize = func() error { return boom }

	_, err = s.Visit(ctx, "https://kept.test/", session, "Changed")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	_, err = s.Visit(ctx, "https://lost.test/", session, "Lost")
	require.Error(t, err)

	after, err := s.Visited(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, historyRows, countRows(t, s, "mHistory"))
	assert.Equal(t, visitRows, countRows(t, s, "visitEvents"))
	assert.Equal(t, int64(1), countRows(t, s, "titleEvents"))
	assert.Equal(t, int64(1), countRows(t, s, "placeEvents"))
	assert.Equal(t, rollbacks+2, testutil.ToFloat64(metrics.RollbacksTotal))

	_, err = s.Lookup("https://lost.test/")
	assert.True(t, errors.Is(err, ErrNotFound))

	s.beforeMaterialize = nil
	entries, err := s.History(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Kept", entries[0].Title)
	assert.Equal(t, int64(1), entries[0].VisitCount)
}

func TestStarPage_FailureBeforeMaterializeRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	s.beforeMaterialize = func() error { return errors.New("boom") }
	_, err := s.StarPage(ctx, "https://example.com/", session, Star)
	require.Error(t, err)

	assert.Equal(t, int64(0), countRows(t, s, "starEvents"))
	assert.Equal(t, int64(0), countRows(t, s, "mStarred"))
	urls, err := s.Starred(ctx)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

// --- Durability ---

func TestReopen_PreservesIDsAndProjections(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock()
	ctx := context.Background()

	s, err := Open(ctx, dir, WithClock(clock.Now))
	require.NoError(t, err)
	session, err := s.StartSession(ctx, 0, 0)
	require.NoError(t, err)
	a, err := s.Visit(ctx, "https://a.test/", session, "A")
	require.NoError(t, err)
	b, err := s.StarPage(ctx, "https://b.test/", session, Star)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openTestStoreAt(t, dir, clock)

	got, err := s.Lookup("https://a.test/")
	require.NoError(t, err)
	assert.Equal(t, a, got)
	got, err = s.Lookup("https://b.test/")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	urls, err := s.Visited(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test/"}, urls)
	urls, err = s.Starred(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.test/"}, urls)

	// New places continue after the highest persisted id.
	c, err := s.Visit(ctx, "https://c.test/", session, "")
	require.NoError(t, err)
	assert.Greater(t, c, b)
}

// --- Rematerialize / Check ---

func TestRematerialize_RepairsProjections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://a.test/", session, "A")
	require.NoError(t, err)
	_, err = s.Visit(ctx, "https://a.test/", session, "A2")
	require.NoError(t, err)
	_, err = s.StarPage(ctx, "https://b.test/", session, Star)
	require.NoError(t, err)

	_, err = s.db.Exec("UPDATE mHistory SET visitCount = 99")
	require.NoError(t, err)
	_, err = s.db.Exec("DELETE FROM mStarred")
	require.NoError(t, err)

	c, err := s.Check(ctx)
	require.NoError(t, err)
	assert.False(t, c.OK())
	assert.Equal(t, int64(1), c.HistoryMissing)
	assert.Equal(t, int64(1), c.HistoryStale)
	assert.Equal(t, int64(1), c.StarredMissing)

	require.NoError(t, s.Rematerialize(ctx))

	c, err = s.Check(ctx)
	require.NoError(t, err)
	assert.True(t, c.OK(), "%+v", c)

	entries, err := s.History(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].VisitCount)
	assert.Equal(t, "A2", entries[0].Title)
}

func TestCheck_DetectsDuplicateHistoryRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://a.test/", session, "A")
	require.NoError(t, err)
	_, err = s.db.Exec("INSERT INTO mHistory SELECT * FROM mHistory")
	require.NoError(t, err)

	c, err := s.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.HistoryDuplicates)
	assert.False(t, c.OK())
}

// --- Stats / metrics ---

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	_, err := s.Visit(ctx, "https://a.test/", session, "A")
	require.NoError(t, err)
	_, err = s.Visit(ctx, "https://a.test/", session, "")
	require.NoError(t, err)
	_, err = s.StarPage(ctx, "https://b.test/", session, Star)
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, stats.SchemaVersion)
	assert.Equal(t, int64(2), stats.Places)
	assert.Equal(t, int64(2), stats.Visits)
	assert.Equal(t, int64(1), stats.Titles)
	assert.Equal(t, int64(1), stats.Stars)
	assert.Equal(t, int64(1), stats.HistoryRows)
	assert.Equal(t, int64(1), stats.StarredRows)
	assert.Equal(t, 2, stats.CachedPlaces)
	assert.Greater(t, stats.DatabaseSizeBytes, int64(0))
}

func TestMetrics_CountWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	okVisits := metrics.EventsTotal.WithLabelValues("visit", metrics.Ok)
	failStars := metrics.EventsTotal.WithLabelValues("star", metrics.Fail)
	beforeOK := testutil.ToFloat64(okVisits)
	beforeFail := testutil.ToFloat64(failStars)

	_, err := s.Visit(ctx, "https://a.test/", session, "")
	require.NoError(t, err)
	_, err = s.StarPage(ctx, "https://a.test/", 4242, Star)
	require.Error(t, err)

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(okVisits))
	assert.Equal(t, beforeFail+1, testutil.ToFloat64(failStars))
}

// --- Concurrency ---

func TestConcurrentWritesAreSerialized(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	session := startSession(t, s)

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Every worker shares half of its URLs with the others.
				u := "https://shared.test/" + string(rune('a'+i))
				if i%2 == 1 {
					u = "https://own.test/" + string(rune('a'+w)) + string(rune('a'+i))
				}
				if _, err := s.Visit(ctx, u, session, ""); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(workers*perWorker), countRows(t, s, "visitEvents"))
	assert.Equal(t, int64(5+workers*5), countRows(t, s, "placeEvents"))
	c, err := s.Check(ctx)
	require.NoError(t, err)
	assert.True(t, c.OK(), "%+v", c)
}

// --- Close ---

func TestClose(t *testing.T) {
	s, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	session := startSession(t, s)
	_, err = s.Visit(context.Background(), "https://a.test/", session, "")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err = s.Visit(context.Background(), "https://a.test/", session, "")
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = s.Visited(context.Background(), time.Time{}, 0)
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = s.Lookup("https://a.test/")
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Equal(t, 0, s.places.len())
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
