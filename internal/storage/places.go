package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/profilestore/internal/metrics"
)

// placeCache interns URLs to place ids. It is a rebuildable view of
// placeEvents owned by one Store.
//
// Ids are allocated from a counter rather than read back from storage;
// that is only sound while this Store is the sole writer of the file and
// its writes are serialized.
type placeCache struct {
	mu   sync.Mutex
	ids  map[string]PlaceID
	next PlaceID
}

func newPlaceCache() *placeCache {
	return &placeCache{ids: make(map[string]PlaceID), next: 1}
}

// load rebuilds the cache from every place row and returns the number of
// places seen.
func (c *placeCache) load(ctx context.Context, db *sql.DB) (int, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, url FROM placeEvents")
	if err != nil {
		return 0, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]PlaceID)
	var max PlaceID
	for rows.Next() {
		var id PlaceID
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return 0, fmt.Errorf("scan place: %w", err)
		}
		ids[url] = id
		if id > max {
			max = id
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.ids = ids
	c.next = max + 1
	c.mu.Unlock()

	metrics.InternedPlaces.Set(float64(len(ids)))
	log.WithFields(log.Fields{"places": len(ids), "next": max + 1}).Debug("loaded place cache")
	return len(ids), nil
}

func (c *placeCache) lookup(url string) (PlaceID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[url]
	return id, ok
}

// allocate hands out the next id. Ids burned by an aborted transaction are
// skipped, never reused.
func (c *placeCache) allocate() PlaceID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	return id
}

// recordMapping publishes url -> id. Callers invoke it only after the
// transaction that inserted the place row has committed.
func (c *placeCache) recordMapping(url string, id PlaceID) {
	c.mu.Lock()
	c.ids[url] = id
	if id >= c.next {
		c.next = id + 1
	}
	n := len(c.ids)
	c.mu.Unlock()
	metrics.InternedPlaces.Set(float64(n))
}

func (c *placeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

func (c *placeCache) reset() {
	c.mu.Lock()
	c.ids = make(map[string]PlaceID)
	c.next = 1
	c.mu.Unlock()
	metrics.InternedPlaces.Set(0)
}

// internPlace resolves url to its place id inside tx. A cache hit touches
// no storage. On a miss a fresh id is allocated and the place row inserted
// in tx; the mapping is queued on w and published only if tx commits.
func (c *placeCache) internPlace(ctx context.Context, tx *sql.Tx, w *writeTx, url string, ts int64) (PlaceID, error) {
	if id, ok := c.lookup(url); ok {
		return id, nil
	}
	if id, ok := w.pending[url]; ok {
		return id, nil
	}

	id := c.allocate()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO placeEvents (id, url, ts) VALUES (?, ?, ?)", id, url, ts,
	); err != nil {
		return 0, fmt.Errorf("insert place: %w", err)
	}
	w.pending[url] = id
	return id, nil
}
