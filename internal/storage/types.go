package storage

import (
	"errors"
	"time"
)

// PlaceID is the stable identifier of a distinct URL. IDs are never reused.
type PlaceID int64

// SessionID identifies a row in sessionStarts.
type SessionID int64

// StarAction is the action column of a star event.
type StarAction int

const (
	Star   StarAction = 1
	Unstar StarAction = -1
)

func (a StarAction) String() string {
	switch a {
	case Star:
		return "star"
	case Unstar:
		return "unstar"
	default:
		return "unknown"
	}
}

// VisitType classifies how a page was reached.
type VisitType int

const (
	VisitLink VisitType = iota
	VisitTyped
	VisitReload
	VisitRestore
)

// Sentinel errors returned by the engine.
var (
	ErrDowngrade       = errors.New("downgrade not supported")
	ErrNoMigration     = errors.New("no migration for schema version")
	ErrVersionMismatch = errors.New("schema version mismatch")
	ErrUnknownAction   = errors.New("unknown action")
	ErrClosed          = errors.New("store is closed")
	ErrNotFound        = errors.New("not found")
)

// HistoryEntry is one row of the materialized history.
type HistoryEntry struct {
	Place       PlaceID
	URL         string
	Title       string
	LastVisited time.Time
	VisitCount  int64
}

// Stats holds aggregate counts over the event log and projections.
type Stats struct {
	SchemaVersion     int
	Places            int64
	Visits            int64
	Titles            int64
	Stars             int64
	Sessions          int64
	OpenSessions      int64
	HistoryRows       int64
	StarredRows       int64
	CachedPlaces      int
	DatabaseSizeBytes int64
}

// Consistency reports how far the materialized tables are from their
// defining views.
type Consistency struct {
	HistoryMissing int64 `json:"history_missing"` // rows in vHistory absent from mHistory
	HistoryStale   int64 `json:"history_stale"`   // rows in mHistory absent from vHistory
	StarredMissing int64 `json:"starred_missing"`
	StarredStale   int64 `json:"starred_stale"`

	HistoryDuplicates int64 `json:"history_duplicates"`
}

// OK reports whether both materialized tables match their views.
func (c *Consistency) OK() bool {
	return c.HistoryMissing == 0 && c.HistoryStale == 0 &&
		c.StarredMissing == 0 && c.StarredStale == 0 &&
		c.HistoryDuplicates == 0
}

// toMicros converts t to the on-disk timestamp representation. The zero
// time maps to 0.
func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us)
}
