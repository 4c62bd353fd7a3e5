package storage

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/profilestore/internal/metrics"
)

// writeTx is one logical write: the transaction plus the place mappings
// it created, which become visible in the cache only after commit.
type writeTx struct {
	tx      *sql.Tx
	pending map[string]PlaceID
}

// write runs fn as a single transaction. Write transactions are
// serialized through s.gate so at most one is outstanding, which is what
// lets the place cache allocate ids without reading them back.
func (s *Store) write(ctx context.Context, kind string, fn func(w *writeTx) error) error {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire writer: %w", err)
	}
	defer s.gate.Release(1)

	if s.closed.Load() {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.EventsTotal.WithLabelValues(kind, metrics.Fail).Inc()
		return fmt.Errorf("begin tx: %w", err)
	}
	w := &writeTx{tx: tx, pending: make(map[string]PlaceID)}

	if err := fn(w); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.WithFields(log.Fields{"kind": kind, "err": rbErr}).Error("rollback failed")
		}
		metrics.RollbacksTotal.Inc()
		metrics.EventsTotal.WithLabelValues(kind, metrics.Fail).Inc()
		log.WithFields(log.Fields{"kind": kind, "err": err}).Warn("write rolled back")
		return err
	}
	if err := tx.Commit(); err != nil {
		metrics.RollbacksTotal.Inc()
		metrics.EventsTotal.WithLabelValues(kind, metrics.Fail).Inc()
		return fmt.Errorf("commit %s: %w", kind, err)
	}

	for url, id := range w.pending {
		s.places.recordMapping(url, id)
	}
	metrics.EventsTotal.WithLabelValues(kind, metrics.Ok).Inc()
	return nil
}

// failpoint runs the hook installed between event insertion and the
// projection update. It is nil outside tests.
func (s *Store) failpoint() error {
	if s.beforeMaterialize == nil {
		return nil
	}
	return s.beforeMaterialize()
}

// recordVisit appends a visit (and a title event when title is set) and
// folds it into mHistory.
func (s *Store) recordVisit(ctx context.Context, url string, session SessionID, title string, typ VisitType, ts int64) (PlaceID, error) {
	var place PlaceID
	err := s.write(ctx, "visit", func(w *writeTx) error {
		id, err := s.places.internPlace(ctx, w.tx, w, url, ts)
		if err != nil {
			return err
		}
		if title != "" {
			if _, err := w.tx.ExecContext(ctx,
				"INSERT INTO titleEvents (place, ts, title) VALUES (?, ?, ?)",
				id, ts, title,
			); err != nil {
				return fmt.Errorf("insert title event: %w", err)
			}
		}
		if _, err := w.tx.ExecContext(ctx,
			"INSERT INTO visitEvents (place, ts, session, type) VALUES (?, ?, ?, ?)",
			id, ts, session, typ,
		); err != nil {
			return fmt.Errorf("insert visit event: %w", err)
		}
		if err := s.failpoint(); err != nil {
			return err
		}
		if err := updateHistory(ctx, w.tx, id, url, ts); err != nil {
			return err
		}
		place = id
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record visit %s: %w", url, err)
	}
	return place, nil
}

// recordStar appends a star event and folds it into mStarred. Star and
// unstar are expected to alternate per place; a repeated action is
// recorded as-is.
func (s *Store) recordStar(ctx context.Context, url string, session SessionID, action StarAction, ts int64) (PlaceID, error) {
	var place PlaceID
	err := s.write(ctx, "star", func(w *writeTx) error {
		id, err := s.places.internPlace(ctx, w.tx, w, url, ts)
		if err != nil {
			return err
		}
		var last int
		err = w.tx.QueryRowContext(ctx,
			"SELECT action FROM starEvents WHERE place = ? ORDER BY id DESC LIMIT 1", id,
		).Scan(&last)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return fmt.Errorf("query last star action: %w", err)
		case StarAction(last) == action:
			log.WithFields(log.Fields{"url": url, "action": action}).Debug("repeated star action")
		}
		if _, err := w.tx.ExecContext(ctx,
			"INSERT INTO starEvents (place, session, action, ts) VALUES (?, ?, ?, ?)",
			id, session, int(action), ts,
		); err != nil {
			return fmt.Errorf("insert star event: %w", err)
		}
		if err := s.failpoint(); err != nil {
			return err
		}
		if err := updateStarred(ctx, w.tx, url, id, action, ts); err != nil {
			return err
		}
		place = id
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record %s %s: %w", action, url, err)
	}
	return place, nil
}

// recordSessionStart appends a session start. Zero scope or ancestor are
// stored as NULL.
func (s *Store) recordSessionStart(ctx context.Context, scope int64, ancestor SessionID, ts int64) (SessionID, error) {
	var id SessionID
	err := s.write(ctx, "session_start", func(w *writeTx) error {
		res, err := w.tx.ExecContext(ctx,
			"INSERT INTO sessionStarts (scope, ancestor, ts) VALUES (?, ?, ?)",
			nullInt64(scope), nullInt64(int64(ancestor)), ts,
		)
		if err != nil {
			return fmt.Errorf("insert session start: %w", err)
		}
		n, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = SessionID(n)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// recordSessionEnd closes session. The storage layer rejects ending an
// unknown session or ending one twice.
func (s *Store) recordSessionEnd(ctx context.Context, session SessionID, ts int64) error {
	err := s.write(ctx, "session_end", func(w *writeTx) error {
		_, err := w.tx.ExecContext(ctx,
			"INSERT INTO sessionEnds (id, ts) VALUES (?, ?)", session, ts,
		)
		if err != nil {
			return fmt.Errorf("insert session end: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("end session %d: %w", session, err)
	}
	return nil
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
