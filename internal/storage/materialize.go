package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// statement is a query and its bound arguments.
type statement struct {
	query string
	args  []any
}

// upsert executes update and, if it affected no rows, executes insert.
// It reports whether the insert ran. Both statements run on tx, so the
// pair is atomic with the rest of the caller's transaction. The update
// must match at most the rows the insert would otherwise create.
func upsert(ctx context.Context, tx *sql.Tx, update, insert statement) (bool, error) {
	res, err := tx.ExecContext(ctx, update.query, update.args...)
	if err != nil {
		return false, fmt.Errorf("update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, insert.query, insert.args...); err != nil {
		return false, fmt.Errorf("insert: %w", err)
	}
	return true, nil
}

// updateHistory folds one visit into mHistory. A place can exist without a
// history row (it was only starred), hence the upsert. lastTitle is read
// back from vTitles after the title event is written, so a title arriving
// with an older timestamp than the current one does not replace it.
func updateHistory(ctx context.Context, tx *sql.Tx, place PlaceID, url string, ts int64) error {
	const title = `(SELECT title FROM vTitles WHERE place = ?)`
	_, err := upsert(ctx, tx,
		statement{
			query: `UPDATE mHistory
				SET lastVisited = MAX(lastVisited, ?),
				    visitCount = visitCount + 1,
				    lastTitle = ` + title + `
				WHERE place = ?`,
			args: []any{ts, place, place},
		},
		statement{
			query: `INSERT INTO mHistory (place, url, lastTitle, lastVisited, visitCount)
				VALUES (?, ?, ` + title + `, ?, 1)`,
			args: []any{place, url, place, ts},
		},
	)
	if err != nil {
		return fmt.Errorf("update history: %w", err)
	}
	return nil
}

// updateStarred folds one star event into mStarred. The result equals
// vStarred for any action sequence because both follow the last action.
func updateStarred(ctx context.Context, tx *sql.Tx, url string, place PlaceID, action StarAction, ts int64) error {
	var err error
	switch action {
	case Star:
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO mStarred (place, ts, url) VALUES (?, ?, ?)`,
			place, ts, url)
	case Unstar:
		_, err = tx.ExecContext(ctx, `DELETE FROM mStarred WHERE place = ?`, place)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownAction, action)
	}
	if err != nil {
		return fmt.Errorf("update starred: %w", err)
	}
	return nil
}

// rematerialize recomputes both projections from their defining views.
func rematerialize(tx *sql.Tx) error {
	return execAll(tx, []string{
		`DELETE FROM mHistory`,
		`INSERT INTO mHistory (place, url, lastTitle, lastVisited, visitCount)
			SELECT place, url, lastTitle, lastVisited, visitCount FROM vHistory`,
		`DELETE FROM mStarred`,
		`INSERT INTO mStarred (place, ts, url)
			SELECT place, ts, url FROM vStarred`,
	})
}

// checkProjections counts rows on either side of the view/table
// difference for both projections. Compound SELECTs compare NULLs as
// equal, so a missing title on both sides is not a difference.
func checkProjections(ctx context.Context, q queryRower) (*Consistency, error) {
	const (
		historyCols = "place, url, lastTitle, lastVisited, visitCount"
		starredCols = "place, ts, url"
	)
	diff := func(cols, a, b string) (int64, error) {
		var n int64
		query := fmt.Sprintf(
			"SELECT COUNT(*) FROM (SELECT %[1]s FROM %[2]s EXCEPT SELECT %[1]s FROM %[3]s)",
			cols, a, b)
		if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return 0, fmt.Errorf("compare %s with %s: %w", a, b, err)
		}
		return n, nil
	}

	var c Consistency
	var err error
	if c.HistoryMissing, err = diff(historyCols, "vHistory", "mHistory"); err != nil {
		return nil, err
	}
	if c.HistoryStale, err = diff(historyCols, "mHistory", "vHistory"); err != nil {
		return nil, err
	}
	if c.StarredMissing, err = diff(starredCols, "vStarred", "mStarred"); err != nil {
		return nil, err
	}
	if c.StarredStale, err = diff(starredCols, "mStarred", "vStarred"); err != nil {
		return nil, err
	}
	// EXCEPT is set based and cannot see a place materialized twice.
	err = q.QueryRowContext(ctx,
		"SELECT COUNT(*) - COUNT(DISTINCT place) FROM mHistory").Scan(&c.HistoryDuplicates)
	if err != nil {
		return nil, fmt.Errorf("count duplicate history rows: %w", err)
	}
	return &c, nil
}
