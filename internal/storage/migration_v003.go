package storage

import "database/sql"

// migrateV003 upgrades 3 -> 4: the starred set becomes a materialized
// table, vStarred switches to last-action-wins, and the lookup indexes are
// added. Both projections are recomputed afterwards.
func migrateV003(tx *sql.Tx) error {
	err := execAll(tx, []string{
		`DROP VIEW IF EXISTS vStarred`,
		`CREATE VIEW vStarred AS
			SELECT s.place AS place, s.ts AS ts, p.url AS url
			FROM starEvents s
			JOIN placeEvents p ON p.id = s.place
			WHERE s.action = 1
			  AND s.id = (SELECT MAX(i.id) FROM starEvents i WHERE i.place = s.place)`,
		`CREATE TABLE IF NOT EXISTS mStarred (
			place INTEGER NOT NULL UNIQUE REFERENCES placeEvents(id),
			ts    INTEGER NOT NULL,
			url   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS titleEventsPlace ON titleEvents(place)`,
		`CREATE INDEX IF NOT EXISTS visitEventsPlace ON visitEvents(place)`,
		`CREATE INDEX IF NOT EXISTS starEventsPlace ON starEvents(place)`,
		`CREATE INDEX IF NOT EXISTS mHistoryPlace ON mHistory(place)`,
		`CREATE INDEX IF NOT EXISTS mHistoryLastVisited ON mHistory(lastVisited)`,
	})
	if err != nil {
		return err
	}
	return rematerialize(tx)
}
