package storage

import "database/sql"

// migrateV002 upgrades 2 -> 3: the current-title view gets a deterministic
// tie-break and history becomes a materialized table.
func migrateV002(tx *sql.Tx) error {
	return execAll(tx, []string{
		`DROP VIEW IF EXISTS vHistory`,
		`DROP VIEW IF EXISTS vTitles`,
		`CREATE VIEW vTitles AS
			SELECT t.place AS place, t.title AS title, t.ts AS ts
			FROM titleEvents t
			WHERE t.id = (
				SELECT i.id FROM titleEvents i
				WHERE i.place = t.place
				ORDER BY i.ts DESC, i.id DESC
				LIMIT 1
			)`,
		`CREATE VIEW vHistory AS
			SELECT v.place AS place, p.url AS url, t.title AS lastTitle,
			       v.lastVisited AS lastVisited, v.visitCount AS visitCount
			FROM vVisits v
			JOIN placeEvents p ON p.id = v.place
			LEFT JOIN vTitles t ON t.place = v.place`,
		`CREATE TABLE IF NOT EXISTS mHistory (
			place       INTEGER NOT NULL REFERENCES placeEvents(id),
			url         TEXT NOT NULL,
			lastTitle   TEXT,
			lastVisited INTEGER NOT NULL,
			visitCount  INTEGER NOT NULL
		)`,
		`DELETE FROM mHistory`,
		`INSERT INTO mHistory (place, url, lastTitle, lastVisited, visitCount)
			SELECT place, url, lastTitle, lastVisited, visitCount FROM vHistory`,
	})
}
