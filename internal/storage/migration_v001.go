package storage

import "database/sql"

// createV001 is the first shipped schema generation: the place, title,
// visit and session logs and the views over them. Stores at this version
// are upgraded by migrateV001 onwards. The engine never creates a store at
// this generation; the DDL is kept frozen as the fixture the upgrade tests
// build legacy stores from.
func createV001(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE placeEvents (
			id  INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT UNIQUE NOT NULL,
			ts  INTEGER NOT NULL
		)`,
		`CREATE TABLE titleEvents (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			place INTEGER NOT NULL REFERENCES placeEvents(id),
			ts    INTEGER NOT NULL,
			title TEXT NOT NULL
		)`,
		`CREATE TABLE sessionStarts (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			ancestor INTEGER REFERENCES sessionStarts(id),
			ts       INTEGER NOT NULL
		)`,
		`CREATE TABLE sessionEnds (
			id INTEGER PRIMARY KEY REFERENCES sessionStarts(id),
			ts INTEGER NOT NULL
		)`,
		`CREATE TABLE visitEvents (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			place   INTEGER NOT NULL REFERENCES placeEvents(id),
			ts      INTEGER NOT NULL,
			session INTEGER NOT NULL REFERENCES sessionStarts(id),
			type    INTEGER NOT NULL
		)`,
		`CREATE VIEW vTitles AS
			SELECT place, title, MAX(ts) AS ts
			FROM titleEvents
			GROUP BY place`,
		`CREATE VIEW vVisits AS
			SELECT place, MAX(ts) AS lastVisited, COUNT(*) AS visitCount
			FROM visitEvents
			GROUP BY place`,
		`CREATE VIEW vHistory AS
			SELECT v.place AS place, p.url AS url, t.title AS lastTitle,
			       v.lastVisited AS lastVisited, v.visitCount AS visitCount
			FROM vVisits v
			JOIN placeEvents p ON p.id = v.place
			LEFT JOIN vTitles t ON t.place = v.place`,
	})
}

// migrateV001 upgrades 1 -> 2: sessions gain a scope and bookmarks are
// recorded as star events.
func migrateV001(tx *sql.Tx) error {
	return execAll(tx, []string{
		`ALTER TABLE sessionStarts ADD COLUMN scope INTEGER`,
		`CREATE TABLE IF NOT EXISTS starEvents (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			place   INTEGER NOT NULL REFERENCES placeEvents(id),
			session INTEGER NOT NULL REFERENCES sessionStarts(id),
			action  TINYINT NOT NULL,
			ts      INTEGER NOT NULL
		)`,
		`DROP VIEW IF EXISTS vStarred`,
		`CREATE VIEW vStarred AS
			SELECT s.place AS place, MAX(s.ts) AS ts, p.url AS url
			FROM starEvents s
			JOIN placeEvents p ON p.id = s.place
			GROUP BY s.place
			HAVING SUM(s.action) > 0`,
	})
}
