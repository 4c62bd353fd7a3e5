package storage

import "database/sql"

// createCurrent lays down the SchemaVersion generation on an empty
// database in one pass, without walking the historical steps.
func createCurrent(tx *sql.Tx) error {
	err := execAll(tx, []string{
		// Event log.
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
		`CREATE TABLE visitEvents (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			place   INTEGER NOT NULL REFERENCES placeEvents(id),
			ts      INTEGER NOT NULL,
			session INTEGER NOT NULL REFERENCES sessionStarts(id),
			type    INTEGER NOT NULL
		)`,
		`CREATE TABLE sessionStarts (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			scope    INTEGER,
			ancestor INTEGER REFERENCES sessionStarts(id),
			ts       INTEGER NOT NULL
		)`,
		`CREATE TABLE sessionEnds (
			id INTEGER PRIMARY KEY REFERENCES sessionStarts(id),
			ts INTEGER NOT NULL
		)`,
		`CREATE TABLE starEvents (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			place   INTEGER NOT NULL REFERENCES placeEvents(id),
			session INTEGER NOT NULL REFERENCES sessionStarts(id),
			action  TINYINT NOT NULL,
			ts      INTEGER NOT NULL
		)`,

		// Projections.
		`CREATE TABLE mHistory (
			place       INTEGER NOT NULL REFERENCES placeEvents(id),
			url         TEXT NOT NULL,
			lastTitle   TEXT,
			lastVisited INTEGER NOT NULL,
			visitCount  INTEGER NOT NULL
		)`,
		`CREATE TABLE mStarred (
			place INTEGER NOT NULL UNIQUE REFERENCES placeEvents(id),
			ts    INTEGER NOT NULL,
			url   TEXT NOT NULL
		)`,

		// Defining views of the projections.
		`CREATE VIEW vTitles AS
			SELECT t.place AS place, t.title AS title, t.ts AS ts
			FROM titleEvents t
			WHERE t.id = (
				SELECT i.id FROM titleEvents i
				WHERE i.place = t.place
				ORDER BY i.ts DESC, i.id DESC
				LIMIT 1
			)`,
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
		`CREATE VIEW vStarred AS
			SELECT s.place AS place, s.ts AS ts, p.url AS url
			FROM starEvents s
			JOIN placeEvents p ON p.id = s.place
			WHERE s.action = 1
			  AND s.id = (SELECT MAX(i.id) FROM starEvents i WHERE i.place = s.place)`,

		`CREATE INDEX titleEventsPlace ON titleEvents(place)`,
		`CREATE INDEX visitEventsPlace ON visitEvents(place)`,
		`CREATE INDEX starEventsPlace ON starEvents(place)`,
		`CREATE INDEX mHistoryPlace ON mHistory(place)`,
		`CREATE INDEX mHistoryLastVisited ON mHistory(lastVisited)`,
	})
	if err != nil {
		return err
	}
	return rematerialize(tx)
}
