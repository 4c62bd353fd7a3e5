package storage

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/profilestore/internal/metrics"
)

// SchemaVersion is the schema generation this build reads and writes.
const SchemaVersion = 4

// migration upgrades a store from Version to Version+1. Steps for shipped
// versions are frozen: a new generation appends a step, it never edits one.
type migration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

// schemaManager brings a profile database to a target schema version.
type schemaManager struct {
	target     int
	create     func(tx *sql.Tx) error
	migrations []migration
}

// newSchemaManager returns the manager for SchemaVersion with every
// historical upgrade step registered.
func newSchemaManager() *schemaManager {
	return &schemaManager{
		target: SchemaVersion,
		create: createCurrent,
		migrations: []migration{
			{Version: 1, Name: "star_events", Apply: migrateV001},
			{Version: 2, Name: "materialized_history", Apply: migrateV002},
			{Version: 3, Name: "materialized_starred", Apply: migrateV003},
		},
	}
}

// step returns the upgrade registered for version.
func (m *schemaManager) step(version int) (migration, bool) {
	for _, mig := range m.migrations {
		if mig.Version == version {
			return mig, true
		}
	}
	return migration{}, false
}

// createOrUpdate reads PRAGMA user_version and creates or upgrades the
// schema to the target version. It returns the version the store is at
// afterwards.
func (m *schemaManager) createOrUpdate(ctx context.Context, db *sql.DB) (int, error) {
	version, err := userVersion(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	switch {
	case version == m.target:
		return version, nil
	case version > m.target:
		return version, fmt.Errorf("%w: store is at version %d, this build supports %d",
			ErrDowngrade, version, m.target)
	case version == 0:
		if err := m.apply(ctx, db, m.target, "create", m.create); err != nil {
			return 0, fmt.Errorf("create schema: %w", err)
		}
		log.WithField("version", m.target).Info("created profile schema")
		return m.target, nil
	}

	for version < m.target {
		mig, ok := m.step(version)
		if !ok {
			return version, fmt.Errorf("%w %d", ErrNoMigration, version)
		}
		if err := m.apply(ctx, db, version+1, mig.Name, mig.Apply); err != nil {
			return version, fmt.Errorf("apply migration %d (%s): %w", version, mig.Name, err)
		}
		log.WithFields(log.Fields{"from": version, "to": version + 1, "name": mig.Name}).
			Info("migrated profile schema")
		version++
	}
	return version, nil
}

// apply runs fn in a transaction and stamps the resulting version in the
// same transaction, so a failed step leaves the previous version in place.
func (m *schemaManager) apply(ctx context.Context, db *sql.DB, to int, name string, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		metrics.MigrationsTotal.WithLabelValues(name, metrics.Fail).Inc()
		return err
	}
	if err := setUserVersion(tx, to); err != nil {
		return fmt.Errorf("stamp version %d: %w", to, err)
	}
	if err := tx.Commit(); err != nil {
		metrics.MigrationsTotal.WithLabelValues(name, metrics.Fail).Inc()
		return err
	}
	metrics.MigrationsTotal.WithLabelValues(name, metrics.Ok).Inc()
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func userVersion(ctx context.Context, q queryRower) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// setUserVersion cannot use a bound parameter: PRAGMA values are literals.
func setUserVersion(tx *sql.Tx, v int) error {
	_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v))
	return err
}

// execAll runs stmts in order, stopping at the first failure.
func execAll(tx *sql.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
