package db

import (
	"database/sql"
	"embed"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to date. Applied migrations are recorded in
// schema_migrations by their numeric prefix, so re-running is a no-op.
func Migrate(db *sql.DB, log *zap.SugaredLogger) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return errors.Wrap(err, "creating schema_migrations")
	}

	entries, err := migrations.ReadDir("sqlite/migrations")
	if err != nil {
		return errors.Wrap(err, "reading migrations")
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.SplitN(name, "_", 2)[0]

		var applied bool
		if err := db.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version,
		).Scan(&applied); err != nil {
			return errors.Wrapf(err, "checking migration %s", name)
		}
		if applied {
			continue
		}

		stmt, err := migrations.ReadFile("sqlite/migrations/" + name)
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "beginning %s", name)
		}
		if _, err := tx.Exec(string(stmt)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "applying %s", name)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "recording %s", name)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "committing %s", name)
		}

		if log != nil {
			log.Infow("Applied migration", "migration", name)
		}
	}

	return nil
}
