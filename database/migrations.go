package database

import (
	"database/sql"
	"embed"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Migrations is the embedded schema source shared by postgres and sqlite3.
func Migrations() migrate.MigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: SQLFiles,
		Root:       "sql",
	}
}

// Migrate applies (or rolls back) the schema and returns the number of migrations run.
// max limits the number of steps; 0 means all.
func Migrate(db *sql.DB, driver string, direction migrate.MigrationDirection, max int) (int, error) {
	return migrate.ExecMax(db, driver, Migrations(), direction, max)
}
