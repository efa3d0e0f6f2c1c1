// Package database provides the SQLite store behind the bridge.
//
// It holds two things the sync core itself keeps only in memory:
//   - the endpoint registry, so an entity keeps its endpoint number
//     across restarts
//   - the attribute history written by the bridge's change reporter
//
// Connections are opened with WAL mode and a busy timeout; the pool is
// pinned to a single connection because SQLite has one writer. The
// special path ":memory:" gives a throwaway database for tests and for
// bridges run without a storage location.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_name.up.sql with an
// optional matching .down.sql. Each runs in its own transaction and is
// recorded in schema_migrations.
package database
