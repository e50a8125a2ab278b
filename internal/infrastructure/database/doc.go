// Package database provides SQLite connectivity for the persisted design.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations embedded in the binary (see the migrations package)
//   - Connection lifecycle and health checks
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: each file pair is YYYYMMDD_HHMMSS_name.up.sql and
// YYYYMMDD_HHMMSS_name.down.sql, and every table is declared STRICT.
package database
