// Package database provides the SQLite connection used by tunerd.
//
// It owns:
//   - the connection and its pragmas (WAL, busy timeout, foreign keys)
//   - additive schema migrations registered from an fs.FS
//   - health checks used by the API and the MQTT health reporter
//
// The only schema tunerd keeps is the settings table, which stores one
// JSON document per persisted tuner device. See internal/settings.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// A Path of ":memory:" opens a private in-memory database. The pool is
// pinned to one connection so the in-memory schema survives between calls.
package database
