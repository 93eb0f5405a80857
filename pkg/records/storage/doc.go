// Package storage provides records.Storage backends.
//
// MemoryStorage keeps records in a map guarded by a RWMutex and returns
// copies. SQLiteStorage persists records through database/sql with either
// SQLite driver:
//
//   - "sqlite" (modernc.org/sqlite) is pure Go and needs no cgo.
//   - "sqlite3" (github.com/mattn/go-sqlite3) wraps the C library.
//
// Both store timestamps as integer Unix nanoseconds so a database written
// by one driver reads back identically with the other. New picks a backend
// from config.RecordsConfig.
package storage
