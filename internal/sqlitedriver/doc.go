// Package sqlitedriver registers a pure-Go SQLite database/sql driver under
// the name "sqlite3", backed by modernc.org/sqlite. No CGO toolchain is
// required to build or run the event store.
//
// Import this package for its side effects only:
//
//	import _ "github.com/molaco/workflow-manager/internal/sqlitedriver"
package sqlitedriver
