// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql migrations_mysql/*.sql migrations_postgres/*.sql
var migrationFS embed.FS

// MigrateUp applies every embedded migration that hasn't yet been
// recorded in schema_version, in filename order, each migration inside
// its own transaction. It takes no in-process lock, so concurrent callers
// are not serialized against each other.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, dialectSQLite)
}

func migrateUp(ctx context.Context, db *sql.DB, d dialect) error {
	if _, err := db.ExecContext(ctx, bootstrapDDL(d)); err != nil {
		return fmt.Errorf("store: bootstrap schema_version: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return fmt.Errorf("store: query schema_version: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan schema_version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	entries, err := fs.ReadDir(migrationFS, d.migrationsDir())
	if err != nil {
		return fmt.Errorf("store: read embedded migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for i, entry := range entries {
		version := i + 1
		if applied[version] {
			continue
		}
		sqlBytes, err := migrationFS.ReadFile(d.migrationsDir() + "/" + entry.Name())
		if err != nil {
			return fmt.Errorf("store: read migration %s: %w", entry.Name(), err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin migration tx: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: apply migration %s: %w", entry.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, d.rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`), version); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: record migration %s: %w", entry.Name(), err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func bootstrapDDL(d dialect) string {
	switch d {
	case dialectMySQL:
		return `CREATE TABLE IF NOT EXISTS schema_version (
			version INT PRIMARY KEY, applied_at DATETIME(6) NOT NULL
		)`
	case dialectPostgres:
		return `CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL
		)`
	default:
		return `CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY, applied_at DATETIME NOT NULL
		)`
	}
}
