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
	"fmt"
	"strconv"
	"strings"

	// The optional relational backends register themselves with
	// database/sql on import, same as internal/sqlitedriver does for the
	// default backend.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// dialect captures the per-backend differences the Store has to bridge:
// placeholder syntax and migration DDL. Query text everywhere else is
// written once in ?-placeholder form and rebound here.
type dialect string

const (
	dialectSQLite   dialect = "sqlite3"
	dialectMySQL    dialect = "mysql"
	dialectPostgres dialect = "postgres"
)

func parseDialect(driverName string) (dialect, error) {
	switch driverName {
	case "sqlite3", "sqlite":
		return dialectSQLite, nil
	case "mysql":
		return dialectMySQL, nil
	case "postgres", "pq":
		return dialectPostgres, nil
	default:
		return "", fmt.Errorf("store: unsupported driver %q (sqlite3, mysql, postgres)", driverName)
	}
}

// driverName is the name registered with database/sql for this dialect.
func (d dialect) driverName() string {
	return string(d)
}

// migrationsDir is the embedded directory holding this dialect's DDL.
func (d dialect) migrationsDir() string {
	switch d {
	case dialectMySQL:
		return "migrations_mysql"
	case dialectPostgres:
		return "migrations_postgres"
	default:
		return "migrations"
	}
}

// durationSecondsExpr is the SQL fragment computing end_time-start_time
// in seconds, which has no portable spelling across the three backends.
func (d dialect) durationSecondsExpr() string {
	switch d {
	case dialectMySQL:
		return "TIMESTAMPDIFF(MICROSECOND, start_time, end_time) / 1000000.0"
	case dialectPostgres:
		return "EXTRACT(EPOCH FROM (end_time - start_time))"
	default:
		return "(julianday(end_time) - julianday(start_time)) * 86400.0"
	}
}

// rebind rewrites ?-placeholders to the dialect's syntax. Only Postgres
// differs; placeholders never appear inside string literals in this
// package's queries, so a plain scan suffices.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}
