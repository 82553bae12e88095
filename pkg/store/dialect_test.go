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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    dialect
		wantErr bool
	}{
		{"sqlite3", dialectSQLite, false},
		{"sqlite", dialectSQLite, false},
		{"mysql", dialectMySQL, false},
		{"postgres", dialectPostgres, false},
		{"pq", dialectPostgres, false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDialect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	q := `INSERT INTO t (a, b, c) VALUES (?, ?, ?)`

	assert.Equal(t, q, dialectSQLite.rebind(q), "sqlite keeps ? placeholders")
	assert.Equal(t, q, dialectMySQL.rebind(q), "mysql keeps ? placeholders")
	assert.Equal(t,
		`INSERT INTO t (a, b, c) VALUES ($1, $2, $3)`,
		dialectPostgres.rebind(q))

	assert.Equal(t, `SELECT 1`, dialectPostgres.rebind(`SELECT 1`))
}

func TestMigrationsExistPerDialect(t *testing.T) {
	for _, d := range []dialect{dialectSQLite, dialectMySQL, dialectPostgres} {
		entries, err := migrationFS.ReadDir(d.migrationsDir())
		require.NoError(t, err, "dialect %s", d)
		assert.NotEmpty(t, entries, "dialect %s has no migrations", d)
	}
}
