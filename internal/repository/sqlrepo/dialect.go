// Package sqlrepo implements the repositories on database/sql. The same queries
// run on PostgreSQL (lib/pq) and SQLite (go-sqlite3).
package sqlrepo

import "strings"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// rebinder rewrites $N placeholders for the target driver. SQLite understands
// ?NNN numbered parameters, PostgreSQL keeps $N.
type rebinder string

func (d rebinder) rebind(query string) string {
	if d == DriverSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}
