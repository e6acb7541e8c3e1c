// Package migrations embeds the SQL schema migrations for each supported driver.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per driver name.
//
//go:embed postgres/*.sql sqlite3/*.sql
var FS embed.FS
