// Package migrations embeds the database schema migrations.
package migrations

import "embed"

// FS holds one directory of golang-migrate style migrations per driver.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
