// Package migrations embeds the execution journal schema into the binary.
//
// Files follow the YYYYMMDD_HHMMSS_description.{up,down}.sql convention
// understood by database.Migrate.
package migrations

import "embed"

// FS holds every migration file at its root.
//
//go:embed *.sql
var FS embed.FS
