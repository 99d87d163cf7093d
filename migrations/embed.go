// Package migrations embeds the schema migration files so the engine can
// migrate itself at startup without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
