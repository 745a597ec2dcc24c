// Package migrations holds the SQLite schema as ordered .sql files and
// applies them once each.
package migrations

import "embed"

// FS contains every migration file, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
