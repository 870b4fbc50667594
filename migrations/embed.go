// Package migrations embeds the SQL schema migrations so the binaries do not
// depend on the working directory.
package migrations

import "embed"

// FS holds every *.sql migration
//
//go:embed *.sql
var FS embed.FS
