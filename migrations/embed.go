// Package migrations holds the postgres schema as numbered golang-migrate
// files, embedded so the CLI binary carries its own schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
