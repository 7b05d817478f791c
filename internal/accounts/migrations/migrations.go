// Package migrations embeds the goose migrations for the accounts database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
