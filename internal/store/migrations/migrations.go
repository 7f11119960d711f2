// Package migrations embeds the store's SQL schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
