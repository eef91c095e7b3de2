// Package migrations embeds the SQL migrations for the shared preferences
// database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
