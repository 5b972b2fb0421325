// Package migrations embeds the device-side SQLite schema applied with goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
