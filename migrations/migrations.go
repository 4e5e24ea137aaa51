// Package migrations embeds the catalog schema for each supported database.
package migrations

import "embed"

// Embedded at compile time so the binary can migrate a catalog without
// shipping SQL files alongside it.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
