// Package migrations embeds the run history schema.
package migrations

import "embed"

//go:embed sqlite/*.sql
var FS embed.FS
