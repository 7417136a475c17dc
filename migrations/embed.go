// Package migrations embeds the SQL schema migrations, one directory per dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
