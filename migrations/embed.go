// Package migrations embeds the SQL schema files so binaries can migrate at
// startup without shipping the files separately.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
