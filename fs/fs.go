// Package appfs embeds migrations and static assets into the binary.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS
