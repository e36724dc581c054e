// Package whitecard carries module-level embedded assets.
package whitecard

import "embed"

//go:embed migrations
var MigrationsFS embed.FS
