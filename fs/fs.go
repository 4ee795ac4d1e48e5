package appfs

import "embed"

// FS embeds the database migrations and static assets (email templates,
// common passwords list).
//go:embed migrations assets
var FS embed.FS
