package appfs

import "embed"

// FS embeds all static application files: database migrations,
// email and document templates, and validation assets.
//
//go:embed all:migrations all:templates all:assets
var FS embed.FS
