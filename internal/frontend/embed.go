package frontend

import (
	"embed"
	"io/fs"
)

//go:embed web
var webFS embed.FS

// GetWebFS returns the embedded web UI filesystem
func GetWebFS() (fs.FS, error) {
	return fs.Sub(webFS, "web")
}
