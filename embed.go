package main

import (
	"embed"
	"io/fs"
)

//go:embed all:frontend
var viewerAssets embed.FS

// frontendFS is the viewer tree served at "/".
func frontendFS() (fs.FS, error) {
	return fs.Sub(viewerAssets, "frontend")
}
