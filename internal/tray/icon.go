// Package tray shows a system tray icon for opening the viewer, pausing
// input and quitting.
package tray

import _ "embed"

//go:embed icon.ico
var iconData []byte

// Icon returns the embedded tray icon.
func Icon() []byte {
	return iconData
}
