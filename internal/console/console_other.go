//go:build !windows

package console

import "go.uber.org/zap"

// IsRunningFromConsole always reports true outside Windows.
func IsRunningFromConsole() bool {
	return true
}

// SetupConsoleHandler is a no-op outside Windows, where os/signal already
// delivers SIGINT while SDL holds the main thread.
func SetupConsoleHandler(shutdown chan struct{}, log *zap.Logger) func() {
	return func() {}
}
