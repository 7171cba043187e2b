// Package statsview serves live runtime statistics (goroutines, heap, GC)
// for watching the dispatch goroutine's footprint.
package statsview

import (
	"errors"
	"net/http"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"go.uber.org/zap"
)

const path = "/debug/statsview"

// Launch starts the stats server on addr and returns a function that stops
// it.
func Launch(addr string, log *zap.Logger) (stop func()) {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()

	go func() {
		if err := mgr.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("stats server failed", zap.Error(err))
		}
	}()

	log.Info("stats server available", zap.String("url", "http://"+addr+path))
	return mgr.Stop
}
