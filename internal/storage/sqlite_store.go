package storage

import (
	"strings"

	"github.com/dyike/StockAnalyzer/config"
)

// OpenRecorder returns a SQLite-backed recorder when cfg.HistoryDB is set and
// a no-op recorder otherwise.
func OpenRecorder(cfg *config.Config) (Recorder, error) {
	path := strings.TrimSpace(cfg.HistoryDB)
	if path == "" {
		return NewNoopRecorder(), nil
	}
	return NewStore(path)
}
