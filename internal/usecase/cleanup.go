package usecase

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// cleanupList collects the temporary paths of one run and removes them once.
type cleanupList struct {
	mu     sync.Mutex
	paths  []string
	once   sync.Once
	logger *slog.Logger
}

func newCleanupList(logger *slog.Logger) *cleanupList {
	return &cleanupList{logger: logger}
}

// Add schedules path for deletion.
func (c *cleanupList) Add(path string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
}

// Release deletes every tracked path. Later calls are no-ops.
func (c *cleanupList) Release() {
	c.once.Do(func() {
		c.mu.Lock()
		paths := c.paths
		c.paths = nil
		c.mu.Unlock()

		removed := 0
		for _, p := range paths {
			err := os.Remove(p)
			switch {
			case err == nil:
				removed++
			case errors.Is(err, fs.ErrNotExist):
			default:
				c.logger.Warn("remove temporary file", "path", p, "error", err)
			}
		}
		if len(paths) > 0 {
			c.logger.Debug("temporary files removed", "count", removed, "tracked", len(paths))
		}
	})
}
