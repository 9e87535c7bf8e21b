// Package lock serializes cache access across processes with an advisory file lock.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
)

// FileName is the lock file created next to a cache root.
const FileName = "glhost.lock"

// PathFor returns the lock file guarding root.
func PathFor(root string) string {
	return filepath.Join(filepath.Dir(root), FileName)
}

// Coordinator guards one cache root. Acquisition blocks without timeout.
type Coordinator struct {
	path string
	lock *flock.Flock
}

// New returns a Coordinator for the cache root.
func New(root string) *Coordinator {
	path := PathFor(root)
	return &Coordinator{path: path, lock: flock.New(path)}
}

// Path returns the lock file path.
func (c *Coordinator) Path() string {
	return c.path
}

// Acquire blocks until the exclusive lock is held.
func (c *Coordinator) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	log.WithField("path", c.path).Debug("Acquiring the cache lock")
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", c.path, err)
	}
	log.Debug("Cache lock acquired")
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (c *Coordinator) Release() error {
	if !c.lock.Locked() {
		return nil
	}
	if err := c.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", c.path, err)
	}
	log.Debug("Cache lock released")
	return nil
}

// WithLock runs fn while holding the lock. The lock is released on every
// return path, including panics.
func (c *Coordinator) WithLock(fn func() error) (err error) {
	if err := c.Acquire(); err != nil {
		return err
	}
	defer func() {
		if rerr := c.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn()
}
