package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"glhost/internal/util"
)

// stagingPrefix is followed by a random suffix. Staging directories live
// next to the root so promotion stays on one filesystem.
func stagingPrefix(root string) string {
	return "." + filepath.Base(root) + ".staging-"
}

// Staging is a scratch directory that either replaces a cache root or is discarded.
type Staging struct {
	Dir    string
	target string
	done   bool
}

// NewStaging allocates a fresh staging directory for root.
func NewStaging(root string) (*Staging, error) {
	parent := filepath.Dir(root)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache parent: %w", err)
	}
	dir := filepath.Join(parent, stagingPrefix(root)+uuid.NewString())
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Staging{Dir: dir, target: root}, nil
}

// Promote replaces the target with the staging directory.
func (s *Staging) Promote(ctx context.Context) error {
	if s.done {
		return fmt.Errorf("staging directory already finalized")
	}
	err := util.Retry(ctx, func() error {
		if err := os.RemoveAll(s.target); err != nil {
			return err
		}
		return os.Rename(s.Dir, s.target)
	})
	if err != nil {
		return fmt.Errorf("failed to promote %s to %s: %w", s.Dir, s.target, err)
	}
	s.done = true
	log.WithField("root", s.target).Debug("Cache promoted")
	return nil
}

// Discard removes the staging directory. It is a no-op after Promote.
func (s *Staging) Discard() {
	if s.done {
		return
	}
	s.done = true
	if err := os.RemoveAll(s.Dir); err != nil {
		log.WithError(err).WithField("dir", s.Dir).Warn("Failed to remove staging directory")
	}
}

// WithStaging populates a staging directory and promotes it over root.
// On any failure the staging directory is removed. A failed populate leaves
// root as it was; a promotion that fails after the old root was removed
// leaves root missing, and the next run rebuilds it.
func WithStaging(ctx context.Context, root string, populate func(dir string) error) error {
	s, err := NewStaging(root)
	if err != nil {
		return err
	}
	defer s.Discard()

	if err := populate(s.Dir); err != nil {
		return err
	}
	return s.Promote(ctx)
}

func isStagingName(root, name string) bool {
	return strings.HasPrefix(name, stagingPrefix(root))
}
