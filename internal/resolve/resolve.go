// Package resolve scans candidate directories for vendor driver libraries.
package resolve

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	log "github.com/sirupsen/logrus"

	"glhost/internal/classify"
	"glhost/internal/common"
	"glhost/internal/storage"
)

// Resolver classifies the regular files of a directory. It never recurses.
type Resolver struct {
	fs    billy.Filesystem
	rules classify.RuleSet
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFS reads directories through fs instead of the host root.
func WithFS(fs billy.Filesystem) Option {
	return func(r *Resolver) { r.fs = fs }
}

// New creates a Resolver for rules.
func New(rules classify.RuleSet, opts ...Option) *Resolver {
	r := &Resolver{rules: rules}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = osfs.New("/")
	}
	return r
}

// ScanDir returns the classified libraries of dir, or nil when dir holds no
// generic driver library or cannot be read. A relative dir is resolved against
// the working directory and the set records the absolute path.
func (r *Resolver) ScanDir(dir string) *storage.LibrarySet {
	dir = common.AbsPath(dir)
	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		log.WithError(err).WithField("dir", dir).Warn("Cannot list directory, skipping")
		return nil
	}

	set := &storage.LibrarySet{Path: dir}
	for _, entry := range entries {
		name := entry.Name()
		categories := r.rules.Classify(name)
		if len(categories) == 0 {
			continue
		}
		// Stat follows symlinks; directories and dangling links are skipped.
		info, err := r.fs.Stat(r.fs.Join(dir, name))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rec := storage.NewLibraryRecord(dir, name, info)
		for _, c := range categories {
			set.Add(c, rec)
		}
	}

	if len(set.Generic) == 0 {
		return nil
	}
	log.WithFields(log.Fields{
		"dir":     dir,
		"total":   set.Count(),
		"generic": len(set.Generic),
		"glx":     len(set.GLX),
		"cuda":    len(set.CUDA),
		"egl":     len(set.EGL),
	}).Debug("Found driver libraries")
	return set
}

// Scan runs ScanDir over dirs, keeping their order and dropping empty results.
func (r *Resolver) Scan(dirs []string) []storage.LibrarySet {
	var sets []storage.LibrarySet
	for _, dir := range dirs {
		if set := r.ScanDir(dir); set != nil {
			sets = append(sets, *set)
		}
	}
	return sets
}
