package cache

import (
	"fmt"
	"os"
	"strings"

	"glhost/internal/storage"
)

// EntryStatus describes one hashed entry of a cache root.
type EntryStatus struct {
	Source  string
	Hash    string
	Present bool
	Generic int
	GLX     int
	CUDA    int
	EGL     int
}

// Status is a read-only view of a cache root.
type Status struct {
	Root       string
	Exists     bool
	Version    int
	SearchPath string
	Entries    []EntryStatus
	// SnapshotErr is set when cache.json is missing or unusable.
	SnapshotErr error
	// UpToDate is only meaningful when a fresh snapshot was supplied.
	UpToDate bool
}

// Inspect reads root without modifying it. When fresh is non-nil the result
// also says whether the cache would be reused for it.
// Callers must hold the cache lock.
func Inspect(root string, fresh *storage.CacheSnapshot) *Status {
	l := Layout{Root: root}
	st := &Status{Root: root}

	if info, err := os.Stat(root); err == nil && info.IsDir() {
		st.Exists = true
	}
	st.SearchPath = ReadSearchPath(root)

	snap, err := storage.ReadSnapshot(l.SnapshotPath())
	if err != nil {
		st.SnapshotErr = err
	} else {
		st.Version = snap.Version
		for _, set := range snap.Paths {
			entry := EntryStatus{
				Source:  set.Path,
				Hash:    HashDirName(set.Path),
				Generic: len(set.Generic),
				GLX:     len(set.GLX),
				CUDA:    len(set.CUDA),
				EGL:     len(set.EGL),
			}
			if info, err := os.Stat(l.EntryDir(set.Path)); err == nil && info.IsDir() {
				entry.Present = true
			}
			st.Entries = append(st.Entries, entry)
		}
	}

	if fresh != nil {
		_, st.UpToDate = Reuse(root, *fresh)
	}
	return st
}

// Format renders st for humans.
func (st *Status) Format(checked bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cache:   %s\n", st.Root)
	if !st.Exists {
		b.WriteString("State:   not built\n")
		return b.String()
	}
	if st.SnapshotErr != nil {
		fmt.Fprintf(&b, "State:   unusable (%v)\n", st.SnapshotErr)
		return b.String()
	}
	fmt.Fprintf(&b, "Version: %d\n", st.Version)
	if checked {
		state := "stale"
		if st.UpToDate {
			state = "up to date"
		}
		fmt.Fprintf(&b, "State:   %s\n", state)
	}
	fmt.Fprintf(&b, "Entries: %d\n", len(st.Entries))
	for _, e := range st.Entries {
		missing := ""
		if !e.Present {
			missing = " (missing)"
		}
		fmt.Fprintf(&b, "  %s%s\n    %s  generic=%d glx=%d cuda=%d egl=%d\n",
			e.Source, missing, e.Hash[:12], e.Generic, e.GLX, e.CUDA, e.EGL)
	}
	if st.SearchPath != "" {
		fmt.Fprintf(&b, "LD_LIBRARY_PATH: %s\n", st.SearchPath)
	}
	return b.String()
}
