// Copyright 2026 GLHost Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache builds and inspects the on-disk driver cache.
//
// Layout of a cache root:
//
//	<root>/cache.json          snapshot of the host libraries the cache was built from
//	<root>/ld_library_path     precomputed loader search path
//	<root>/egl-confs/          EGL vendor descriptors
//	<root>/<sha256(dir)>/lib   patched generic libraries, the runpath of every copy
//	<root>/<sha256(dir)>/glx
//	<root>/<sha256(dir)>/cuda
//	<root>/<sha256(dir)>/egl
//
// A cache root is never modified in place. Rebuilds populate a staging
// directory next to it and replace it with a single rename.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"glhost/internal/classify"
	"glhost/internal/common"
	"glhost/internal/storage"
)

const (
	LibDir  = "lib"
	GLXDir  = "glx"
	CUDADir = "cuda"
	EGLDir  = "egl"

	SnapshotFile   = "cache.json"
	SearchPathFile = "ld_library_path"
	EGLConfDir     = "egl-confs"
)

// HashDirName returns the fixed-length directory name used for a search directory.
func HashDirName(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// CategoryDir maps a classification bucket to its directory name.
func CategoryDir(c classify.Category) string {
	switch c {
	case classify.GLX:
		return GLXDir
	case classify.CUDA:
		return CUDADir
	case classify.EGL:
		return EGLDir
	}
	return LibDir
}

// Layout resolves paths inside one cache root.
type Layout struct {
	Root string
}

func (l Layout) SnapshotPath() string   { return filepath.Join(l.Root, SnapshotFile) }
func (l Layout) SearchPathPath() string { return filepath.Join(l.Root, SearchPathFile) }
func (l Layout) EGLConfPath() string    { return filepath.Join(l.Root, EGLConfDir) }

// EntryDir is the hashed directory of a search directory.
func (l Layout) EntryDir(source string) string {
	return filepath.Join(l.Root, HashDirName(source))
}

// Runpath is what every copy from source gets as its runpath.
func (l Layout) Runpath(source string) string {
	return filepath.Join(l.EntryDir(source), LibDir)
}

// SearchPathString lists, for each set in order, the glx, cuda and egl
// directories of its hashed entry under root.
func SearchPathString(root string, sets []storage.LibrarySet) string {
	l := Layout{Root: root}
	dirs := make([]string, 0, 3*len(sets))
	for _, set := range sets {
		entry := l.EntryDir(set.Path)
		dirs = append(dirs,
			filepath.Join(entry, GLXDir),
			filepath.Join(entry, CUDADir),
			filepath.Join(entry, EGLDir),
		)
	}
	return common.JoinSearchPath(dirs...)
}

// ReadSearchPath returns the stored search path of root, or "" if it is
// missing or empty.
func ReadSearchPath(root string) string {
	data, err := os.ReadFile(Layout{Root: root}.SearchPathPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Reuse returns the stored search path when root holds a cache built from
// exactly fresh. A cache without a search path file is never reused.
func Reuse(root string, fresh storage.CacheSnapshot) (string, bool) {
	if !storage.IsUpToDate(fresh, Layout{Root: root}.SnapshotPath()) {
		return "", false
	}
	sp := ReadSearchPath(root)
	if sp == "" {
		return "", false
	}
	return sp, true
}
