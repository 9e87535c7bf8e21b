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

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"glhost/internal/classify"
	"glhost/internal/storage"
)

// Patcher copies libraries into a directory and rewrites their runpath.
type Patcher interface {
	CopyAndPatch(ctx context.Context, libs []storage.LibraryRecord, destDir, runpath string) error
}

// Builder regenerates a cache root from a snapshot.
type Builder struct {
	patcher Patcher
	vendor  classify.Vendor

	// beforePromote runs after the staging directory is fully populated.
	beforePromote func(stagingDir string) error
}

// NewBuilder creates a Builder.
func NewBuilder(patcher Patcher, vendor classify.Vendor) *Builder {
	return &Builder{patcher: patcher, vendor: vendor}
}

// bucketOrder is the order in which category directories are populated.
var bucketOrder = []classify.Category{classify.Generic, classify.CUDA, classify.EGL, classify.GLX}

// Rebuild builds a new cache for snap and atomically replaces root with it.
// It returns the loader search path of the new cache. On failure root is
// left untouched.
func (b *Builder) Rebuild(ctx context.Context, snap storage.CacheSnapshot, root string) (string, error) {
	if res := CleanStaleStaging(root); len(res.Errors) > 0 {
		log.WithError(res.Errors[0]).Warn("Failed to remove stale staging directories")
	}

	final := Layout{Root: root}
	var searchPath string
	err := WithStaging(ctx, root, func(dir string) error {
		for i := range snap.Paths {
			if err := b.buildEntry(ctx, &snap.Paths[i], dir, final); err != nil {
				return err
			}
		}

		staged := Layout{Root: dir}
		if err := storage.WriteSnapshot(staged.SnapshotPath(), snap); err != nil {
			return err
		}

		// Paths point at the final root, not the staging directory.
		searchPath = SearchPathString(root, snap.Paths)
		log.WithField("ld_library_path", searchPath).Debug("Caching loader search path")
		if err := os.WriteFile(staged.SearchPathPath(), []byte(searchPath), 0644); err != nil {
			return fmt.Errorf("failed to write search path: %w", err)
		}

		if err := WriteEGLConfigs(staged.EGLConfPath(), b.vendor.Descriptors); err != nil {
			return err
		}

		if b.beforePromote != nil {
			return b.beforePromote(dir)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return searchPath, nil
}

func (b *Builder) buildEntry(ctx context.Context, set *storage.LibrarySet, stagingDir string, final Layout) error {
	hashed := HashDirName(set.Path)
	runpath := final.Runpath(set.Path)
	log.WithFields(log.Fields{"source": set.Path, "entry": hashed}).Info("Caching driver directory")

	for _, c := range bucketOrder {
		dest := filepath.Join(stagingDir, hashed, CategoryDir(c))
		if err := os.MkdirAll(dest, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dest, err)
		}
		libs := set.Bucket(c)
		if len(libs) == 0 {
			log.WithField("dir", dest).Debug("No library for this category, skipping copy and patch")
			continue
		}
		if err := b.patcher.CopyAndPatch(ctx, libs, dest, runpath); err != nil {
			return fmt.Errorf("failed to cache %s libraries of %s: %w", c, set.Path, err)
		}
	}
	return nil
}

type eglICD struct {
	LibraryPath string `json:"library_path"`
}

type eglConfig struct {
	FileFormatVersion string `json:"file_format_version"`
	ICD               eglICD `json:"ICD"`
}

// WriteEGLConfigs writes one vendor descriptor per entry into dir. Only
// basenames are recorded so the loader resolves them through the search path.
func WriteEGLConfigs(dir string, descriptors []classify.EGLDescriptor) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for _, d := range descriptors {
		data, err := json.Marshal(eglConfig{FileFormatVersion: "1.0.0", ICD: eglICD{LibraryPath: d.Library}})
		if err != nil {
			return err
		}
		path := filepath.Join(dir, d.FileName)
		log.WithFields(log.Fields{"library": d.Library, "file": path}).Debug("Writing EGL vendor config")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
