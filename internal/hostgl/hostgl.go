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

// Package hostgl prepares the environment a program needs to load the host
// GPU driver from the glhost cache.
//
// Prepare takes the cache lock, scans the candidate directories, reuses the
// cache when its snapshot matches the scan and rebuilds it otherwise, then
// returns the environment variables to export. Everything between the scan
// and the final read of the search path happens under the lock, so
// concurrent invocations never observe a half-promoted cache.
package hostgl

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"glhost/internal/cache"
	"glhost/internal/classify"
	"glhost/internal/common"
	"glhost/internal/lock"
	"glhost/internal/resolve"
	"glhost/internal/storage"
)

// Environment variables set for the wrapped program.
const (
	VendorNameVar    = "__GLX_VENDOR_LIBRARY_NAME"
	EGLVendorDirsVar = "__EGL_VENDOR_LIBRARY_DIRS"
	LDLibraryPathVar = "LD_LIBRARY_PATH"
)

// Options configures Prepare.
type Options struct {
	// SearchPaths are the candidate driver directories, in priority order.
	SearchPaths []string
	// CacheRoot is the directory owned by the cache.
	CacheRoot string
	// InheritedLDLibraryPath is appended after the cache search path.
	InheritedLDLibraryPath string
	Vendor                 classify.Vendor
	Patcher                cache.Patcher
	// Resolver defaults to one built from Vendor.Rules.
	Resolver *resolve.Resolver
}

// Result is the outcome of Prepare.
type Result struct {
	Env map[string]string
	// SearchPath is the cache part of LD_LIBRARY_PATH.
	SearchPath string
	// Rebuilt is true when the cache was regenerated.
	Rebuilt bool
}

// Prepare brings the cache up to date and synthesizes the environment.
func Prepare(ctx context.Context, opts Options) (*Result, error) {
	if opts.CacheRoot == "" {
		return nil, fmt.Errorf("cache root is required")
	}
	// Runpaths and LD_LIBRARY_PATH entries must not depend on the cwd.
	opts.CacheRoot = common.AbsPath(opts.CacheRoot)
	resolver := opts.Resolver
	if resolver == nil {
		resolver = resolve.New(opts.Vendor.Rules)
	}

	res := &Result{}
	coord := lock.New(opts.CacheRoot)
	err := coord.WithLock(func() error {
		log.WithField("dirs", len(opts.SearchPaths)).Info("Searching for the host driver libraries")
		sets := resolver.Scan(opts.SearchPaths)
		if len(sets) == 0 {
			return common.ErrNoDriverLibraries
		}
		fresh := storage.NewSnapshot(sets)

		if sp, ok := cache.Reuse(opts.CacheRoot, fresh); ok {
			log.Info("The cache is up to date, re-using it")
			res.SearchPath = sp
			return nil
		}

		log.Info("The cache is not up to date, regenerating it")
		sp, err := cache.NewBuilder(opts.Patcher, opts.Vendor).Rebuild(ctx, fresh, opts.CacheRoot)
		if err != nil {
			return err
		}
		res.SearchPath = sp
		res.Rebuilt = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.SearchPath == "" {
		return nil, common.ErrEmptySearchPath
	}
	res.Env = Synthesize(opts.Vendor.Name, opts.CacheRoot, res.SearchPath, opts.InheritedLDLibraryPath)
	return res, nil
}

// Synthesize builds the environment for a cache root. The cache search path
// comes first so host defaults cannot shadow the cached driver.
func Synthesize(vendor, cacheRoot, searchPath, inherited string) map[string]string {
	env := map[string]string{
		VendorNameVar:    vendor,
		EGLVendorDirsVar: cache.Layout{Root: cacheRoot}.EGLConfPath(),
		LDLibraryPathVar: common.PrependSearchPath(searchPath, inherited),
	}
	for k, v := range env {
		log.WithField("value", v).Debugf("%s", k)
	}
	return env
}
