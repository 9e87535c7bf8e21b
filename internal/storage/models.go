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

package storage

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"glhost/internal/classify"
)

// SchemaVersion is the version written into every snapshot.
// Bumping it invalidates all existing caches.
const SchemaVersion = 1

// LibraryRecord describes one discovered shared object.
// Two records are equal only if all five fields are equal.
type LibraryRecord struct {
	Name    string `json:"name"`
	Dir     string `json:"dirpath"`
	Path    string `json:"fullpath"`
	ModTime int64  `json:"last_modification"` // Unix nanoseconds
	Size    int64  `json:"size"`
}

// NewLibraryRecord builds a record for name found in dir.
func NewLibraryRecord(dir, name string, info os.FileInfo) LibraryRecord {
	full := filepath.Join(dir, name)
	if abs, err := filepath.Abs(full); err == nil {
		full = abs
	}
	return LibraryRecord{
		Name:    name,
		Dir:     dir,
		Path:    full,
		ModTime: info.ModTime().UnixNano(),
		Size:    info.Size(),
	}
}

// Hash combines every identity field.
func (r LibraryRecord) Hash() uint64 {
	d := xxhash.New()
	for _, s := range []string{r.Name, r.Dir, r.Path} {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.WriteString(strconv.FormatInt(r.ModTime, 10))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(strconv.FormatInt(r.Size, 10))
	return d.Sum64()
}

// LibrarySet is the classified content of one search directory.
type LibrarySet struct {
	GLX     []LibraryRecord `json:"glx"`
	CUDA    []LibraryRecord `json:"cuda"`
	Generic []LibraryRecord `json:"generic"`
	EGL     []LibraryRecord `json:"egl"`
	Path    string          `json:"path"`
}

// Bucket returns the records of one category.
func (s *LibrarySet) Bucket(c classify.Category) []LibraryRecord {
	switch c {
	case classify.Generic:
		return s.Generic
	case classify.GLX:
		return s.GLX
	case classify.CUDA:
		return s.CUDA
	case classify.EGL:
		return s.EGL
	}
	return nil
}

// Add appends rec to the bucket of category c.
func (s *LibrarySet) Add(c classify.Category, rec LibraryRecord) {
	switch c {
	case classify.Generic:
		s.Generic = append(s.Generic, rec)
	case classify.GLX:
		s.GLX = append(s.GLX, rec)
	case classify.CUDA:
		s.CUDA = append(s.CUDA, rec)
	case classify.EGL:
		s.EGL = append(s.EGL, rec)
	}
}

// Count returns the number of records across all buckets.
func (s *LibrarySet) Count() int {
	return len(s.Generic) + len(s.GLX) + len(s.CUDA) + len(s.EGL)
}

// Equal compares the path and each bucket as an unordered set.
func (s *LibrarySet) Equal(o *LibrarySet) bool {
	return s.Path == o.Path &&
		sameRecords(s.Generic, o.Generic) &&
		sameRecords(s.GLX, o.GLX) &&
		sameRecords(s.CUDA, o.CUDA) &&
		sameRecords(s.EGL, o.EGL)
}

// Hash is order-independent within each bucket, consistent with Equal.
func (s *LibrarySet) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(s.Path)
	for _, bucket := range [][]LibraryRecord{s.Generic, s.GLX, s.CUDA, s.EGL} {
		_, _ = d.WriteString(strconv.FormatUint(setHash(bucket), 16))
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// setHash sums distinct record hashes so duplicates and order do not matter.
func setHash(records []LibraryRecord) uint64 {
	seen := make(map[LibraryRecord]struct{}, len(records))
	var sum uint64
	for _, r := range records {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		sum += r.Hash()
	}
	return sum
}

func sameRecords(a, b []LibraryRecord) bool {
	as := make(map[LibraryRecord]struct{}, len(a))
	for _, r := range a {
		as[r] = struct{}{}
	}
	bs := make(map[LibraryRecord]struct{}, len(b))
	for _, r := range b {
		if _, ok := as[r]; !ok {
			return false
		}
		bs[r] = struct{}{}
	}
	return len(as) == len(bs)
}

// CacheSnapshot is the persisted cache-validity record.
type CacheSnapshot struct {
	Paths   []LibrarySet `json:"paths"`
	Version int          `json:"version"`
}

// NewSnapshot wraps sets with the current schema version.
func NewSnapshot(sets []LibrarySet) CacheSnapshot {
	return CacheSnapshot{Paths: sets, Version: SchemaVersion}
}

// Equal is version-sensitive and ignores the order of Paths.
func (c *CacheSnapshot) Equal(o *CacheSnapshot) bool {
	if c.Version != o.Version {
		return false
	}
	return sameSets(c.Paths, o.Paths)
}

func sameSets(a, b []LibrarySet) bool {
	index := func(sets []LibrarySet) map[uint64][]*LibrarySet {
		m := make(map[uint64][]*LibrarySet, len(sets))
		for i := range sets {
			s := &sets[i]
			h := s.Hash()
			dup := false
			for _, other := range m[h] {
				if other.Equal(s) {
					dup = true
					break
				}
			}
			if !dup {
				m[h] = append(m[h], s)
			}
		}
		return m
	}
	count := func(m map[uint64][]*LibrarySet) int {
		n := 0
		for _, v := range m {
			n += len(v)
		}
		return n
	}

	am, bm := index(a), index(b)
	if count(am) != count(bm) {
		return false
	}
	for h, sets := range am {
		for _, s := range sets {
			found := false
			for _, other := range bm[h] {
				if s.Equal(other) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
