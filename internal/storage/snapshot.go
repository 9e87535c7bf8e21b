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
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"

	"glhost/internal/common"
)

// EncodeSnapshot serializes s as compact JSON. Empty buckets are written
// as [] so the output does not depend on how the set was built.
func EncodeSnapshot(s CacheSnapshot) ([]byte, error) {
	out := CacheSnapshot{Version: s.Version, Paths: make([]LibrarySet, len(s.Paths))}
	for i, set := range s.Paths {
		out.Paths[i] = LibrarySet{
			GLX:     nonNil(set.GLX),
			CUDA:    nonNil(set.CUDA),
			Generic: nonNil(set.Generic),
			EGL:     nonNil(set.EGL),
			Path:    set.Path,
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func nonNil(r []LibraryRecord) []LibraryRecord {
	if r == nil {
		return []LibraryRecord{}
	}
	return r
}

// DecodeSnapshot parses data. Snapshots written with another schema version
// are rejected with ErrSnapshotVersion before their body is interpreted.
func DecodeSnapshot(data []byte) (CacheSnapshot, error) {
	var header struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return CacheSnapshot{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if header.Version == nil {
		return CacheSnapshot{}, fmt.Errorf("%w: missing version", common.ErrSnapshotVersion)
	}
	if *header.Version != SchemaVersion {
		return CacheSnapshot{}, fmt.Errorf("%w: got %d, want %d", common.ErrSnapshotVersion, *header.Version, SchemaVersion)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var s CacheSnapshot
	if err := dec.Decode(&s); err != nil {
		return CacheSnapshot{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if s.Paths == nil {
		return CacheSnapshot{}, fmt.Errorf("failed to parse snapshot: missing paths")
	}
	return s, nil
}

// ReadSnapshot loads a snapshot file.
func ReadSnapshot(path string) (CacheSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CacheSnapshot{}, err
	}
	return DecodeSnapshot(data)
}

// WriteSnapshot atomically replaces path with the encoded snapshot.
func WriteSnapshot(path string, s CacheSnapshot) error {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// IsUpToDate reports whether the snapshot stored at path matches fresh.
// Absent, unreadable or incompatible files count as stale.
func IsUpToDate(fresh CacheSnapshot, path string) bool {
	stored, err := ReadSnapshot(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Debug("Stored snapshot unusable, treating cache as stale")
		}
		return false
	}
	return fresh.Equal(&stored)
}
