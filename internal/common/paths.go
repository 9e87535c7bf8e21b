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

package common

import (
	"path/filepath"
	"strings"
)

// SearchPathSeparator separates entries of a loader search path string.
const SearchPathSeparator = ":"

// SplitSearchPath splits a colon-separated search path, dropping empty entries
func SplitSearchPath(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(value, SearchPathSeparator) {
		if entry == "" {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// JoinSearchPath joins directories into a colon-separated search path
func JoinSearchPath(dirs ...string) string {
	return strings.Join(dirs, SearchPathSeparator)
}

// PrependSearchPath puts first in front of inherited.
// An empty inherited value yields first unchanged, so no trailing separator
// (which the loader would read as the current directory) is produced.
func PrependSearchPath(first, inherited string) string {
	if inherited == "" {
		return first
	}
	if first == "" {
		return inherited
	}
	return first + SearchPathSeparator + inherited
}

// AbsPath resolves p against the working directory. On failure the cleaned
// path is returned. An empty path stays empty.
func AbsPath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// UniqueDirs cleans each directory and removes duplicates, keeping the first occurrence
func UniqueDirs(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" {
			continue
		}
		d = filepath.Clean(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
