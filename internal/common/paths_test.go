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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSearchPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "/usr/lib", []string{"/usr/lib"}},
		{"multiple", "/a:/b:/c", []string{"/a", "/b", "/c"}},
		{"empty entries dropped", ":/a::/b:", []string{"/a", "/b"}},
		{"only separators", ":::", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitSearchPath(tt.input))
		})
	}
}

func TestJoinSearchPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", JoinSearchPath())
	assert.Equal(t, "/a", JoinSearchPath("/a"))
	assert.Equal(t, "/a:/b", JoinSearchPath("/a", "/b"))
}

func TestPrependSearchPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		first     string
		inherited string
		want      string
	}{
		{"no inherited value", "/cache/x/glx", "", "/cache/x/glx"},
		{"inherited value kept after", "/cache/x/glx", "/usr/lib", "/cache/x/glx:/usr/lib"},
		{"empty first", "", "/usr/lib", "/usr/lib"},
		{"both empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PrependSearchPath(tt.first, tt.inherited))
		})
	}
}

func TestUniqueDirs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, []string{}},
		{"no duplicates", []string{"/a", "/b"}, []string{"/a", "/b"}},
		{"first occurrence wins", []string{"/b", "/a", "/b"}, []string{"/b", "/a"}},
		{"cleaned before compare", []string{"/usr/lib/", "/usr//lib", "/usr/lib/."}, []string{"/usr/lib"}},
		{"empty entries dropped", []string{"", "/a", ""}, []string{"/a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, UniqueDirs(tt.input))
		})
	}
}

func TestAbsPath(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)

	assert.Equal(t, "", AbsPath(""))
	assert.Equal(t, "/usr/lib", AbsPath("/usr/lib/"))
	assert.Equal(t, filepath.Join(base, "drivers"), AbsPath("./drivers"))
	assert.Equal(t, filepath.Dir(base), AbsPath(".."))
}
