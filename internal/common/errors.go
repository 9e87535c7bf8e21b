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

import "errors"

var (
	ErrPatchFailed        = errors.New("patch tool failed")
	ErrPatchToolNotFound  = errors.New("patch tool not found")
	ErrNoDriverLibraries  = errors.New("no driver libraries found in search paths")
	ErrEmptySearchPath    = errors.New("cache produced an empty library search path")
	ErrSnapshotVersion    = errors.New("snapshot version mismatch")
	ErrConflictingArgs    = errors.New("--print-ld-library-path and a program are mutually exclusive")
	ErrMissingProgram     = errors.New("a program to run is required")
)
