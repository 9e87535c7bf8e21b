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

// Package patch copies driver libraries and rewrites the runpath of the copies.
package patch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"glhost/internal/common"
	"glhost/internal/storage"
	"glhost/internal/util"
)

// Engine runs the external runpath rewriting tool.
type Engine struct {
	// Tool is the path of the patch tool, resolved once at startup.
	Tool string
}

// New returns an Engine using tool.
func New(tool string) *Engine {
	return &Engine{Tool: tool}
}

// Unavailable stands in for the engine when no usable patch tool was found.
// Reusing an up-to-date cache never patches, so only a rebuild fails, with Err.
type Unavailable struct {
	Err error
}

// CopyAndPatch returns u.Err for any non-empty batch.
func (u Unavailable) CopyAndPatch(_ context.Context, libs []storage.LibraryRecord, _, _ string) error {
	if len(libs) == 0 {
		return nil
	}
	return u.Err
}

// CopyAndPatch copies every library into destDir under its base name, makes
// each copy owner-writable, then runs the tool once over the whole batch:
//
//	<tool> --set-rpath <runpath> <copy>...
//
// A non-zero exit fails the whole batch with ErrPatchFailed. Sources are
// never modified.
func (e *Engine) CopyAndPatch(ctx context.Context, libs []storage.LibraryRecord, destDir, runpath string) error {
	if len(libs) == 0 {
		return nil
	}

	copies := make([]string, 0, len(libs))
	for _, lib := range libs {
		dest := filepath.Join(destDir, filepath.Base(lib.Path))
		log.WithFields(log.Fields{"src": lib.Path, "dest": dest}).Debug("Copying library")
		if err := copyFile(lib.Path, dest); err != nil {
			return err
		}
		copies = append(copies, dest)
	}

	args := append([]string{"--set-rpath", runpath}, copies...)
	log.WithFields(log.Fields{"tool": e.Tool, "runpath": runpath, "files": len(copies)}).Debug("Patching libraries")
	if _, err := util.RunTool(ctx, e.Tool, args...); err != nil {
		var exitErr *util.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s: %w", common.ErrPatchFailed, destDir, exitErr)
		}
		return fmt.Errorf("%w: %w", common.ErrPatchFailed, err)
	}
	return nil
}

// copyFile copies src to dest, keeping the source mode plus owner write.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	mode := info.Mode().Perm() | 0200

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	// OpenFile applies the umask; set the mode explicitly.
	if err := os.Chmod(dest, mode); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", dest, err)
	}
	return nil
}
