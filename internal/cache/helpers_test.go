package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"glhost/internal/classify"
	"glhost/internal/storage"
)

type patchCall struct {
	DestDir string
	Runpath string
	Names   []string
}

// recordingPatcher copies libraries like the real engine but only records
// the runpath instead of running a tool.
type recordingPatcher struct {
	mu    sync.Mutex
	calls []patchCall
	fail  error
}

func (p *recordingPatcher) CopyAndPatch(_ context.Context, libs []storage.LibraryRecord, destDir, runpath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	call := patchCall{DestDir: destDir, Runpath: runpath}
	for _, lib := range libs {
		data, err := os.ReadFile(lib.Path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(destDir, lib.Name), data, 0644); err != nil {
			return err
		}
		call.Names = append(call.Names, lib.Name)
	}
	p.calls = append(p.calls, call)
	return nil
}

func (p *recordingPatcher) Calls() []patchCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]patchCall(nil), p.calls...)
}

var errInjected = errors.New("injected failure")

// driverDir creates a host driver directory with the given files and returns its snapshot set.
func driverDir(t *testing.T, files map[string]classify.Category) storage.LibrarySet {
	t.Helper()
	dir := t.TempDir()
	set := storage.LibrarySet{Path: dir}
	for name, c := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("ELF "+name), 0444))
		info, err := os.Stat(path)
		require.NoError(t, err)
		set.Add(c, storage.NewLibraryRecord(dir, name, info))
	}
	return set
}

// treeContents maps every regular file under root to its content.
func treeContents(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func stagingDirs(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Dir(root))
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if isStagingName(root, e.Name()) {
			out = append(out, e.Name())
		}
	}
	return out
}
