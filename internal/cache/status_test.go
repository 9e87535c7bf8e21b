package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glhost/internal/classify"
	"glhost/internal/storage"
)

func TestInspectMissing(t *testing.T) {
	t.Parallel()

	st := Inspect(filepath.Join(t.TempDir(), "glhost"), nil)
	assert.False(t, st.Exists)
	assert.Error(t, st.SnapshotErr)
	assert.Contains(t, st.Format(false), "not built")
}

func TestInspectBuilt(t *testing.T) {
	t.Parallel()

	set := driverDir(t, map[string]classify.Category{
		"libFoo_nvidia.so.1": classify.Generic,
		"libGLX_nvidia.so.1": classify.GLX,
		"libcuda.so.1":       classify.CUDA,
	})
	snap := storage.NewSnapshot([]storage.LibrarySet{set})
	root := filepath.Join(t.TempDir(), "glhost")
	_, err := NewBuilder(&recordingPatcher{}, classify.NVIDIA()).Rebuild(context.Background(), snap, root)
	require.NoError(t, err)

	st := Inspect(root, &snap)
	require.NoError(t, st.SnapshotErr)
	assert.True(t, st.Exists)
	assert.True(t, st.UpToDate)
	assert.Equal(t, storage.SchemaVersion, st.Version)
	require.Len(t, st.Entries, 1)
	e := st.Entries[0]
	assert.Equal(t, set.Path, e.Source)
	assert.Equal(t, HashDirName(set.Path), e.Hash)
	assert.True(t, e.Present)
	assert.Equal(t, 1, e.Generic)
	assert.Equal(t, 1, e.GLX)
	assert.Equal(t, 1, e.CUDA)
	assert.Equal(t, 0, e.EGL)

	out := st.Format(true)
	assert.Contains(t, out, "up to date")
	assert.Contains(t, out, set.Path)
	assert.Contains(t, out, "LD_LIBRARY_PATH: ")

	// a size change on the host makes the cache stale
	require.NoError(t, os.Chmod(set.Generic[0].Path, 0644))
	require.NoError(t, os.WriteFile(set.Generic[0].Path, []byte("a longer driver build"), 0644))
	changed := storage.NewSnapshot([]storage.LibrarySet{set})
	info, err := os.Stat(set.Generic[0].Path)
	require.NoError(t, err)
	changed.Paths[0].Generic = []storage.LibraryRecord{storage.NewLibraryRecord(set.Path, set.Generic[0].Name, info)}

	st = Inspect(root, &changed)
	assert.False(t, st.UpToDate)
	assert.Contains(t, st.Format(true), "stale")
}
