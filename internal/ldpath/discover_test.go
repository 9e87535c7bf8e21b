package ldpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHost(t *testing.T, dirs []string, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for _, d := range dirs {
		require.NoError(t, fs.MkdirAll(d, 0755))
	}
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0644))
	}
	return fs
}

func TestParseConf(t *testing.T) {
	t.Parallel()

	fs := newHost(t, nil, map[string]string{
		"/etc/ld.so.conf": "# comment\n\ninclude ld.so.conf.d/*.conf\n/opt/vendor/lib\n",
		"/etc/ld.so.conf.d/b-nvidia.conf": "/usr/lib/nvidia\n",
		"/etc/ld.so.conf.d/a-local.conf":  "  /usr/local/lib  \n# /skipped\n",
		"/etc/ld.so.conf.d/ignored.txt":   "/not/included\n",
	})

	got := ParseConf(fs, "/etc/ld.so.conf", map[string]bool{})
	want := []string{"/usr/local/lib", "/usr/lib/nvidia", "/opt/vendor/lib"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseConf mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfAbsoluteIncludeAndCycle(t *testing.T) {
	t.Parallel()

	fs := newHost(t, nil, map[string]string{
		"/etc/ld.so.conf":        "include /etc/conf.d/*.conf\n/first\n",
		"/etc/conf.d/loop.conf":  "include /etc/ld.so.conf\n/second\n",
		"/etc/conf.d/other.conf": "include\n/third\n",
	})

	got := ParseConf(fs, "/etc/ld.so.conf", map[string]bool{})
	assert.Equal(t, []string{"/second", "/third", "/first"}, got)
}

func TestParseConfIncludeLikeDirectory(t *testing.T) {
	t.Parallel()

	fs := newHost(t, nil, map[string]string{
		"/etc/ld.so.conf": "/opt/includes\n",
	})
	assert.Equal(t, []string{"/opt/includes"}, ParseConf(fs, "/etc/ld.so.conf", map[string]bool{}))
}

func TestParseConfMissing(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ParseConf(memfs.New(), "/etc/ld.so.conf", map[string]bool{}))
}

func TestDiscoverOrder(t *testing.T) {
	t.Parallel()

	fs := newHost(t,
		[]string{"/override/a", "/usr/lib/nvidia", "/lib", "/usr/lib", "/usr/lib64", "/termux/lib", "/termux/usr/lib", "/termux/extra"},
		map[string]string{
			"/etc/ld.so.conf":        "/usr/lib/nvidia\n/does/not/exist\n",
			"/termux/etc/ld.so.conf": "/termux/extra\n",
		})

	got := Discover(Options{
		FS:            fs,
		LDLibraryPath: "/override/a::/override/missing:/usr/lib",
		Prefix:        "/termux",
	})

	want := []string{
		"/override/a",
		"/usr/lib",
		"/usr/lib/nvidia",
		"/termux/extra",
		"/termux/lib",
		"/termux/usr/lib",
		"/lib",
		"/usr/lib64",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverMissingConfTolerated(t *testing.T) {
	t.Parallel()

	fs := newHost(t, []string{"/usr/lib"}, nil)
	assert.Equal(t, []string{"/usr/lib"}, Discover(Options{FS: fs, Prefix: "/nowhere"}))
}

func TestDiscoverSkipsFiles(t *testing.T) {
	t.Parallel()

	fs := newHost(t, []string{"/lib"}, map[string]string{"/usr/lib": "not a directory"})
	assert.Equal(t, []string{"/lib"}, Discover(Options{FS: fs}))
}

func TestDiscoverExclude(t *testing.T) {
	t.Parallel()

	fs := newHost(t, []string{"/lib", "/usr/lib", "/usr/lib32", "/usr/lib/i386-linux-gnu"},
		map[string]string{"/etc/ld.so.conf": "/usr/lib32\n/usr/lib/i386-linux-gnu\n"})

	got := Discover(Options{FS: fs, Exclude: []string{"/usr/lib32", "*i386*"}})
	assert.Equal(t, []string{"/lib", "/usr/lib"}, got)
}

func TestDiscoverCustomConfPath(t *testing.T) {
	t.Parallel()

	fs := newHost(t, []string{"/custom/lib"}, map[string]string{"/cfg/ld.conf": "/custom/lib\n"})
	assert.Equal(t, []string{"/custom/lib"}, Discover(Options{FS: fs, ConfPath: "/cfg/ld.conf"}))
}

func TestDiscoverRelativeEntries(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "rel", "lib"), 0755))
	t.Chdir(base)

	got := Discover(Options{
		LDLibraryPath: "rel/lib:./rel/lib:rel/missing",
		ConfPath:      filepath.Join(base, "no-ld.so.conf"),
	})
	require.NotEmpty(t, got)
	assert.Equal(t, filepath.Join(base, "rel", "lib"), got[0])
	for _, dir := range got {
		assert.True(t, filepath.IsAbs(dir), "%q is not absolute", dir)
	}
	assert.NotContains(t, got, filepath.Join(base, "rel", "missing"))
}
