// Package ldpath derives the ordered list of candidate library directories
// the dynamic loader would search on this host.
package ldpath

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	log "github.com/sirupsen/logrus"

	"glhost/internal/common"
)

// DefaultConfPath is the system loader configuration file.
const DefaultConfPath = "/etc/ld.so.conf"

// StandardDirs are searched last, in this order.
var StandardDirs = []string{"/lib", "/usr/lib", "/lib64", "/usr/lib64"}

// prefixDirs are appended under an alternate root prefix.
var prefixDirs = []string{"lib", "usr/lib", "lib64", "usr/lib64"}

// Options controls discovery. The zero value reads the real host filesystem.
type Options struct {
	// FS is the filesystem to read; nil means the host root.
	FS billy.Filesystem
	// LDLibraryPath is the loader override value, searched first.
	LDLibraryPath string
	// Prefix is an alternate installation root (Termux and similar).
	Prefix string
	// ConfPath defaults to DefaultConfPath.
	ConfPath string
	// Exclude holds gitignore-style patterns for directories to drop.
	Exclude []string
}

// Discover merges, in order: the override search path, the system loader
// configuration, the prefix configuration and its implied directories, then
// the standard directories. Only existing directories are kept, each once.
func Discover(opts Options) []string {
	fs := opts.FS
	if fs == nil {
		fs = osfs.New("/")
	}
	confPath := opts.ConfPath
	if confPath == "" {
		confPath = DefaultConfPath
	}

	var candidates []string
	candidates = append(candidates, common.SplitSearchPath(opts.LDLibraryPath)...)
	candidates = append(candidates, readConf(fs, confPath)...)
	if opts.Prefix != "" {
		candidates = append(candidates, readConf(fs, filepath.Join(opts.Prefix, DefaultConfPath))...)
		for _, d := range prefixDirs {
			candidates = append(candidates, filepath.Join(opts.Prefix, d))
		}
	}
	candidates = append(candidates, StandardDirs...)

	filter := NewDirFilter(opts.Exclude)
	var out []string
	for i, dir := range candidates {
		candidates[i] = common.AbsPath(dir)
	}
	for _, dir := range common.UniqueDirs(candidates) {
		if !isDir(fs, dir) {
			continue
		}
		if filter.Excluded(dir) {
			log.WithField("dir", dir).Debug("Search directory excluded")
			continue
		}
		out = append(out, dir)
	}
	log.WithField("count", len(out)).Debug("Discovered library search directories")
	return out
}

func readConf(fs billy.Filesystem, path string) []string {
	if _, err := fs.Stat(path); err != nil {
		log.WithField("path", path).Warn("Loader configuration file not found")
		return nil
	}
	return ParseConf(fs, path, make(map[string]bool))
}

// ParseConf reads an ld.so.conf style file. An include directive takes a
// glob relative to the including file's directory. Files already in seen are
// skipped, which stops include cycles.
func ParseConf(fs billy.Filesystem, path string, seen map[string]bool) []string {
	path = filepath.Clean(path)
	if seen[path] {
		return nil
	}
	seen[path] = true

	data, err := util.ReadFile(fs, path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("Cannot read loader configuration")
		return nil
	}

	var dirs []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "include"); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
			pattern := strings.TrimSpace(rest)
			if pattern == "" {
				continue
			}
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(filepath.Dir(path), pattern)
			}
			matches, err := util.Glob(fs, pattern)
			if err != nil {
				log.WithError(err).WithField("pattern", pattern).Warn("Invalid include pattern")
				continue
			}
			for _, m := range matches {
				dirs = append(dirs, ParseConf(fs, m, seen)...)
			}
			continue
		}
		dirs = append(dirs, line)
	}
	return dirs
}

func isDir(fs billy.Filesystem, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}
