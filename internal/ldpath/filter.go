package ldpath

import (
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DirFilter drops search directories matching gitignore-style patterns,
// for example "/usr/lib32" or "*i386*". Negated patterns re-include.
type DirFilter struct {
	matcher *ignore.GitIgnore
}

// NewDirFilter compiles patterns. Blank lines and comments are ignored.
func NewDirFilter(patterns []string) *DirFilter {
	var lines []string
	for _, p := range patterns {
		if strings.TrimSpace(p) != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) == 0 {
		return &DirFilter{}
	}
	return &DirFilter{matcher: ignore.CompileIgnoreLines(lines...)}
}

// Excluded reports whether dir matches the patterns.
func (f *DirFilter) Excluded(dir string) bool {
	if f == nil || f.matcher == nil {
		return false
	}
	return f.matcher.MatchesPath(dir)
}
