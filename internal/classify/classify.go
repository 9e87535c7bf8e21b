// Package classify matches shared object filenames against vendor rule sets.
//
// Every vendor profile has a generic rule list that decides whether a
// directory holds driver libraries at all, plus three refinement lists
// for GLX, CUDA and EGL. A file can land in more than one bucket.
package classify

import (
	"fmt"
	"regexp"
)

// Category names a classification bucket.
type Category string

const (
	Generic Category = "generic"
	GLX     Category = "glx"
	CUDA    Category = "cuda"
	EGL     Category = "egl"
)

// Categories lists the refinement buckets in the order they are evaluated.
var Categories = []Category{GLX, CUDA, EGL}

// Patterns holds uncompiled rule lists, as found in the settings file.
type Patterns struct {
	Generic []string `yaml:"generic,omitempty"`
	GLX     []string `yaml:"glx,omitempty"`
	CUDA    []string `yaml:"cuda,omitempty"`
	EGL     []string `yaml:"egl,omitempty"`
}

// IsEmpty reports whether no pattern is set.
func (p Patterns) IsEmpty() bool {
	return len(p.Generic) == 0 && len(p.GLX) == 0 && len(p.CUDA) == 0 && len(p.EGL) == 0
}

// RuleSet is a compiled set of rule lists.
type RuleSet struct {
	Generic []*regexp.Regexp
	GLX     []*regexp.Regexp
	CUDA    []*regexp.Regexp
	EGL     []*regexp.Regexp
}

// Rules returns the rule list of a bucket.
func (r RuleSet) Rules(c Category) []*regexp.Regexp {
	switch c {
	case Generic:
		return r.Generic
	case GLX:
		return r.GLX
	case CUDA:
		return r.CUDA
	case EGL:
		return r.EGL
	}
	return nil
}

// Classify returns every bucket whose rules match name, generic first.
// Buckets are independent: the generic gate applies per directory, not per file.
func (r RuleSet) Classify(name string) []Category {
	var out []Category
	for _, c := range append([]Category{Generic}, Categories...) {
		if Matches(name, r.Rules(c)) {
			out = append(out, c)
		}
	}
	return out
}

// Matches reports whether any rule matches name.
func Matches(name string, rules []*regexp.Regexp) bool {
	for _, re := range rules {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Compile compiles a list of patterns, failing on the first invalid one.
func Compile(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// CompilePatterns compiles all four lists of p.
func CompilePatterns(p Patterns) (RuleSet, error) {
	var (
		rs  RuleSet
		err error
	)
	if rs.Generic, err = Compile(p.Generic); err != nil {
		return RuleSet{}, err
	}
	if rs.GLX, err = Compile(p.GLX); err != nil {
		return RuleSet{}, err
	}
	if rs.CUDA, err = Compile(p.CUDA); err != nil {
		return RuleSet{}, err
	}
	if rs.EGL, err = Compile(p.EGL); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Extend returns a copy of r with the compiled extra patterns appended.
func (r RuleSet) Extend(extra Patterns) (RuleSet, error) {
	more, err := CompilePatterns(extra)
	if err != nil {
		return RuleSet{}, err
	}
	return RuleSet{
		Generic: append(append([]*regexp.Regexp(nil), r.Generic...), more.Generic...),
		GLX:     append(append([]*regexp.Regexp(nil), r.GLX...), more.GLX...),
		CUDA:    append(append([]*regexp.Regexp(nil), r.CUDA...), more.CUDA...),
		EGL:     append(append([]*regexp.Regexp(nil), r.EGL...), more.EGL...),
	}, nil
}
