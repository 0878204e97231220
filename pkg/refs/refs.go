// Package refs holds the small data model shared by the source and mirror
// clients: reference kinds, name sets and the obsolete-set computation.
package refs

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/gobwas/glob"
)

// Kind is the type of a git reference: a branch or a tag.
type Kind int

const (
	Branch Kind = iota
	Tag
)

func (k Kind) String() string {
	switch k {
	case Branch:
		return "branch"
	case Tag:
		return "tag"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ReferenceName returns the fully qualified git reference, e.g. refs/heads/main.
func (k Kind) ReferenceName(name string) plumbing.ReferenceName {
	if k == Tag {
		return plumbing.NewTagReferenceName(name)
	}
	return plumbing.NewBranchReferenceName(name)
}

// RefPath returns the reference without the leading "refs/", which is the
// form hosting APIs take, e.g. heads/main or tags/v1.0.
func (k Kind) RefPath(name string) string {
	return strings.TrimPrefix(k.ReferenceName(name).String(), "refs/")
}

// KindOf classifies a fully qualified reference. Anything that is neither a
// branch nor a tag (notes, pull refs, HEAD) is reported as not ok.
func KindOf(n plumbing.ReferenceName) (Kind, bool) {
	switch {
	case n.IsBranch():
		return Branch, true
	case n.IsTag():
		return Tag, true
	default:
		return 0, false
	}
}

// Set is an unordered collection of reference names of one kind.
type Set map[string]struct{}

// NewSet returns a set holding names; duplicates collapse.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Obsolete returns the names present on the mirror but absent from the
// source, sorted.
func Obsolete(source, mirror Set) []string {
	var out []string
	for n := range mirror {
		if !source.Has(n) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// Matcher reports whether a reference name matches one of a list of glob
// patterns. Path separators are significant: "release/*" matches
// "release/1.0" but not "release/1.0/hotfix"; use "release/**" for that.
// A nil Matcher matches nothing.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match returns the first pattern matching name.
func (m *Matcher) Match(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for i, g := range m.globs {
		if g.Match(name) {
			return m.patterns[i], true
		}
	}
	return "", false
}

// Len returns the number of compiled patterns. A nil Matcher has none.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.globs)
}
