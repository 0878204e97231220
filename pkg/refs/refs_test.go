package refs

import (
	"math/rand/v2"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-cmp/cmp"
)

func TestObsolete(t *testing.T) {
	tests := []struct {
		note   string
		source []string
		mirror []string
		exp    []string
	}{
		{
			note:   "extra mirror branch",
			source: []string{"main", "release-1"},
			mirror: []string{"main", "release-1", "old-feature"},
			exp:    []string{"old-feature"},
		},
		{
			note:   "empty mirror",
			source: []string{"v1.0"},
			mirror: nil,
			exp:    nil,
		},
		{
			note:   "mirror subset of source",
			source: []string{"main", "dev", "release-1"},
			mirror: []string{"dev", "main"},
			exp:    nil,
		},
		{
			note:   "empty source",
			source: nil,
			mirror: []string{"b", "a"},
			exp:    []string{"a", "b"},
		},
		{
			note:   "duplicates collapse",
			source: []string{"main"},
			mirror: []string{"x", "x", "main"},
			exp:    []string{"x"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			act := Obsolete(NewSet(tc.source...), NewSet(tc.mirror...))
			if diff := cmp.Diff(tc.exp, act); diff != "" {
				t.Fatalf("unexpected obsolete set (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestObsoleteIndependentOfOrder(t *testing.T) {
	source := []string{"main", "a", "b", "c", "d"}
	mirror := []string{"main", "a", "x", "y", "c", "z"}
	exp := Obsolete(NewSet(source...), NewSet(mirror...))

	r := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		r.Shuffle(len(source), func(i, j int) { source[i], source[j] = source[j], source[i] })
		r.Shuffle(len(mirror), func(i, j int) { mirror[i], mirror[j] = mirror[j], mirror[i] })

		if diff := cmp.Diff(exp, Obsolete(NewSet(source...), NewSet(mirror...))); diff != "" {
			t.Fatalf("order changed result (-want, +got):\n%s", diff)
		}
	}
}

func TestKindRefPath(t *testing.T) {
	if exp, act := "heads/feature/x", Branch.RefPath("feature/x"); exp != act {
		t.Errorf("expected %q, got %q", exp, act)
	}
	if exp, act := "tags/v1.0", Tag.RefPath("v1.0"); exp != act {
		t.Errorf("expected %q, got %q", exp, act)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name plumbing.ReferenceName
		kind Kind
		ok   bool
	}{
		{name: "refs/heads/main", kind: Branch, ok: true},
		{name: "refs/tags/v1.0", kind: Tag, ok: true},
		{name: "refs/notes/commits", ok: false},
		{name: "HEAD", ok: false},
	}

	for _, tc := range tests {
		kind, ok := KindOf(tc.name)
		if ok != tc.ok || (ok && kind != tc.kind) {
			t.Errorf("%s: expected (%v, %v), got (%v, %v)", tc.name, tc.kind, tc.ok, kind, ok)
		}
	}
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"release/*", " ", "gh-pages", "keep/**"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 patterns, got %d", m.Len())
	}

	tests := map[string]string{
		"release/1.0":        "release/*",
		"release/1.0/hotfix": "",
		"gh-pages":           "gh-pages",
		"keep/a/b/c":         "keep/**",
		"old-feature":        "",
	}
	for name, exp := range tests {
		p, ok := m.Match(name)
		if ok != (exp != "") || p != exp {
			t.Errorf("%s: expected match %q, got %q (%v)", name, exp, p, ok)
		}
	}

	var nilMatcher *Matcher
	if _, ok := nilMatcher.Match("anything"); ok {
		t.Error("nil matcher should match nothing")
	}

	if _, err := NewMatcher([]string{"[unterminated"}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
