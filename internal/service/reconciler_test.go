package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mirrorsync/mirrorsync/internal/logging"
	"github.com/mirrorsync/mirrorsync/pkg/refs"
)

type fakeSource struct {
	branches, tags []string
	err            error
}

func (f *fakeSource) Branches(context.Context) ([]string, error) { return f.branches, f.err }
func (f *fakeSource) Tags(context.Context) ([]string, error)     { return f.tags, f.err }

type fakeMirror struct {
	fakeSource
	lookups   []string
	deletions []string
	failRef   map[string]error
	failDel   map[string]error
}

func (f *fakeMirror) Ref(_ context.Context, kind refs.Kind, name string) (string, error) {
	f.lookups = append(f.lookups, kind.RefPath(name))
	if err := f.failRef[name]; err != nil {
		return "", err
	}
	return "sha-" + name, nil
}

func (f *fakeMirror) DeleteRef(_ context.Context, kind refs.Kind, name string) error {
	f.deletions = append(f.deletions, kind.RefPath(name))
	return f.failDel[name]
}

func TestExecuteDeletesObsoleteBranches(t *testing.T) {
	source := &fakeSource{branches: []string{"main", "release-1"}}
	mirror := &fakeMirror{fakeSource: fakeSource{branches: []string{"main", "release-1", "old-feature"}}}

	report, err := New(source, mirror, logging.NewNop()).WithDryRun(false).Execute(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"old-feature"}, report.ObsoleteBranches); diff != "" {
		t.Errorf("unexpected obsolete branches (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"heads/old-feature"}, mirror.deletions); diff != "" {
		t.Errorf("unexpected deletions (-want, +got):\n%s", diff)
	}
	if exp, act := 1, report.Count(ResultDeleted); exp != act {
		t.Errorf("expected %d deleted, got %d", exp, act)
	}
}

func TestExecuteNothingObsolete(t *testing.T) {
	source := &fakeSource{branches: []string{"main", "dev"}, tags: []string{"v1.0"}}
	mirror := &fakeMirror{fakeSource: fakeSource{branches: []string{"main"}, tags: nil}}

	report, err := New(source, mirror, logging.NewNop()).WithDryRun(false).Execute(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.ObsoleteBranches) != 0 || len(report.ObsoleteTags) != 0 {
		t.Fatalf("expected nothing obsolete, got %v %v", report.ObsoleteBranches, report.ObsoleteTags)
	}
	if len(mirror.lookups) != 0 || len(mirror.deletions) != 0 {
		t.Fatalf("expected no calls, got lookups %v deletions %v", mirror.lookups, mirror.deletions)
	}
}

func TestExecuteTagsBeforeBranches(t *testing.T) {
	source := &fakeSource{}
	mirror := &fakeMirror{fakeSource: fakeSource{branches: []string{"b2", "b1"}, tags: []string{"t1"}}}

	if _, err := New(source, mirror, logging.NewNop()).WithDryRun(false).Execute(t.Context()); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"tags/t1", "heads/b1", "heads/b2"}, mirror.deletions); diff != "" {
		t.Errorf("unexpected deletion order (-want, +got):\n%s", diff)
	}
}

func TestExecuteContinuesAfterFailure(t *testing.T) {
	source := &fakeSource{}
	mirror := &fakeMirror{
		fakeSource: fakeSource{branches: []string{"a", "b", "c", "d"}},
		failRef:    map[string]error{"a": errors.New("404 Not Found")},
		failDel:    map[string]error{"b": errors.New("403 Forbidden")},
	}

	var buf bytes.Buffer
	log := logging.NewLogger(logging.Config{Level: logging.Info, Output: &buf})

	report, err := New(source, mirror, log).WithDryRun(false).Execute(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"heads/a", "heads/b", "heads/c", "heads/d"}, mirror.lookups); diff != "" {
		t.Errorf("unexpected lookups (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"heads/b", "heads/c", "heads/d"}, mirror.deletions); diff != "" {
		t.Errorf("unexpected deletions (-want, +got):\n%s", diff)
	}

	results := map[string]Result{}
	for _, o := range report.Outcomes {
		results[o.Name] = o.Result
	}
	exp := map[string]Result{"a": ResultFailed, "b": ResultFailed, "c": ResultDeleted, "d": ResultDeleted}
	if diff := cmp.Diff(exp, results); diff != "" {
		t.Errorf("unexpected results (-want, +got):\n%s", diff)
	}

	out := buf.String()
	if !strings.Contains(out, "Failed to delete a: 404 Not Found") || !strings.Contains(out, "Failed to delete b: 403 Forbidden") {
		t.Errorf("expected failures to be logged, got:\n%s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("expected error level records, got:\n%s", out)
	}
}

func TestExecuteDryRun(t *testing.T) {
	source := &fakeSource{tags: []string{"v1.0"}}
	mirror := &fakeMirror{fakeSource: fakeSource{branches: []string{"stale"}, tags: []string{"v1.0", "v0.1"}}}

	var buf bytes.Buffer
	log := logging.NewLogger(logging.Config{Level: logging.Info, Output: &buf})

	report, err := New(source, mirror, log).Execute(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if len(mirror.deletions) != 0 {
		t.Fatalf("dry run must not delete, got %v", mirror.deletions)
	}
	if diff := cmp.Diff([]string{"tags/v0.1", "heads/stale"}, mirror.lookups); diff != "" {
		t.Errorf("unexpected lookups (-want, +got):\n%s", diff)
	}
	if exp, act := 2, report.Count(ResultDryRun); exp != act {
		t.Errorf("expected %d dry-run outcomes, got %d", exp, act)
	}
	if !strings.Contains(buf.String(), `"dry_run":true`) {
		t.Errorf("expected dry_run field in logs, got:\n%s", buf.String())
	}
}

func TestExecuteKeepPatterns(t *testing.T) {
	keep, err := refs.NewMatcher([]string{"release/*"})
	if err != nil {
		t.Fatal(err)
	}

	source := &fakeSource{}
	mirror := &fakeMirror{fakeSource: fakeSource{branches: []string{"release/1.0", "old"}}}

	report, err := New(source, mirror, logging.NewNop()).WithDryRun(false).WithKeep(keep).Execute(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"heads/old"}, mirror.deletions); diff != "" {
		t.Errorf("unexpected deletions (-want, +got):\n%s", diff)
	}
	if exp, act := 1, report.Count(ResultKept); exp != act {
		t.Errorf("expected %d kept, got %d", exp, act)
	}
}

func TestExecuteListingErrorsAreFatal(t *testing.T) {
	boom := errors.New("401 Unauthorized")

	tests := []struct {
		note   string
		source *fakeSource
		mirror *fakeMirror
	}{
		{
			note:   "source",
			source: &fakeSource{err: boom},
			mirror: &fakeMirror{fakeSource: fakeSource{branches: []string{"x"}}},
		},
		{
			note:   "mirror",
			source: &fakeSource{},
			mirror: &fakeMirror{fakeSource: fakeSource{branches: []string{"x"}, err: boom}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			_, err := New(tc.source, tc.mirror, logging.NewNop()).WithDryRun(false).Execute(t.Context())
			if !errors.Is(err, boom) {
				t.Fatalf("expected listing error, got %v", err)
			}
			if len(tc.mirror.lookups) != 0 || len(tc.mirror.deletions) != 0 {
				t.Fatal("no reference may be touched after a listing error")
			}
		})
	}
}

func TestExecuteProgress(t *testing.T) {
	source := &fakeSource{}
	mirror := &fakeMirror{fakeSource: fakeSource{branches: []string{"a"}}}

	var buf bytes.Buffer
	if _, err := New(source, mirror, logging.NewNop()).WithProgress(&buf).Execute(t.Context()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "pruning") {
		t.Errorf("expected progress output, got %q", buf.String())
	}
}

func TestReportWriteTable(t *testing.T) {
	r := &Report{Outcomes: []Outcome{
		{Kind: refs.Tag, Name: "v0.1", Result: ResultDeleted, SHA: "abc"},
		{Kind: refs.Branch, Name: "gone", Result: ResultFailed, Detail: "404 Not Found"},
	}}

	var buf bytes.Buffer
	if err := r.WriteTable(&buf); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"v0.1", "deleted", "gone", "failed", "404 Not Found"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("expected %q in table:\n%s", s, buf.String())
		}
	}

	buf.Reset()
	if err := (&Report{}).WriteTable(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for an empty report, got %q", buf.String())
	}
}
