package service

import (
	"context"
	"fmt"
	"io"

	"github.com/mirrorsync/mirrorsync/internal/logging"
	"github.com/mirrorsync/mirrorsync/internal/metrics"
	"github.com/mirrorsync/mirrorsync/internal/progress"
	"github.com/mirrorsync/mirrorsync/pkg/refs"
	pkgsync "github.com/mirrorsync/mirrorsync/pkg/sync"
)

// Reconciler prunes references from a mirror that no longer exist on the
// source. It compares names only: same-named references pointing at
// different commits are left alone. A Reconciler performs one pass per
// Execute call and keeps no state between calls.
type Reconciler struct {
	source   pkgsync.RefLister
	mirror   pkgsync.Mirror
	project  string
	keep     *refs.Matcher
	dryRun   bool
	log      *logging.Logger
	progress io.Writer
}

// New returns a reconciler that runs dry until told otherwise.
func New(source pkgsync.RefLister, mirror pkgsync.Mirror, logger *logging.Logger) *Reconciler {
	return &Reconciler{
		source: source,
		mirror: mirror,
		log:    logger,
		dryRun: true,
	}
}

// WithProject sets the project name used in log lines and the report.
func (r *Reconciler) WithProject(name string) *Reconciler {
	r.project = name
	return r
}

// WithDryRun controls whether obsolete references are deleted. When dry, each
// obsolete reference is still looked up and logged as deleted.
func (r *Reconciler) WithDryRun(dryRun bool) *Reconciler {
	r.dryRun = dryRun
	return r
}

// WithKeep shields mirror references matching m from deletion.
func (r *Reconciler) WithKeep(m *refs.Matcher) *Reconciler {
	r.keep = m
	return r
}

// WithProgress renders a progress bar over the deletion pass to w.
func (r *Reconciler) WithProgress(w io.Writer) *Reconciler {
	r.progress = w
	return r
}

// Execute runs a reconciliation pass: list both sides, compute the obsolete
// references and prune them, tags first. Errors while listing abort the pass
// and are returned; errors on individual references are logged and recorded
// in the report, and the pass carries on.
func (r *Reconciler) Execute(ctx context.Context) (*Report, error) {
	report := &Report{Project: r.project, DryRun: r.dryRun}

	var err error
	if report.Source.Branches, err = r.source.Branches(ctx); err != nil {
		return nil, fmt.Errorf("source branches: %w", err)
	}
	if report.Source.Tags, err = r.source.Tags(ctx); err != nil {
		return nil, fmt.Errorf("source tags: %w", err)
	}
	if report.Mirror.Branches, err = r.mirror.Branches(ctx); err != nil {
		return nil, fmt.Errorf("mirror branches: %w", err)
	}
	if report.Mirror.Tags, err = r.mirror.Tags(ctx); err != nil {
		return nil, fmt.Errorf("mirror tags: %w", err)
	}

	r.log.Infof("%s source project branches: %v", r.project, report.Source.Branches)
	r.log.Infof("%s source project tags: %v", r.project, report.Source.Tags)
	r.log.Infof("%s mirror project branches: %v", r.project, report.Mirror.Branches)
	r.log.Infof("%s mirror project tags: %v", r.project, report.Mirror.Tags)

	report.ObsoleteBranches = refs.Obsolete(refs.NewSet(report.Source.Branches...), refs.NewSet(report.Mirror.Branches...))
	report.ObsoleteTags = refs.Obsolete(refs.NewSet(report.Source.Tags...), refs.NewSet(report.Mirror.Tags...))

	r.log.Infof("Obsolete branches: %v", report.ObsoleteBranches)
	r.log.Infof("Obsolete tags: %v", report.ObsoleteTags)

	r.observe(report)

	var bar *progress.Bar
	if total := len(report.ObsoleteBranches) + len(report.ObsoleteTags); r.progress != nil && total > 0 {
		bar = progress.New(r.progress, total, "pruning")
		defer bar.Finish()
	}

	r.prune(ctx, refs.Tag, report.ObsoleteTags, report, bar)
	r.prune(ctx, refs.Branch, report.ObsoleteBranches, report, bar)

	return report, nil
}

func (r *Reconciler) prune(ctx context.Context, kind refs.Kind, names []string, report *Report, bar *progress.Bar) {
	for _, name := range names {
		outcome := r.pruneOne(ctx, kind, name)
		report.Outcomes = append(report.Outcomes, outcome)
		metrics.RefDeletions.WithLabelValues(kind.String(), outcome.Result.String()).Inc()
		bar.Add(1)
	}
}

func (r *Reconciler) pruneOne(ctx context.Context, kind refs.Kind, name string) Outcome {
	log := r.log.With("kind", kind.String()).With("ref", name)
	outcome := Outcome{Kind: kind, Name: name}

	if pattern, ok := r.keep.Match(name); ok {
		log.Infof("Keeping obsolete %s %s: matches %q", kind, name, pattern)
		outcome.Result = ResultKept
		outcome.Detail = pattern
		return outcome
	}

	sha, err := r.mirror.Ref(ctx, kind, name)
	if err == nil && !r.dryRun {
		err = r.mirror.DeleteRef(ctx, kind, name)
	}
	if err != nil {
		log.Errorf("Failed to delete %s: %v", name, err)
		outcome.Result = ResultFailed
		outcome.Detail = err.Error()
		return outcome
	}

	outcome.SHA = sha
	if r.dryRun {
		log.With("dry_run", true).Infof("Deleted obsolete %s", name)
		outcome.Result = ResultDryRun
		return outcome
	}

	log.Infof("Deleted obsolete %s", name)
	outcome.Result = ResultDeleted
	return outcome
}

func (*Reconciler) observe(report *Report) {
	metrics.Refs.WithLabelValues("source", refs.Branch.String()).Set(float64(len(report.Source.Branches)))
	metrics.Refs.WithLabelValues("source", refs.Tag.String()).Set(float64(len(report.Source.Tags)))
	metrics.Refs.WithLabelValues("mirror", refs.Branch.String()).Set(float64(len(report.Mirror.Branches)))
	metrics.Refs.WithLabelValues("mirror", refs.Tag.String()).Set(float64(len(report.Mirror.Tags)))
	metrics.ObsoleteRefs.WithLabelValues(refs.Branch.String()).Set(float64(len(report.ObsoleteBranches)))
	metrics.ObsoleteRefs.WithLabelValues(refs.Tag.String()).Set(float64(len(report.ObsoleteTags)))
}
