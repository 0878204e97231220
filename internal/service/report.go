package service

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/mirrorsync/mirrorsync/pkg/refs"
)

// Result is what became of one obsolete reference.
type Result int

const (
	ResultDeleted Result = iota
	ResultDryRun
	ResultFailed
	ResultKept
)

func (r Result) String() string {
	switch r {
	case ResultDeleted:
		return "deleted"
	case ResultDryRun:
		return "dry_run"
	case ResultFailed:
		return "failed"
	case ResultKept:
		return "kept"
	default:
		return "unknown"
	}
}

// Outcome records what happened to one obsolete reference.
type Outcome struct {
	Kind   refs.Kind
	Name   string
	Result Result
	SHA    string // Object the reference pointed to, when it was found.
	Detail string // Error message, or the keep pattern that matched.
}

// RefNames holds the branch and tag names listed on one side.
type RefNames struct {
	Branches []string
	Tags     []string
}

// Report summarises a reconciliation pass.
type Report struct {
	Project          string
	DryRun           bool
	Source           RefNames
	Mirror           RefNames
	ObsoleteBranches []string
	ObsoleteTags     []string
	Outcomes         []Outcome
}

// Count returns the number of outcomes with the given result.
func (r *Report) Count(result Result) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Result == result {
			n++
		}
	}
	return n
}

// WriteTable renders the outcomes as a table. Nothing is written when there
// were no obsolete references.
func (r *Report) WriteTable(w io.Writer) error {
	if len(r.Outcomes) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Kind", "Reference", "Result", "SHA", "Detail")
	for _, o := range r.Outcomes {
		if err := table.Append([]string{o.Kind.String(), o.Name, o.Result.String(), o.SHA, o.Detail}); err != nil {
			return err
		}
	}
	return table.Render()
}
