// Package sync defines the contracts between the reconciler and the hosting
// platforms it talks to. The source of truth only needs to list references;
// the mirror additionally looks them up and deletes them.
//
// Implementations are not required to be thread-safe: a reconciliation run
// is strictly sequential.
package sync

import (
	"context"

	"github.com/mirrorsync/mirrorsync/pkg/refs"
)

// RefLister lists the reference names of one repository.
type RefLister interface {
	// Branches returns the names of the branches to compare. Mirrors must
	// leave out branches that may never be deleted, such as protected ones.
	Branches(ctx context.Context) ([]string, error)

	// Tags returns the names of all tags.
	Tags(ctx context.Context) ([]string, error)
}

// Mirror is a repository whose obsolete references can be pruned.
type Mirror interface {
	RefLister

	// Ref looks up a reference and returns the object it points to. An error
	// means the reference cannot be pruned, e.g. it is already gone.
	Ref(ctx context.Context, kind refs.Kind, name string) (string, error)

	// DeleteRef removes a reference.
	DeleteRef(ctx context.Context, kind refs.Kind, name string) error
}
