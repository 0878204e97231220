// Package gitremote reads branch and tag names from any git remote by asking
// it for its advertised references, the way `git ls-remote` does. Nothing is
// cloned and no objects are transferred.
package gitremote

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp/capability"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/mirrorsync/mirrorsync/internal/config"
	"github.com/mirrorsync/mirrorsync/pkg/refs"
)

func init() {
	// For Azure DevOps compatibility. More details: https://github.com/go-git/go-git/issues/64
	transport.UnsupportedCapabilities = []capability.Capability{
		capability.ThinPack,
	}
}

// Remote lists references of a single git remote. The listing is done once
// and reused for both Branches and Tags; a Remote is meant for one run.
type Remote struct {
	url    string
	auth   transport.AuthMethod
	listed bool
	names  map[refs.Kind][]string
}

func New(cfg config.Git) *Remote {
	return &Remote{url: cfg.URL, auth: authFromConfig(cfg)}
}

func (r *Remote) String() string {
	return r.url
}

func (r *Remote) Branches(ctx context.Context) ([]string, error) {
	if err := r.list(ctx); err != nil {
		return nil, err
	}
	return r.names[refs.Branch], nil
}

func (r *Remote) Tags(ctx context.Context) ([]string, error) {
	if err := r.list(ctx); err != nil {
		return nil, err
	}
	return r.names[refs.Tag], nil
}

func (r *Remote) list(ctx context.Context) error {
	if r.listed {
		return nil
	}

	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{r.url},
	})

	advertised, err := remote.ListContext(ctx, &git.ListOptions{
		Auth:          r.auth,
		PeelingOption: git.IgnorePeeled,
	})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		advertised, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("git: list references of %s: %w", r.url, err)
	}

	r.names = namesByKind(advertised)
	r.listed = true
	return nil
}

// namesByKind groups the short names of branch and tag references. Symbolic
// references (HEAD) and other namespaces are skipped.
func namesByKind(advertised []*plumbing.Reference) map[refs.Kind][]string {
	names := map[refs.Kind][]string{}
	for _, ref := range advertised {
		if ref.Type() != plumbing.HashReference {
			continue
		}
		kind, ok := refs.KindOf(ref.Name())
		if !ok {
			continue
		}
		names[kind] = append(names[kind], ref.Name().Short())
	}
	return names
}
