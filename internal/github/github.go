// Package github is the mirror side of a reconciliation: it lists the branch
// and tag names of a GitHub repository and deletes references from it.
package github

import (
	"cmp"
	"context"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v75/github"

	"github.com/mirrorsync/mirrorsync/internal/config"
	"github.com/mirrorsync/mirrorsync/pkg/refs"
)

const perPage = 100

type Client struct {
	api *gh.Client
}

// New returns a GitHub client authenticated with the configured GitHub App
// installation if there is one, or with the personal access token otherwise.
// httpClient may be nil.
func New(cfg config.GitHub, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var api *gh.Client
	if cfg.App.Configured() {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		tr, err := appTransport(base, cfg.App, cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("github app: %w", err)
		}
		api = gh.NewClient(&http.Client{Transport: tr, Timeout: httpClient.Timeout})
	} else {
		api = gh.NewClient(httpClient).WithAuthToken(cfg.Token)
	}

	if cfg.APIURL != "" {
		var err error
		api, err = api.WithEnterpriseURLs(cfg.APIURL, cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("github: api url: %w", err)
		}
	}

	return &Client{api: api}, nil
}

// Repository resolves owner/name. The requested names are kept when the
// response leaves them out.
func (c *Client) Repository(ctx context.Context, owner, name string) (*Repository, error) {
	repo, _, err := c.api.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("github: get repository %s/%s: %w", owner, name, err)
	}
	return &Repository{
		api:   c.api,
		owner: cmp.Or(repo.GetOwner().GetLogin(), owner),
		name:  cmp.Or(repo.GetName(), name),
	}, nil
}

// Repository is a handle on a resolved GitHub repository.
type Repository struct {
	api   *gh.Client
	owner string
	name  string
}

func (r *Repository) String() string {
	return r.owner + "/" + r.name
}

// Branches lists the names of all unprotected branches. Protected branches
// are left out so that they can never be considered for deletion.
func (r *Repository) Branches(ctx context.Context) ([]string, error) {
	var names []string
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		branches, resp, err := r.api.Repositories.ListBranches(ctx, r.owner, r.name, opts)
		if err != nil {
			return nil, fmt.Errorf("github: list branches of %s: %w", r, err)
		}
		for _, b := range branches {
			if !b.GetProtected() {
				names = append(names, b.GetName())
			}
		}
		if resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

func (r *Repository) Tags(ctx context.Context) ([]string, error) {
	var names []string
	opts := &gh.ListOptions{PerPage: perPage}
	for {
		tags, resp, err := r.api.Repositories.ListTags(ctx, r.owner, r.name, opts)
		if err != nil {
			return nil, fmt.Errorf("github: list tags of %s: %w", r, err)
		}
		for _, t := range tags {
			names = append(names, t.GetName())
		}
		if resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

// Ref looks up a reference and returns the SHA it points to.
func (r *Repository) Ref(ctx context.Context, kind refs.Kind, name string) (string, error) {
	ref, _, err := r.api.Git.GetRef(ctx, r.owner, r.name, kind.RefPath(name))
	if err != nil {
		return "", fmt.Errorf("get %s: %w", kind.RefPath(name), err)
	}
	return ref.GetObject().GetSHA(), nil
}

func (r *Repository) DeleteRef(ctx context.Context, kind refs.Kind, name string) error {
	if _, err := r.api.Git.DeleteRef(ctx, r.owner, r.name, kind.RefPath(name)); err != nil {
		return fmt.Errorf("delete %s: %w", kind.RefPath(name), err)
	}
	return nil
}
