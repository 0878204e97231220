// Package gitlab reads the branch and tag names of the authoritative project
// from the GitLab API.
package gitlab

import (
	"context"
	"fmt"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"
)

const perPage = 100

type Client struct {
	api *gl.Client
}

// New returns a client for the GitLab instance at baseURL. The "/api/v4"
// suffix is added when missing. Requests are not retried: a failed listing
// aborts the run.
func New(baseURL, token string, httpClient *http.Client) (*Client, error) {
	opts := []gl.ClientOptionFunc{
		gl.WithBaseURL(baseURL),
		gl.WithoutRetries(),
	}
	if httpClient != nil {
		opts = append(opts, gl.WithHTTPClient(httpClient))
	}

	api, err := gl.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return &Client{api: api}, nil
}

// Project resolves the project with the given ID (or URL-encoded path).
func (c *Client) Project(ctx context.Context, id string) (*Project, error) {
	p, _, err := c.api.Projects.GetProject(id, nil, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("gitlab: get project %s: %w", id, err)
	}
	return &Project{api: c.api, id: p.ID, path: p.PathWithNamespace}, nil
}

// Project is a handle on a resolved GitLab project.
type Project struct {
	api  *gl.Client
	id   int
	path string
}

func (p *Project) String() string {
	return p.path
}

// Branches lists the names of all branches, walking every page.
func (p *Project) Branches(ctx context.Context) ([]string, error) {
	var names []string
	opts := &gl.ListBranchesOptions{ListOptions: gl.ListOptions{PerPage: perPage, Page: 1}}
	for {
		branches, resp, err := p.api.Branches.ListBranches(p.id, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("gitlab: list branches of %s: %w", p.path, err)
		}
		for _, b := range branches {
			names = append(names, b.Name)
		}
		if resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

// Tags lists the names of all tags, walking every page.
func (p *Project) Tags(ctx context.Context) ([]string, error) {
	var names []string
	opts := &gl.ListTagsOptions{ListOptions: gl.ListOptions{PerPage: perPage, Page: 1}}
	for {
		tags, resp, err := p.api.Tags.ListTags(p.id, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("gitlab: list tags of %s: %w", p.path, err)
		}
		for _, t := range tags {
			names = append(names, t.Name)
		}
		if resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}
