// Package githubapi reads branch history through the GitHub REST API,
// for runs that should not clone the repository.
package githubapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/go-github/v57/github"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/log"
)

// maxPerPage is the largest page size the GitHub API accepts.
const maxPerPage = 100

// RepositoriesService is the subset of github.RepositoriesService in use.
type RepositoriesService interface {
	ListBranches(ctx context.Context, owner string, repo string, opts *github.BranchListOptions) ([]*github.Branch, *github.Response, error)
	ListCommits(ctx context.Context, owner string, repo string, opts *github.CommitsListOptions) ([]*github.RepositoryCommit, *github.Response, error)
}

// Client answers branch and log queries for a single repository.
type Client struct {
	repos RepositoriesService
	owner string
	name  string
}

// New returns a client for api.github.com, authenticated when token is set.
func New(token string) *Client {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return NewFromService(gh.Repositories)
}

// NewFromService returns a client backed by repos.
func NewFromService(repos RepositoriesService) *Client {
	return &Client{repos: repos}
}

// Clone selects the owner/name repository. Nothing is downloaded.
func (c *Client) Clone(ctx context.Context, repository string) error {
	owner, name, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("repository %q is not in owner/name form", repository)
	}
	c.owner, c.name = owner, name
	logr.FromContextOrDiscard(ctx).Info("reading history through the GitHub API", "owner", owner, "repository", name)
	return nil
}

// RemoteBranches lists every branch of the repository.
func (c *Client) RemoteBranches(ctx context.Context) ([]string, error) {
	logger := logr.FromContextOrDiscard(ctx)
	if c.owner == "" {
		return nil, fmt.Errorf("no repository selected")
	}

	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: maxPerPage}}
	var branches []string
	for {
		page, resp, err := c.repos.ListBranches(ctx, c.owner, c.name, opts)
		if err != nil {
			return nil, fmt.Errorf("could not list branches: %w", err)
		}
		for _, b := range page {
			branches = append(branches, b.GetName())
		}
		logger.V(log.TRC).Info("listed branch page", "page", opts.Page, "count", len(page))
		if resp == nil || resp.NextPage == 0 {
			return branches, nil
		}
		opts.Page = resp.NextPage
	}
}

// Log returns up to max commit SHAs reachable from branch, newest first.
func (c *Client) Log(ctx context.Context, branch string, max int) ([]string, error) {
	if c.owner == "" {
		return nil, fmt.Errorf("no repository selected")
	}

	perPage := max
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	opts := &github.CommitsListOptions{SHA: branch, ListOptions: github.ListOptions{PerPage: perPage}}
	commits := make([]string, 0, perPage)
	for len(commits) < max {
		page, resp, err := c.repos.ListCommits(ctx, c.owner, c.name, opts)
		if err != nil {
			return nil, fmt.Errorf("could not list commits of %s: %w", branch, err)
		}
		for _, commit := range page {
			if len(commits) == max {
				break
			}
			commits = append(commits, commit.GetSHA())
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}
