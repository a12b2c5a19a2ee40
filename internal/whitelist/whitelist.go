// Package whitelist builds the set of image tags that must survive a
// cleanup, from the recent history of every branch of a repository.
package whitelist

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/go-logr/logr"

	cleanuperr "github.com/redhat-openshift-ecosystem/ecr-cleanup/errors"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/log"
)

// headRef is the symbolic remote HEAD. It duplicates another branch.
const headRef = "HEAD"

// History is the version control collaborator the whitelist is built from.
type History interface {
	// Clone makes the repository available to the other calls.
	Clone(ctx context.Context, repository string) error
	// RemoteBranches lists the branch names of the remote.
	RemoteBranches(ctx context.Context) ([]string, error)
	// Log returns up to max commit hashes of branch, most recent first.
	Log(ctx context.Context, branch string, max int) ([]string, error)
}

// Whitelist is a set of image tags.
type Whitelist map[string]struct{}

// New returns a whitelist holding tags.
func New(tags ...string) Whitelist {
	w := make(Whitelist, len(tags))
	for _, t := range tags {
		w.Add(t)
	}
	return w
}

func (w Whitelist) Add(tag string) {
	w[tag] = struct{}{}
}

// Has reports whether tag must be kept.
func (w Whitelist) Has(tag string) bool {
	_, ok := w[tag]
	return ok
}

func (w Whitelist) Len() int {
	return len(w)
}

// Tags returns the tags in lexical order.
func (w Whitelist) Tags() []string {
	tags := make([]string, 0, len(w))
	for t := range w {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// LatestTag is the tag of the currently promoted image of container.
func LatestTag(container string) string {
	return fmt.Sprintf("latest-%s", container)
}

// CommitTag is the tag CI gives the image of container built from commit on
// branch. Only the last path segment of the branch name is used.
func CommitTag(branch, commit, container string) string {
	return fmt.Sprintf("%s-%s-%s", path.Base(branch), commit, container)
}

// Build clones repository through history and returns the whitelist for
// containers: the latest tag of each container plus one tag per container
// for each of the last n commits of every remote branch. Any collaborator
// failure aborts the build.
func Build(ctx context.Context, history History, repository string, containers []string, n int) (Whitelist, error) {
	logger := logr.FromContextOrDiscard(ctx)

	w := New()
	for _, container := range containers {
		w.Add(LatestTag(container))
	}

	if err := history.Clone(ctx, repository); err != nil {
		return nil, cleanuperr.Collaborator("clone "+repository, err)
	}

	branches, err := history.RemoteBranches(ctx)
	if err != nil {
		return nil, cleanuperr.Collaborator("list remote branches", err)
	}
	branches = activeBranches(branches)
	logger.Info("found remote branches", "count", len(branches))

	for _, branch := range branches {
		commits, err := history.Log(ctx, branch, n)
		if err != nil {
			return nil, cleanuperr.Collaborator("log "+branch, err)
		}
		logger.V(log.DBG).Info("collected commits", "branch", branch, "count", len(commits))

		for _, commit := range commits {
			if commit == "" {
				continue
			}
			for _, container := range containers {
				w.Add(CommitTag(branch, commit, container))
			}
		}
	}

	logger.Info("tag whitelist built", "tags", w.Len())
	logger.V(log.TRC).Info("tag whitelist", "tags", w.Tags())
	return w, nil
}

// activeBranches drops the remote HEAD and empty names.
func activeBranches(branches []string) []string {
	active := make([]string, 0, len(branches))
	for _, b := range branches {
		if b == "" || b == headRef || path.Base(b) == headRef {
			continue
		}
		active = append(active, b)
	}
	return active
}
