// Package version contains all identifiable versioning info for
// describing the ecr-cleanup project.
package version

import (
	"context"
	"fmt"
	"strings"

	semver "github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"
	"github.com/google/go-github/v57/github"
)

var (
	projectName = "github.com/redhat-openshift-ecosystem/ecr-cleanup"
	version     = "unknown"
	commit      = "unknown"
)

var Version = VersionContext{
	Name:    projectName,
	Version: version,
	Commit:  commit,
}

// VersionClient is the part of the GitHub repositories API used to find the
// latest release.
type VersionClient interface {
	GetLatestRelease(ctx context.Context, owner string, repo string) (*github.RepositoryRelease, *github.Response, error)
}

type VersionContext struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func (vc *VersionContext) String() string {
	return fmt.Sprintf("%s <commit: %s>", vc.Version, vc.Commit)
}

// LatestReleasedVersion returns the latest GitHub release of the project
// when it differs from the running version, and nil otherwise.
func (vc *VersionContext) LatestReleasedVersion(ctx context.Context, svc VersionClient) (*github.RepositoryRelease, error) {
	logger := logr.FromContextOrDiscard(ctx)

	projectTokens := strings.Split(vc.Name, "/")
	if len(projectTokens) != 3 {
		return nil, fmt.Errorf("project name %q is not a github.com/owner/repo path", vc.Name)
	}
	owner := projectTokens[1]
	repo := projectTokens[2]

	latestRelease, resp, err := svc.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if resp != nil {
		logger.V(1).Info("Github responded with", "rate limit", resp.Rate.String())
	}
	currentVersion, err := semver.NewVersion(vc.Version)
	if err != nil {
		logger.Error(err, "Unable to determine current semver")
		return nil, err
	}
	latestVersion, err := semver.NewVersion(latestRelease.GetTagName())
	if err != nil {
		logger.Error(err, "Unable to determine latest semver")
		return nil, err
	}
	if !currentVersion.Equal(latestVersion) {
		return latestRelease, nil
	}
	return nil, nil
}
