package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-github/v57/github"
	"github.com/spf13/cobra"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/version"
)

func versionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of ecr-cleanup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version.String())

			if checkLatest, _ := cmd.Flags().GetBool("check-latest"); checkLatest {
				client := github.NewClient(&http.Client{
					// timeout in 1s in case Github is slow to respond
					Timeout: time.Second * 1,
				})
				checkForNewerReleaseVersion(cmd, client.Repositories)
			}
			return nil
		},
	}

	versionCmd.Flags().Bool("check-latest", false, "Also query GitHub for a newer release.")

	return versionCmd
}

// checkForNewerReleaseVersion checks if there is a newer release available
func checkForNewerReleaseVersion(cmd *cobra.Command, svc version.VersionClient) {
	logger := logr.FromContextOrDiscard(cmd.Context())

	latestRelease, err := version.Version.LatestReleasedVersion(cmd.Context(), svc)
	if err != nil {
		logger.Error(err, "Unable to determine if running the latest release")
		return
	}
	if latestRelease != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "a newer release %s is available at %s\n", latestRelease.GetTagName(), latestRelease.GetHTMLURL())
	}
}
