package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	spfviper "github.com/spf13/viper"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/artifacts"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/cleanup"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/config"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/formatters"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/viper"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/version"
)

// runFunc executes a cleanup with the configuration held by vcfg. A nil
// formatter writes the report as JSON.
type runFunc = func(ctx context.Context, vcfg *spfviper.Viper, formatter cleanup.ReportFormatter) (*cleanup.RunReport, error)

func defaultRunFunc(ctx context.Context, vcfg *spfviper.Viper, formatter cleanup.ReportFormatter) (*cleanup.RunReport, error) {
	runner := cleanup.NewRunner()
	if formatter != nil {
		runner.Formatter = formatter
	}
	return runner.Run(ctx, vcfg)
}

func runCmd(runner runFunc) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Delete the images no recent commit refers to",
		Long: "This command provisions the deploy key and AWS profile, builds the tag whitelist from the\n" +
			"latest commits of every branch and deletes all other images from the ECR repository.\n" +
			"The required settings are read from the environment: " + fmt.Sprint(config.RequiredEnv),
		Args:    cobra.NoArgs,
		PreRunE: rejectEmptyFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunE(cmd, runner)
		},
	}

	viper := viper.Instance()
	flags := runCmd.Flags()

	flags.String("ssh-dir", "", "Directory the deploy key is installed to. (env: ECRC_SSH_DIR)")
	_ = viper.BindPFlag(config.KeySSHDir, flags.Lookup("ssh-dir"))

	flags.String("aws-dir", "", "Directory the AWS credentials file is written to. (env: ECRC_AWS_DIR)")
	_ = viper.BindPFlag(config.KeyAWSDir, flags.Lookup("aws-dir"))

	flags.String("git-host", "", "Host serving the source repository over SSH. (env: ECRC_GIT_HOST)")
	_ = viper.BindPFlag(config.KeyGitHost, flags.Lookup("git-host"))

	flags.String("vcs", "", "History backend, one of git or github. (env: ECRC_VCS)")
	_ = viper.BindPFlag(config.KeyVCS, flags.Lookup("vcs"))

	flags.String("workdir", "", "Directory the temporary clone is created in. (env: ECRC_WORKDIR)")
	_ = viper.BindPFlag(config.KeyWorkDir, flags.Lookup("workdir"))

	flags.String("artifacts", "", "Where the cleanup report will be written. (env: ECRC_ARTIFACTS)")
	_ = viper.BindPFlag("artifacts", flags.Lookup("artifacts"))

	flags.StringP("output", "o", "", "Format of the report written to the artifacts directory, one of "+
		strings.Join(formatters.Names(), ", ")+". (env: ECRC_OUTPUT)")
	_ = viper.BindPFlag("output", flags.Lookup("output"))

	flags.String("env-file", "", "Optional dotenv file loaded into the environment before the run.")

	return runCmd
}

// rejectEmptyFlags fails for string flags passed with an empty value.
func rejectEmptyFlags(cmd *cobra.Command, args []string) error {
	var empty []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed && f.Value.Type() == "string" && f.Value.String() == "" {
			empty = append(empty, "--"+f.Name)
		}
	})
	if len(empty) > 0 {
		return fmt.Errorf("flags cannot be empty: %s", strings.Join(empty, ", "))
	}
	return nil
}

func runRunE(cmd *cobra.Command, runner runFunc) error {
	ctx := cmd.Context()
	logger := logr.FromContextOrDiscard(ctx)
	viper := viper.Instance()

	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("could not load env file %s: %w", envFile, err)
		}
		logger.V(1).Info("loaded env file", "path", envFile)
	}

	var formatter cleanup.ReportFormatter
	if format := viper.GetString("output"); format != "" {
		f, err := formatters.NewByName(format)
		if err != nil {
			return err
		}
		formatter = f
	}

	// The directory is only created once the report is written.
	artifactsWriter, err := artifacts.NewFilesystemWriter(artifacts.WithDirectory(viper.GetString("artifacts")))
	if err != nil {
		return err
	}
	ctx = artifacts.ContextWithWriter(ctx, artifactsWriter)

	logger.Info("starting cleanup", "version", version.Version.String())
	report, err := runner(ctx, viper, formatter)
	if err != nil {
		return err
	}

	logger.Info("cleanup complete",
		"repository", report.Repository,
		"whitelisted", report.WhitelistSize,
		"listed", report.Listed,
		"blank", report.Blank,
		"deleted", len(report.Deleted),
		"failures", len(report.Failures))
	return nil
}
