// Package cmd implements the command-line interface for ecr-cleanup.
package cmd

import (
	"context"
	"io"
	"os"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	spfviper "github.com/spf13/viper"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/artifacts"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/config"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/formatters"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/viper"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/version"
)

var configFileUsed bool

func init() {
	cobra.OnInitialize(func() { initConfig(viper.Instance()) })
}

func rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:              "ecr-cleanup",
		Short:            "Prune ECR images that no recent commit refers to.",
		Long:             "A utility that deletes the images of an ECR repository whose tags are not built from a recent commit of any branch of the source repository.",
		Version:          version.Version.String(),
		PersistentPreRun: preRunConfig,
		SilenceUsage:     true,
	}

	viper := viper.Instance()
	rootCmd.PersistentFlags().String("logfile", "", "Where the execution logfile will be written. (env: ECRC_LOGFILE)")
	_ = viper.BindPFlag("logfile", rootCmd.PersistentFlags().Lookup("logfile"))

	rootCmd.PersistentFlags().String("loglevel", "", "The verbosity of the tool itself. Ex. warn, debug, trace, info, error. (env: ECRC_LOGLEVEL)")
	_ = viper.BindPFlag("loglevel", rootCmd.PersistentFlags().Lookup("loglevel"))

	rootCmd.AddCommand(runCmd(defaultRunFunc))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func Execute() error {
	return rootCmd().ExecuteContext(context.Background())
}

func initConfig(viper *spfviper.Viper) {
	// set up ENV var support
	viper.SetEnvPrefix("ecrc")
	viper.AutomaticEnv()

	// set up optional config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	configFileUsed = true
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(spfviper.ConfigFileNotFoundError); ok {
			configFileUsed = false
		}
	}

	// Set up logging config defaults
	viper.SetDefault("logfile", DefaultLogFile)
	viper.SetDefault("loglevel", DefaultLogLevel)
	viper.SetDefault("artifacts", artifacts.DefaultArtifactsDir)
	viper.SetDefault("output", formatters.DefaultFormat)

	// Set up tool defaults
	viper.SetDefault(config.KeySSHDir, config.DefaultSSHDir)
	viper.SetDefault(config.KeyAWSDir, config.DefaultAWSDir)
	viper.SetDefault(config.KeyGitHost, config.DefaultGitHost)
	viper.SetDefault(config.KeyVCS, config.DefaultVCS)
}

// preRunConfig is used by cobra.PersistentPreRun in all commands to set up logging
func preRunConfig(cmd *cobra.Command, args []string) {
	viper := viper.Instance()
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true})

	// set up logging
	logname := viper.GetString("logfile")
	logFile, err := os.OpenFile(logname, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err == nil {
		mw := io.MultiWriter(os.Stderr, logFile)
		l.SetOutput(mw)
	} else {
		l.Infof("Failed to log to file, using default stderr")
	}
	if ll, err := logrus.ParseLevel(viper.GetString("loglevel")); err == nil {
		l.SetLevel(ll)
	}

	if !configFileUsed {
		l.Debug("config file not found, proceeding without it")
	}

	logger := logrusr.New(l)
	ctx := logr.NewContext(cmd.Context(), logger)
	cmd.SetContext(ctx)
}
