// Package config turns the process environment into the validated,
// read-only configuration of a cleanup run.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	cleanuperr "github.com/redhat-openshift-ecosystem/ecr-cleanup/errors"
)

// Required environment variables, in the order they are validated.
const (
	EnvAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvAWSRegion          = "AWS_DEFAULT_REGION"
	EnvRepositoryName     = "ECR_REPOSITORY_NAME"
	EnvContainerNames     = "CONTAINER_NAMES"
	EnvGitHubRepository   = "GITHUB_REPOSITORY"
	EnvDeployKey          = "GITHUB_DEPLOY_KEY_PRI_64"
	EnvCommitsPerBranch   = "COMMITS_PER_BRANCH"

	// EnvGitHubToken is optional and only used by the github backend.
	EnvGitHubToken = "GITHUB_TOKEN"
)

// Viper keys for the optional tool settings.
const (
	KeySSHDir  = "ssh_dir"
	KeyAWSDir  = "aws_dir"
	KeyGitHost = "git_host"
	KeyVCS     = "vcs"
	KeyWorkDir = "workdir"
)

// Supported history backends.
const (
	VCSGit    = "git"
	VCSGitHub = "github"
)

const (
	DefaultSSHDir  = "~/.ssh"
	DefaultAWSDir  = "~/.aws"
	DefaultGitHost = "github.com"
	DefaultVCS     = VCSGit
)

// RequiredEnv lists every required environment variable in validation order.
var RequiredEnv = []string{
	EnvAWSAccessKeyID,
	EnvAWSSecretAccessKey,
	EnvAWSRegion,
	EnvRepositoryName,
	EnvContainerNames,
	EnvGitHubRepository,
	EnvDeployKey,
	EnvCommitsPerBranch,
}

// Config is the configuration of a single cleanup run. It is built once by
// NewConfigFrom and not modified afterwards.
type Config struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	RepositoryName     string
	ContainerNames     []string
	GitHubRepository   string
	DeployKey          string
	CommitsPerBranch   int

	SSHDir      string
	AWSDir      string
	GitHost     string
	VCS         string
	WorkDir     string
	GitHubToken string
}

// viperKey maps an environment variable to the key it is bound to.
func viperKey(env string) string {
	return strings.ToLower(env)
}

// BindEnv binds the required variables, and the GitHub token, to vcfg under
// their exact names. Env prefixes configured on vcfg do not apply to them.
func BindEnv(vcfg *viper.Viper) error {
	for _, env := range RequiredEnv {
		if err := vcfg.BindEnv(viperKey(env), env); err != nil {
			return fmt.Errorf("could not bind %s: %w", env, err)
		}
	}
	return vcfg.BindEnv(viperKey(EnvGitHubToken), EnvGitHubToken)
}

// NewConfigFrom validates the settings stored in vcfg and returns them as a
// Config. The first missing or empty required variable, in RequiredEnv order,
// is reported as a *errors.ConfigurationError.
func NewConfigFrom(vcfg *viper.Viper) (*Config, error) {
	if err := BindEnv(vcfg); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(RequiredEnv))
	for _, env := range RequiredEnv {
		val := vcfg.GetString(viperKey(env))
		if val == "" {
			return nil, &cleanuperr.ConfigurationError{Name: env}
		}
		values[env] = val
	}

	containers := SplitContainerNames(values[EnvContainerNames])
	if len(containers) == 0 {
		return nil, &cleanuperr.ConfigurationError{Name: EnvContainerNames, Reason: "no container names in list"}
	}

	commits, err := strconv.Atoi(strings.TrimSpace(values[EnvCommitsPerBranch]))
	if err != nil || commits < 1 {
		return nil, &cleanuperr.ConfigurationError{
			Name:   EnvCommitsPerBranch,
			Reason: fmt.Sprintf("%q is not a positive integer", values[EnvCommitsPerBranch]),
		}
	}

	cfg := Config{
		AWSAccessKeyID:     values[EnvAWSAccessKeyID],
		AWSSecretAccessKey: values[EnvAWSSecretAccessKey],
		AWSRegion:          values[EnvAWSRegion],
		RepositoryName:     values[EnvRepositoryName],
		ContainerNames:     containers,
		GitHubRepository:   values[EnvGitHubRepository],
		DeployKey:          values[EnvDeployKey],
		CommitsPerBranch:   commits,
		GitHubToken:        vcfg.GetString(viperKey(EnvGitHubToken)),
		WorkDir:            vcfg.GetString(KeyWorkDir),
	}
	if err := cfg.storeToolSettings(vcfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// storeToolSettings reads the optional settings, applying defaults.
func (c *Config) storeToolSettings(vcfg *viper.Viper) error {
	var err error
	if c.SSHDir, err = expandDir(vcfg.GetString(KeySSHDir), DefaultSSHDir, KeySSHDir); err != nil {
		return err
	}
	if c.AWSDir, err = expandDir(vcfg.GetString(KeyAWSDir), DefaultAWSDir, KeyAWSDir); err != nil {
		return err
	}

	c.GitHost = vcfg.GetString(KeyGitHost)
	if c.GitHost == "" {
		c.GitHost = DefaultGitHost
	}

	c.VCS = strings.ToLower(vcfg.GetString(KeyVCS))
	switch c.VCS {
	case "":
		c.VCS = DefaultVCS
	case VCSGit, VCSGitHub:
	default:
		return &cleanuperr.ConfigurationError{Name: KeyVCS, Reason: fmt.Sprintf("unsupported backend %q", c.VCS)}
	}
	return nil
}

func expandDir(dir, fallback, key string) (string, error) {
	if dir == "" {
		dir = fallback
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", &cleanuperr.ConfigurationError{Name: key, Reason: err.Error()}
	}
	return expanded, nil
}

// SplitContainerNames splits a comma separated list, trimming each entry
// and dropping the empty ones.
func SplitContainerNames(list string) []string {
	names := []string{}
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
