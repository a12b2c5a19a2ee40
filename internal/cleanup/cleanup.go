// Package cleanup runs the stages of an image cleanup in order: load the
// configuration, provision credentials, build the tag whitelist and prune
// the registry.
package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/artifacts"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/config"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/git"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/githubapi"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/provision"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/prune"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/registry"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/whitelist"
)

const (
	ReportBasename = "cleanup-report"
	// ReportFilename is the artifact the run report is written to when no
	// formatter is set.
	ReportFilename = ReportBasename + ".json"
)

// ReportFormatter renders a RunReport before it is written to the artifacts.
type ReportFormatter interface {
	FileExtension() string
	Format(ctx context.Context, r *RunReport) ([]byte, error)
}

// CredentialProvisioner installs the credentials the later stages use.
type CredentialProvisioner interface {
	InstallDeployKey(ctx context.Context, encodedKey string) (string, error)
	VerifyGitAccess(ctx context.Context, host string) error
	WriteAWSProfile(ctx context.Context, accessKeyID, secretAccessKey, region string) (string, error)
	SSHCommand() string
}

type (
	ProvisionerFactory = func(cfg *config.Config) CredentialProvisioner
	// HistoryFactory returns the history backend and a function releasing it.
	HistoryFactory  = func(cfg *config.Config, sshCommand string) (whitelist.History, func() error, error)
	RegistryFactory = func(cfg *config.Config, credentialsFile string) (registry.Client, error)
)

// Runner executes a cleanup. The factories are called lazily, in stage
// order, and only once the configuration is valid.
type Runner struct {
	NewProvisioner ProvisionerFactory
	NewHistory     HistoryFactory
	NewRegistry    RegistryFactory

	// Formatter renders the report. JSON is used when it is nil.
	Formatter ReportFormatter
}

// NewRunner returns a Runner wired to the real collaborators.
func NewRunner() *Runner {
	return &Runner{
		NewProvisioner: DefaultProvisioner,
		NewHistory:     DefaultHistory,
		NewRegistry:    DefaultRegistry,
	}
}

func DefaultProvisioner(cfg *config.Config) CredentialProvisioner {
	return provision.New(cfg.SSHDir, cfg.AWSDir)
}

func DefaultHistory(cfg *config.Config, sshCommand string) (whitelist.History, func() error, error) {
	switch cfg.VCS {
	case config.VCSGitHub:
		return githubapi.New(cfg.GitHubToken), func() error { return nil }, nil
	case config.VCSGit, "":
		c := git.New(cfg.GitHost, cfg.WorkDir, git.WithSSHCommand(sshCommand))
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported history backend %q", cfg.VCS)
	}
}

func DefaultRegistry(cfg *config.Config, credentialsFile string) (registry.Client, error) {
	return registry.NewECRClient(credentialsFile, provision.AWSProfile, cfg.AWSRegion)
}

// RunReport is the outcome of a run.
type RunReport struct {
	XMLName          xml.Name           `json:"-" xml:"cleanupReport"`
	Repository       string             `json:"repository" xml:"repository"`
	SourceRepository string             `json:"sourceRepository" xml:"sourceRepository"`
	WhitelistSize    int                `json:"whitelistSize" xml:"whitelistSize"`
	Listed           int                `json:"listed" xml:"listed"`
	Blank            int                `json:"blank" xml:"blank"`
	Deleted          []registry.Image   `json:"deleted" xml:"deleted>image"`
	Failures         []registry.Failure `json:"failures,omitempty" xml:"failures>failure,omitempty"`
}

// Run loads the configuration from vcfg and executes the cleanup. A
// configuration error is returned before any collaborator is created.
func (r *Runner) Run(ctx context.Context, vcfg *viper.Viper) (*RunReport, error) {
	cfg, err := config.NewConfigFrom(vcfg)
	if err != nil {
		return nil, err
	}
	return r.RunWithConfig(ctx, cfg)
}

// RunWithConfig executes the cleanup for an already validated cfg.
func (r *Runner) RunWithConfig(ctx context.Context, cfg *config.Config) (*RunReport, error) {
	logger := logr.FromContextOrDiscard(ctx)

	p := r.NewProvisioner(cfg)
	if _, err := p.InstallDeployKey(ctx, cfg.DeployKey); err != nil {
		return nil, err
	}
	if err := p.VerifyGitAccess(ctx, cfg.GitHost); err != nil {
		return nil, err
	}
	credentialsFile, err := p.WriteAWSProfile(ctx, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}

	history, release, err := r.NewHistory(cfg, p.SSHCommand())
	if err != nil {
		return nil, err
	}
	keep, err := func() (whitelist.Whitelist, error) {
		defer func() {
			if rerr := release(); rerr != nil {
				logger.Error(rerr, "could not remove the clone")
			}
		}()
		return whitelist.Build(ctx, history, cfg.GitHubRepository, cfg.ContainerNames, cfg.CommitsPerBranch)
	}()
	if err != nil {
		return nil, err
	}

	client, err := r.NewRegistry(cfg, credentialsFile)
	if err != nil {
		return nil, err
	}
	result, err := prune.New(client).Prune(ctx, cfg.RepositoryName, keep)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		Repository:       cfg.RepositoryName,
		SourceRepository: cfg.GitHubRepository,
		WhitelistSize:    keep.Len(),
		Listed:           result.Listed,
		Blank:            result.Blank,
		Deleted:          result.Deleted.Deleted,
		Failures:         result.Deleted.Failures,
	}
	if report.Deleted == nil {
		report.Deleted = []registry.Image{}
	}
	if err := r.writeReport(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

// writeReport stores report through the artifact writer in ctx, if any.
func (r *Runner) writeReport(ctx context.Context, report *RunReport) error {
	w := artifacts.WriterFromContext(ctx)
	if w == nil {
		return nil
	}

	filename := ReportFilename
	var contents []byte
	var err error
	if r.Formatter != nil {
		filename = ReportBasename + "." + r.Formatter.FileExtension()
		contents, err = r.Formatter.Format(ctx, report)
	} else {
		contents, err = json.MarshalIndent(report, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}
	path, err := w.WriteFile(filename, bytes.NewReader(contents))
	if err != nil {
		return err
	}
	logr.FromContextOrDiscard(ctx).Info("report written", "path", path)
	return nil
}
