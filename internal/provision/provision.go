// Package provision writes the credentials later stages depend on: the git
// deploy key under the ssh directory and the AWS shared credentials profile.
package provision

import (
	"context"
	"os/exec"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// DeployKeyFilename is the private key file name inside the ssh directory.
	DeployKeyFilename = "id_rsa"
	// AWSCredentialsFilename is the shared credentials file name inside the aws directory.
	AWSCredentialsFilename = "credentials"
	// AWSProfile is the profile written to the shared credentials file.
	AWSProfile = "default"

	dirMode  = 0o700
	fileMode = 0o600
)

// CommandContext has the signature of exec.CommandContext. It is swapped
// out in tests so that no real ssh process is started.
type CommandContext = func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Provisioner installs credentials into an ssh and an aws directory.
type Provisioner struct {
	fs         afero.Fs
	sshDir     string
	awsDir     string
	cmdContext CommandContext
}

type Option = func(*Provisioner)

// WithFs sets the filesystem credentials are written to.
func WithFs(fs afero.Fs) Option {
	return func(p *Provisioner) {
		p.fs = fs
	}
}

// WithCommandContext sets the function used to build the ssh probe command.
func WithCommandContext(cc CommandContext) Option {
	return func(p *Provisioner) {
		p.cmdContext = cc
	}
}

// New returns a Provisioner writing to sshDir and awsDir on the OS filesystem
// unless overridden by opts.
func New(sshDir, awsDir string, opts ...Option) *Provisioner {
	p := &Provisioner{
		fs:         afero.NewOsFs(),
		sshDir:     sshDir,
		awsDir:     awsDir,
		cmdContext: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DeployKeyPath is the location of the installed deploy key.
func (p *Provisioner) DeployKeyPath() string {
	return filepath.Join(p.sshDir, DeployKeyFilename)
}

// AWSCredentialsPath is the location of the shared credentials file.
func (p *Provisioner) AWSCredentialsPath() string {
	return filepath.Join(p.awsDir, AWSCredentialsFilename)
}

// writePrivateFile creates dir when needed and writes contents to
// dir/name readable by the owner only.
func (p *Provisioner) writePrivateFile(dir, name string, contents []byte) (string, error) {
	if err := p.fs.MkdirAll(dir, dirMode); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := afero.WriteFile(p.fs, path, contents, fileMode); err != nil {
		return "", err
	}
	// WriteFile keeps the mode of a file that already existed.
	if err := p.fs.Chmod(path, fileMode); err != nil {
		return "", err
	}
	return path, nil
}
