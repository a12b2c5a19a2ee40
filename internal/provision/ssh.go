package provision

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"

	cleanuperr "github.com/redhat-openshift-ecosystem/ecr-cleanup/errors"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/log"
)

// ProbeOutcome is the result of an ssh handshake with the git host.
type ProbeOutcome int

const (
	// ProbeFailed covers every outcome other than the two below.
	ProbeFailed ProbeOutcome = iota
	// ProbeAuthenticated means ssh exited 0.
	ProbeAuthenticated
	// ProbeShellRejected means the key was accepted but the host refused a
	// shell, which is how GitHub answers deploy keys (exit status 1).
	ProbeShellRejected
)

func (o ProbeOutcome) String() string {
	switch o {
	case ProbeAuthenticated:
		return "authenticated"
	case ProbeShellRejected:
		return "shell-rejected"
	default:
		return "failed"
	}
}

// Succeeded reports whether the deploy key was accepted.
func (o ProbeOutcome) Succeeded() bool {
	return o == ProbeAuthenticated || o == ProbeShellRejected
}

// InstallDeployKey decodes the base64 encoded private key and writes it to
// DeployKeyPath with mode 0600. The encoded form is only held in memory.
func (p *Provisioner) InstallDeployKey(ctx context.Context, encodedKey string) (string, error) {
	logger := logr.FromContextOrDiscard(ctx)

	key, err := decodeKey(encodedKey)
	if err != nil {
		return "", fmt.Errorf("could not decode deploy key: %w", err)
	}

	path, err := p.writePrivateFile(p.sshDir, DeployKeyFilename, key)
	if err != nil {
		return "", fmt.Errorf("could not install deploy key: %w", err)
	}
	logger.V(log.DBG).Info("deploy key installed", "path", path)
	return path, nil
}

// decodeKey tolerates the line wrapping base64 tools add.
func decodeKey(encoded string) ([]byte, error) {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, encoded)
	if stripped == "" {
		return nil, errors.New("deploy key is empty")
	}
	return base64.StdEncoding.DecodeString(stripped)
}

// SSHCommand is the GIT_SSH_COMMAND pinning git to the installed deploy key.
func (p *Provisioner) SSHCommand() string {
	return strings.Join(append([]string{"ssh"}, p.sshOptions()...), " ")
}

func (p *Provisioner) sshOptions() []string {
	return []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "BatchMode=yes",
		"-o", "IdentitiesOnly=yes",
		"-i", p.DeployKeyPath(),
	}
}

// Probe attempts a non-interactive ssh handshake with git@host and maps the
// exit status to a ProbeOutcome. The returned error describes a failure.
func (p *Provisioner) Probe(ctx context.Context, host string) (ProbeOutcome, error) {
	logger := logr.FromContextOrDiscard(ctx)

	args := append(p.sshOptions(), "-T", "git@"+host)
	cmd := p.cmdContext(ctx, "ssh", args...)
	logger.V(log.TRC).Info("probing git host", "args", cmd.Args)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	if err == nil {
		return ProbeAuthenticated, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ProbeFailed, fmt.Errorf("could not run ssh: %w", err)
	}
	if exitErr.ExitCode() == 1 {
		logger.V(log.TRC).Info("git host refused shell access", "output", strings.TrimSpace(output.String()))
		return ProbeShellRejected, nil
	}
	return ProbeFailed, fmt.Errorf("ssh exited with status %d: %s", exitErr.ExitCode(), strings.TrimSpace(output.String()))
}

// VerifyGitAccess probes host and returns an *errors.AuthenticationError
// unless the deploy key was accepted.
func (p *Provisioner) VerifyGitAccess(ctx context.Context, host string) error {
	logger := logr.FromContextOrDiscard(ctx)

	outcome, err := p.Probe(ctx, host)
	if !outcome.Succeeded() {
		return &cleanuperr.AuthenticationError{Host: host, Outcome: outcome.String(), Err: err}
	}
	logger.Info("git authentication verified", "host", host, "outcome", outcome.String())
	return nil
}
