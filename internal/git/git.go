// Package git reads branch history by shelling out to the git client.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/log"
)

const remote = "origin"

var ErrNotCloned = errors.New("repository has not been cloned")

// CommandContext has the signature of exec.CommandContext. It is swapped
// out in tests so that no real git process is started.
type CommandContext = func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Client clones one repository into a private temporary directory and
// answers branch and log queries against it.
type Client struct {
	host       string
	workDir    string
	env        []string
	cmdContext CommandContext

	tmpDir  string
	repoDir string
}

type Option = func(*Client)

// WithSSHCommand makes git use sshCommand for every remote operation.
func WithSSHCommand(sshCommand string) Option {
	return func(c *Client) {
		if sshCommand == "" {
			return
		}
		c.env = append(c.env, "GIT_SSH_COMMAND="+sshCommand)
	}
}

// WithCommandContext sets the function used to build git commands.
func WithCommandContext(cc CommandContext) Option {
	return func(c *Client) {
		c.cmdContext = cc
	}
}

// New returns a client cloning from host. Clones are placed in a fresh
// directory under workDir, or under the OS temporary directory when
// workDir is empty.
func New(host, workDir string, opts ...Option) *Client {
	c := &Client{
		host:       host,
		workDir:    workDir,
		cmdContext: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RepositoryURL is the ssh clone URL of an owner/name repository.
func RepositoryURL(host, repository string) string {
	return fmt.Sprintf("git@%s:%s.git", host, repository)
}

// Clone clones repository without checking out a working tree.
func (c *Client) Clone(ctx context.Context, repository string) error {
	logger := logr.FromContextOrDiscard(ctx)

	if c.workDir != "" {
		if err := os.MkdirAll(c.workDir, 0o755); err != nil {
			return fmt.Errorf("could not create work directory: %w", err)
		}
	}
	tmpDir, err := os.MkdirTemp(c.workDir, "ecr-cleanup-clone-*")
	if err != nil {
		return fmt.Errorf("could not create clone directory: %w", err)
	}
	c.tmpDir = tmpDir

	target := filepath.Join(tmpDir, path.Base(repository))
	url := RepositoryURL(c.host, repository)
	logger.Info("cloning repository", "url", url)
	if _, err := c.run(ctx, "", "clone", "--no-checkout", "--quiet", url, target); err != nil {
		return err
	}
	c.repoDir = target
	return nil
}

// RemoteBranches lists the branches of the origin remote, without the
// remote name. The symbolic HEAD is returned as "HEAD".
func (c *Client) RemoteBranches(ctx context.Context) ([]string, error) {
	if c.repoDir == "" {
		return nil, ErrNotCloned
	}
	out, err := c.run(ctx, c.repoDir, "branch", "-r", "--format=%(refname:lstrip=3)")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Log returns up to max commit hashes of the remote branch, newest first.
func (c *Client) Log(ctx context.Context, branch string, max int) ([]string, error) {
	if c.repoDir == "" {
		return nil, ErrNotCloned
	}
	out, err := c.run(ctx, c.repoDir, "log", "-n", strconv.Itoa(max), "--format=%H", remote+"/"+branch, "--")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Close removes the clone.
func (c *Client) Close() error {
	if c.tmpDir == "" {
		return nil
	}
	err := os.RemoveAll(c.tmpDir)
	c.tmpDir, c.repoDir = "", ""
	return err
}

func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	logger := logr.FromContextOrDiscard(ctx)

	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := c.cmdContext(ctx, "git", args...)
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env, c.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.V(log.TRC).Info("running git", "args", cmd.Args)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s", subcommand(args), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func subcommand(args []string) string {
	if len(args) > 2 && args[0] == "-C" {
		return args[2]
	}
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func lines(out string) []string {
	result := []string{}
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			result = append(result, l)
		}
	}
	return result
}
