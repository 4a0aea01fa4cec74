package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/dahlia-labs/deployctl/internal/logger"
)

// Client runs git commands in a working directory
type Client struct {
	dir    string
	binary string
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

// NewClient creates a git client bound to dir. An empty dir means the current directory.
func NewClient(dir string, stdout, stderr io.Writer) *Client {
	return &Client{
		dir:    dir,
		binary: "git",
		stdout: stdout,
		stderr: stderr,
		logger: logger.Named("git"),
	}
}

// CurrentBranch returns the symbolic name of HEAD as reported by `git name-rev`.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.binary, "name-rev", "HEAD", "--name-only")
	cmd.Dir = c.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git name-rev failed: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// UpdateSubmodules initializes and updates the repository submodules
func (c *Client) UpdateSubmodules(ctx context.Context) error {
	c.logger.With("dir", c.dir).Info("updating git submodules")

	cmd := exec.CommandContext(ctx, c.binary, "submodule", "update", "--init")
	cmd.Dir = c.dir
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git submodule update failed: %w", err)
	}

	c.logger.Info("git submodules updated successfully")
	return nil
}
