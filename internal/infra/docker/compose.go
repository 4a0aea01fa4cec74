// Package docker wraps the Docker daemon API and the docker compose CLI.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// Compose runs `docker compose` against one compose file at a time.
type Compose struct {
	binary string
	stdout io.Writer
	stderr io.Writer
}

func NewCompose(stdout, stderr io.Writer) *Compose {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Compose{binary: "docker", stdout: stdout, stderr: stderr}
}

// Up starts services in detached mode, recreating changed containers.
func (c *Compose) Up(ctx context.Context, composeFile string, env map[string]string, services ...string) error {
	args := append([]string{"up", "-d"}, services...)
	return c.run(ctx, composeFile, env, args...)
}

// Down stops and removes the project's containers and networks.
func (c *Compose) Down(ctx context.Context, composeFile string, env map[string]string, removeVolumes bool) error {
	args := []string{"down"}
	if removeVolumes {
		args = append(args, "-v")
	}
	return c.run(ctx, composeFile, env, args...)
}

func (c *Compose) run(ctx context.Context, composeFile string, env map[string]string, args ...string) error {
	// compose resolves -f against its working directory
	composeFile, err := filepath.Abs(composeFile)
	if err != nil {
		return fmt.Errorf("failed to resolve compose file path: %w", err)
	}

	fullArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, c.binary, fullArgs...)
	cmd.Dir = filepath.Dir(composeFile)

	cmd.Env = os.Environ()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, env[k]))
	}

	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker compose %s failed: %w", strings.Join(args, " "), err)
	}

	return nil
}
