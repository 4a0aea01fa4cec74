// Package forge drives `forge script` deployments and reads back what they printed.
package forge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dahlia-labs/deployctl/internal/logger"
)

const (
	DefaultBinary    = "forge"
	DefaultScriptDir = "script"

	scriptSuffix = ".s.sol"
)

type (
	// Invocation is one run of a deploy script against one RPC endpoint.
	Invocation struct {
		Script     string
		RPCURL     string
		PrivateKey string
		Env        map[string]string
	}

	Option func(*Runner)

	Runner struct {
		binary     string
		projectDir string
		scriptDir  string
		stdout     io.Writer
		stderr     io.Writer
		logger     *slog.Logger
	}
)

func WithBinary(binary string) Option {
	return func(r *Runner) {
		if binary != "" {
			r.binary = binary
		}
	}
}

func WithScriptDir(dir string) Option {
	return func(r *Runner) {
		if dir != "" {
			r.scriptDir = dir
		}
	}
}

// WithOutput streams the subprocess output to the given writers while it runs.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

func NewRunner(projectDir string, opts ...Option) *Runner {
	r := &Runner{
		binary:     DefaultBinary,
		projectDir: projectDir,
		scriptDir:  DefaultScriptDir,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		logger:     logger.Named("forge"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) args(inv Invocation) []string {
	return []string{
		"script", filepath.ToSlash(filepath.Join(r.scriptDir, inv.Script+scriptSuffix)),
		"--rpc-url", inv.RPCURL,
		"--broadcast",
		"--private-key", inv.PrivateKey,
	}
}

// RunScript executes the script and returns everything it wrote to stdout.
func (r *Runner) RunScript(ctx context.Context, inv Invocation) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, r.args(inv)...)
	cmd.Dir = r.projectDir

	cmd.Env = os.Environ()
	keys := make([]string, 0, len(inv.Env))
	for k := range inv.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, inv.Env[k]))
	}

	var captured, errOut bytes.Buffer
	cmd.Stdout = io.MultiWriter(r.stdout, &captured)
	cmd.Stderr = io.MultiWriter(r.stderr, &errOut)

	r.logger.
		With("script", inv.Script).
		With("rpc_url", inv.RPCURL).
		With("dir", r.projectDir).
		Info("running deploy script")

	if err := cmd.Run(); err != nil {
		diagnostics := errOut.String()
		if strings.TrimSpace(diagnostics) == "" {
			diagnostics = captured.String()
		}
		return captured.String(), &ScriptError{Script: inv.Script, Err: err, Output: tail(diagnostics, outputTailLines)}
	}

	return captured.String(), nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
