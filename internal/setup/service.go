// Package setup prepares a checkout for deployments: tool checks, submodules and
// forge dependencies.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/dahlia-labs/deployctl/internal/logger"
)

type (
	submoduleUpdater interface {
		UpdateSubmodules(ctx context.Context) error
	}

	Service struct {
		projectDir  string
		forgeBinary string
		required    []string
		git         submoduleUpdater
		lookPath    func(file string) (string, error)
		stdout      io.Writer
		stderr      io.Writer
		logger      *slog.Logger
	}
)

func NewService(projectDir, forgeBinary string, git submoduleUpdater, stdout, stderr io.Writer) *Service {
	return &Service{
		projectDir:  projectDir,
		forgeBinary: forgeBinary,
		required:    []string{forgeBinary, "git"},
		git:         git,
		lookPath:    exec.LookPath,
		stdout:      stdout,
		stderr:      stderr,
		logger:      logger.Named("setup"),
	}
}

// CheckTools fails listing every required command missing from PATH.
func (s *Service) CheckTools() error {
	var errs []error
	for _, name := range s.required {
		path, err := s.lookPath(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("command [%s] is not available, please install it", name))
			continue
		}
		s.logger.With("command", name).With("path", path).Debug("found command")
	}
	return errors.Join(errs...)
}

// Run performs the full setup: tool checks, forge install, then submodules.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("running setup")

	if err := s.CheckTools(); err != nil {
		return err
	}
	if err := s.forge(ctx, "install"); err != nil {
		return err
	}
	if err := s.PrepareSubmodules(ctx); err != nil {
		return err
	}

	s.logger.Info("setup complete")
	return nil
}

// PrepareSubmodules initializes git submodules and clears forge build artifacts.
func (s *Service) PrepareSubmodules(ctx context.Context) error {
	if err := s.git.UpdateSubmodules(ctx); err != nil {
		return err
	}
	return s.forge(ctx, "clean")
}

func (s *Service) forge(ctx context.Context, args ...string) error {
	s.logger.With("args", strings.Join(args, " ")).Info("running forge")

	cmd := exec.CommandContext(ctx, s.forgeBinary, args...)
	cmd.Dir = s.projectDir
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("forge %s failed: %w", strings.Join(args, " "), err)
	}
	return nil
}
