package setup

import (
	"context"
	"fmt"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/infra/git"
	"github.com/dahlia-labs/deployctl/internal/logger"
	"github.com/spf13/cobra"
)

var (
	CMD = &cobra.Command{
		Use:   "setup",
		Short: "Check the tool chain, install forge dependencies and initialize submodules",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newService(cmd.Context()).Run(cmd.Context()); err != nil {
				return fmt.Errorf("error occurred during setup: %w", err)
			}
			return nil
		},
	}

	submodulesCmd = &cobra.Command{
		Use:   "submodules",
		Short: "Only initialize git submodules and clean forge artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newService(cmd.Context()).PrepareSubmodules(cmd.Context()); err != nil {
				return fmt.Errorf("error occurred preparing submodules: %w", err)
			}
			return nil
		},
	}
)

func init() {
	CMD.AddCommand(submodulesCmd)
}

func newService(ctx context.Context) *Service {
	cfg := configs.Values.Deploy
	stdout, stderr := logger.TeeFromContext(ctx).Console()

	return NewService(cfg.ProjectDir, cfg.ForgeBinary, git.NewClient(cfg.ProjectDir, stdout, stderr), stdout, stderr)
}
