package devnet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/deployconfig"
	"github.com/dahlia-labs/deployctl/internal/infra/docker"
	"github.com/dahlia-labs/deployctl/internal/logger"
	"github.com/dahlia-labs/deployctl/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	CMD = &cobra.Command{
		Use:   "devnet",
		Short: "Recreate the local devnet stacks and fund the owner account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(s *Service) error {
				return s.Bootstrap(cmd.Context())
			})
		},
	}

	explorersCmd = &cobra.Command{
		Use:   "explorers",
		Short: "Only recreate the per-network compose stacks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(s *Service) error {
				return s.RecreateExplorers(cmd.Context())
			})
		},
	}

	fundCmd = &cobra.Command{
		Use:   "fund",
		Short: "Only fund the owner account on every network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(s *Service) error {
				return s.FundAccounts(cmd.Context())
			})
		},
	}
)

func init() {
	CMD.AddCommand(explorersCmd)
	CMD.AddCommand(fundCmd)
}

func withService(ctx context.Context, fn func(*Service) error) error {
	svc, closeFn, err := NewDefault(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := fn(svc); err != nil {
		return fmt.Errorf("error occurred bootstrapping devnet: %w", err)
	}

	slog.Info("devnet is ready")
	return nil
}

// NewDefault builds a Service from the loaded tool settings. The returned func
// releases the docker client.
func NewDefault(ctx context.Context) (*Service, func(), error) {
	if err := configs.Values.Devnet.Validate(); err != nil {
		return nil, nil, err
	}

	dockerClient, err := docker.New()
	if err != nil {
		return nil, nil, err
	}

	stdout, stderr := logger.TeeFromContext(ctx).Console()
	deployCfg := configs.Values.Deploy

	svc := NewService(
		configs.Values.Devnet,
		deployCfg.Networks,
		dockerClient,
		docker.NewCompose(stdout, stderr),
		deployconfig.NewDefaultLoader(deployCfg, stdout, stderr, time.Now()),
		rpc.NewWaiter(rpc.WithAttempts(deployCfg.RPCWaitAttempts), rpc.WithInterval(deployCfg.RPCWaitInterval)),
		NewAnvilFunder(),
	)

	closeFn := func() {
		if err := dockerClient.Close(); err != nil {
			slog.With("err", err.Error()).Warn("failed to close docker client")
		}
	}

	return svc, closeFn, nil
}
