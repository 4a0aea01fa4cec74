// Package devnet prepares the local forked chains: it recreates the per-network
// compose stacks and funds the configured owner account on anvil.
package devnet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/deployconfig"
	"github.com/dahlia-labs/deployctl/internal/document"
	"github.com/dahlia-labs/deployctl/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

const (
	composeProjectNameKey = "COMPOSE_PROJECT_NAME"
	rpcPortKey            = "RPC_PORT"
)

type (
	dockerClient interface {
		Ping(ctx context.Context) error
		EnsureImage(ctx context.Context, imageName string) error
	}

	composeRunner interface {
		Up(ctx context.Context, composeFile string, env map[string]string, services ...string) error
		Down(ctx context.Context, composeFile string, env map[string]string, removeVolumes bool) error
	}

	configLoader interface {
		Load(ctx context.Context, env string, extra *document.Map) (*deployconfig.ResolvedConfig, error)
	}

	rpcWaiter interface {
		Wait(ctx context.Context, url string) (uint64, error)
	}

	accountFunder interface {
		Fund(ctx context.Context, url string, from, to common.Address, amount *big.Int) (common.Hash, error)
	}

	Service struct {
		cfg      configs.Devnet
		networks []string
		docker   dockerClient
		compose  composeRunner
		loader   configLoader
		waiter   rpcWaiter
		funder   accountFunder
		logger   *slog.Logger
	}
)

func NewService(
	cfg configs.Devnet,
	networks []string,
	docker dockerClient,
	compose composeRunner,
	loader configLoader,
	waiter rpcWaiter,
	funder accountFunder,
) *Service {
	return &Service{
		cfg:      cfg,
		networks: networks,
		docker:   docker,
		compose:  compose,
		loader:   loader,
		waiter:   waiter,
		funder:   funder,
		logger:   logger.Named("devnet"),
	}
}

// Bootstrap recreates the explorer stacks, then funds the owner account.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.RecreateExplorers(ctx); err != nil {
		return err
	}
	return s.FundAccounts(ctx)
}

// RecreateExplorers tears down and starts the compose project of every network.
// Each network gets its own project name so their containers do not collide.
func (s *Service) RecreateExplorers(ctx context.Context) error {
	if err := s.docker.Ping(ctx); err != nil {
		return err
	}

	for _, img := range s.cfg.Images {
		if err := s.docker.EnsureImage(ctx, img); err != nil {
			return fmt.Errorf("failed to ensure image %s: %w", img, err)
		}
	}

	for _, network := range s.networks {
		cfg, err := s.loader.Load(ctx, network, nil)
		if err != nil {
			return fmt.Errorf("failed to load config for network %s: %w", network, err)
		}

		env := cfg.Doc.StringEntries()
		env[composeProjectNameKey] = fmt.Sprintf("%s-%s", s.cfg.ProjectPrefix, network)

		log := s.logger.With("network", network).With("project", env[composeProjectNameKey])
		log.Info("recreating devnet stack")

		if err := s.compose.Down(ctx, s.cfg.ComposeFile, env, false); err != nil {
			return fmt.Errorf("failed to stop devnet stack for %s: %w", network, err)
		}
		if err := s.compose.Up(ctx, s.cfg.ComposeFile, env); err != nil {
			return fmt.Errorf("failed to start devnet stack for %s: %w", network, err)
		}

		log.Info("devnet stack is up")
	}

	return nil
}

// FundAccounts sends devnet.fund-amount-wei from the funder account to the address
// configured under devnet.fund-key on every network.
func (s *Service) FundAccounts(ctx context.Context) error {
	amount, ok := new(big.Int).SetString(s.cfg.FundAmountWei, 10)
	if !ok || amount.Sign() < 0 {
		return fmt.Errorf("invalid devnet.fund-amount-wei '%s'", s.cfg.FundAmountWei)
	}
	if !common.IsHexAddress(s.cfg.FunderAddress) {
		return fmt.Errorf("invalid devnet.funder-address '%s'", s.cfg.FunderAddress)
	}
	from := common.HexToAddress(s.cfg.FunderAddress)

	for _, network := range s.networks {
		cfg, err := s.loader.Load(ctx, network, nil)
		if err != nil {
			return fmt.Errorf("failed to load config for network %s: %w", network, err)
		}

		if err := cfg.RequireSettings(s.cfg.FundKey, rpcPortKey); err != nil {
			return deployconfig.ForNetwork(err, network)
		}

		recipient, err := cfg.String(s.cfg.FundKey)
		if err != nil || !common.IsHexAddress(recipient) {
			return &deployconfig.ConfigValidationError{
				Network: network,
				Invalid: []string{fmt.Sprintf("%s: '%s' is not a hex address", s.cfg.FundKey, recipient)},
			}
		}

		url, err := cfg.LocalURL(rpcPortKey)
		if err != nil {
			return &deployconfig.ConfigValidationError{
				Network: network,
				Invalid: []string{fmt.Sprintf("%s: %v", rpcPortKey, err)},
			}
		}

		if _, err := s.waiter.Wait(ctx, url); err != nil {
			return err
		}

		to := common.HexToAddress(recipient)
		hash, err := s.funder.Fund(ctx, url, from, to, amount)
		if err != nil {
			return fmt.Errorf("failed to fund %s on %s: %w", to.Hex(), network, err)
		}

		s.logger.
			With("network", network).
			With("to", to.Hex()).
			With("amount_wei", amount.String()).
			With("tx", hash.Hex()).
			Info("account funded")
	}

	return nil
}
