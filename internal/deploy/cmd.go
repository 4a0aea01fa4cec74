package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/deployconfig"
	"github.com/dahlia-labs/deployctl/internal/devnet"
	"github.com/dahlia-labs/deployctl/internal/forge"
	"github.com/dahlia-labs/deployctl/internal/infra/filesystem/yaml"
	"github.com/dahlia-labs/deployctl/internal/logger"
	"github.com/dahlia-labs/deployctl/internal/rpc"
	"github.com/spf13/cobra"
)

const (
	ScriptFlag = "script"
	remoteFlag = "remote"
)

var (
	CMD = &cobra.Command{
		Use:   "deploy",
		Short: "Deploy one script to every configured network",
		RunE: func(cmd *cobra.Command, args []string) error {
			script, _ := cmd.Flags().GetString(ScriptFlag)
			remote, _ := cmd.Flags().GetBool(remoteFlag)

			seq, closeFn, err := newSequencer(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := seq.Deploy(cmd.Context(), Params{Script: script, Remote: remote})
			logResult(result)
			if err != nil {
				return fmt.Errorf("error occurred deploying %s: %w", script, err)
			}
			return nil
		},
	}

	AllCMD = &cobra.Command{
		Use:   "deploy-all",
		Short: "Deploy every configured script in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, _ := cmd.Flags().GetBool(remoteFlag)

			seq, closeFn, err := newSequencer(cmd.Context(), !remote)
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := seq.DeployAll(cmd.Context(), remote)
			for _, result := range results {
				logResult(result)
			}
			if err != nil {
				return fmt.Errorf("error occurred deploying all scripts: %w", err)
			}

			slog.With("scripts", len(results)).Info("all scripts deployed")
			return nil
		},
	}
)

func init() {
	CMD.Flags().StringP(ScriptFlag, "s", "", "Name of the deploy script, resolved to script/<name>.s.sol")
	CMD.Flags().BoolP(remoteFlag, "r", false, "Deploy on remote networks instead of the local devnet")
	if err := CMD.MarkFlagRequired(ScriptFlag); err != nil {
		panic(err)
	}

	AllCMD.Flags().BoolP(remoteFlag, "r", false, "Deploy on remote networks instead of the local devnet")
}

// newSequencer wires a Sequencer from the loaded tool settings. withDevnet adds the
// devnet bootstrap used by local deploy-all runs.
func newSequencer(ctx context.Context, withDevnet bool) (*Sequencer, func(), error) {
	cfg := configs.Values.Deploy
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	stdout, stderr := logger.TeeFromContext(ctx).Console()
	closeFn := func() {}

	var bootstrap devnetBootstrapper
	if withDevnet && cfg.BootstrapDevnet {
		svc, closeDevnet, err := devnet.NewDefault(ctx)
		if err != nil {
			return nil, nil, err
		}
		bootstrap = svc
		closeFn = closeDevnet
	}

	seq := NewSequencer(
		cfg,
		deployconfig.NewDefaultLoader(cfg, stdout, stderr, time.Now()),
		yaml.NewReader(),
		yaml.NewWriter(),
		rpc.NewWaiter(rpc.WithAttempts(cfg.RPCWaitAttempts), rpc.WithInterval(cfg.RPCWaitInterval)),
		forge.NewRunner(cfg.ProjectDir,
			forge.WithBinary(cfg.ForgeBinary),
			forge.WithScriptDir(cfg.ScriptDir),
			forge.WithOutput(stdout, stderr),
		),
		bootstrap,
		os.LookupEnv,
	)

	return seq, closeFn, nil
}

func logResult(result *Result) {
	if result == nil {
		return
	}
	for _, nr := range result.Networks {
		slog.
			With("script", result.Script).
			With("network", nr.Network).
			With("invocations", nr.Invocations).
			With("skipped", nr.Skipped).
			With("outputs", nr.Outputs).
			Info("deployment summary")
	}
}
