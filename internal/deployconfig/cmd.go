package deployconfig

import (
	"fmt"
	"time"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/document"
	"github.com/dahlia-labs/deployctl/internal/infra/filesystem/yaml"
	"github.com/dahlia-labs/deployctl/internal/logger"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved deployment configuration",
	Long: "Print the configuration document as a deploy would see it. With --network the " +
		"outputs already recorded for that network are layered in, and the network name " +
		"is used as the environment unless --env is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _ := cmd.Flags().GetString("env")
		network, _ := cmd.Flags().GetString("network")
		remote, _ := cmd.Flags().GetBool("remote")

		cfg := configs.Values.Deploy
		stdout, stderr := logger.TeeFromContext(cmd.Context()).Console()
		loader := NewDefaultLoader(cfg, stdout, stderr, time.Now())

		var extra *document.Map
		if network != "" {
			deployed, err := yaml.NewReader().ReadYAML(cfg.DeployedFile(remote))
			if err != nil {
				return fmt.Errorf("failed to load deployed contracts: %w", err)
			}
			if previous, err := deployed.Map(network); err == nil {
				extra = previous
			}
			if env == "" {
				env = network
			}
		}

		resolved, err := loader.Load(cmd.Context(), env, extra)
		if err != nil {
			return err
		}
		resolved.Log(logger.Named("config"))

		out, err := document.Marshal(resolved.Doc)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	CMD.Flags().String("env", "", "Environment to resolve for (defaults to the git branch)")
	CMD.Flags().String("network", "", "Layer in the recorded deployment outputs of this network")
	CMD.Flags().Bool("remote", false, "Read outputs recorded by remote deployments")
}
