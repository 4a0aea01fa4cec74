package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagDef defines a command-line flag bound to a viper configuration key.
type (
	flagType interface {
		string | int | bool | []string
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

// Defaults come from the embedded config.example.yaml; flags only override when set.
var (
	stringFlags = []flagDef[string]{
		{"log-level", "log.level", "", "Log level (debug, info, warn, error)"},
		{"log-dir", "log.dir", "", "Directory receiving per-run log files"},

		{"config-file", "deploy.config-file", "", "Deployment configuration document"},
		{"remote-file", "deploy.remote-file", "", "Deployed contracts document for remote runs"},
		{"local-file", "deploy.local-file", "", "Deployed contracts document for local runs"},
		{"project-dir", "deploy.project-dir", "", "Foundry project directory the scripts run in"},
		{"script-dir", "deploy.script-dir", "", "Directory of the deploy scripts, relative to the project"},
		{"forge-binary", "deploy.forge-binary", "", "forge executable"},
		{"rpc-wait-interval", "deploy.rpc-wait-interval", "", "Delay between RPC readiness probes, e.g. 1s"},

		{"compose-file", "devnet.compose-file", "", "docker compose file of the devnet stack"},
		{"project-prefix", "devnet.project-prefix", "", "Prefix of the per-network compose project names"},
		{"fund-key", "devnet.fund-key", "", "Config key holding the address funded on the devnet"},
		{"fund-amount-wei", "devnet.fund-amount-wei", "", "Amount sent to the funded address, in wei"},
	}

	intFlags = []flagDef[int]{
		{"max-substitution-passes", "deploy.max-substitution-passes", 0, "Upper bound on variable substitution passes"},
		{"rpc-wait-attempts", "deploy.rpc-wait-attempts", 0, "RPC readiness probes before giving up (0 waits forever)"},
	}

	boolFlags = []flagDef[bool]{
		{"bootstrap-devnet", "deploy.bootstrap-devnet", false, "Recreate and fund the devnet before local deploy-all"},
	}

	stringSliceFlags = []flagDef[[]string]{
		{"networks", "deploy.networks", nil, "Networks to deploy to, in order"},
	}
)

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](fs *pflag.FlagSet, flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(fs, flag); err != nil {
			return err
		}
	}
	return nil
}

func declareFlag[T flagType](fs *pflag.FlagSet, flag flagDef[T]) error {
	switch v := any(flag.defaultValue).(type) {
	case string:
		fs.String(flag.name, v, flag.description)
	case int:
		fs.Int(flag.name, v, flag.description)
	case bool:
		fs.Bool(flag.name, v, flag.description)
	case []string:
		fs.StringSlice(flag.name, v, flag.description)
	}
	return viper.BindPFlag(flag.viperKey, fs.Lookup(flag.name))
}
