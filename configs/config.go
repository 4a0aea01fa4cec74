package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var Values Config

type (
	Config struct {
		Log    Log    `mapstructure:"log"`
		Deploy Deploy `mapstructure:"deploy"`
		Devnet Devnet `mapstructure:"devnet"`
	}

	Log struct {
		Level string `mapstructure:"level"`
		Dir   string `mapstructure:"dir"`
	}

	Deploy struct {
		ConfigFile            string        `mapstructure:"config-file"`
		RemoteFile            string        `mapstructure:"remote-file"`
		LocalFile             string        `mapstructure:"local-file"`
		ProjectDir            string        `mapstructure:"project-dir"`
		ScriptDir             string        `mapstructure:"script-dir"`
		ForgeBinary           string        `mapstructure:"forge-binary"`
		Networks              []string      `mapstructure:"networks"`
		Scripts               []Script      `mapstructure:"scripts"`
		MaxSubstitutionPasses int           `mapstructure:"max-substitution-passes"`
		RPCWaitAttempts       int           `mapstructure:"rpc-wait-attempts"`
		RPCWaitInterval       time.Duration `mapstructure:"rpc-wait-interval"`
		BootstrapDevnet       bool          `mapstructure:"bootstrap-devnet"`
	}

	// Script is one entry of the deploy-all sequence.
	Script struct {
		Name      string `mapstructure:"name"`
		LocalOnly bool   `mapstructure:"local-only"`
	}

	Devnet struct {
		ComposeFile   string   `mapstructure:"compose-file"`
		ProjectPrefix string   `mapstructure:"project-prefix"`
		Images        []string `mapstructure:"images"`
		FundKey       string   `mapstructure:"fund-key"`
		FundAmountWei string   `mapstructure:"fund-amount-wei"`
		FunderAddress string   `mapstructure:"funder-address"`
	}
)

// DeployedFile returns the deployed-contracts document for the given mode.
func (c Deploy) DeployedFile(remote bool) string {
	if remote {
		return c.RemoteFile
	}
	return c.LocalFile
}

func (c *Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level '%s': %w", c.Level, err)
	}
	return level, nil
}

func (c *Deploy) Validate() error {
	var errs []error

	if c.ConfigFile == "" {
		errs = append(errs, errors.New("deploy.config-file is required"))
	}
	if c.RemoteFile == "" {
		errs = append(errs, errors.New("deploy.remote-file is required"))
	}
	if c.LocalFile == "" {
		errs = append(errs, errors.New("deploy.local-file is required"))
	}
	if c.ProjectDir == "" {
		errs = append(errs, errors.New("deploy.project-dir is required"))
	}
	if len(c.Networks) == 0 {
		errs = append(errs, errors.New("deploy.networks must not be empty"))
	}

	seen := make(map[string]struct{}, len(c.Networks))
	for _, network := range c.Networks {
		if network == "" {
			errs = append(errs, errors.New("deploy.networks must not contain empty names"))
			continue
		}
		if _, ok := seen[network]; ok {
			errs = append(errs, fmt.Errorf("deploy.networks contains '%s' twice", network))
		}
		seen[network] = struct{}{}
	}

	for i, script := range c.Scripts {
		if script.Name == "" {
			errs = append(errs, fmt.Errorf("deploy.scripts[%d].name is required", i))
		}
	}

	if c.MaxSubstitutionPasses < 0 {
		errs = append(errs, errors.New("deploy.max-substitution-passes must not be negative"))
	}
	if c.RPCWaitAttempts < 0 {
		errs = append(errs, errors.New("deploy.rpc-wait-attempts must not be negative"))
	}
	if c.RPCWaitInterval < 0 {
		errs = append(errs, errors.New("deploy.rpc-wait-interval must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("deploy configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func (c *Devnet) Validate() error {
	var errs []error

	if c.ComposeFile == "" {
		errs = append(errs, errors.New("devnet.compose-file is required"))
	}
	if c.ProjectPrefix == "" {
		errs = append(errs, errors.New("devnet.project-prefix is required"))
	}
	if c.FundKey == "" {
		errs = append(errs, errors.New("devnet.fund-key is required"))
	}
	if c.FundAmountWei == "" {
		errs = append(errs, errors.New("devnet.fund-amount-wei is required"))
	}
	if c.FunderAddress == "" {
		errs = append(errs, errors.New("devnet.funder-address is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("devnet configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}
