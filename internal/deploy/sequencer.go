// Package deploy runs deploy scripts on every configured network and records the
// contract addresses they report.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/deployconfig"
	"github.com/dahlia-labs/deployctl/internal/document"
	"github.com/dahlia-labs/deployctl/internal/forge"
	"github.com/dahlia-labs/deployctl/internal/infra/filesystem"
	"github.com/dahlia-labs/deployctl/internal/logger"
)

const (
	rpcURLKey             = "RPC_URL"
	scannerBaseURLKey     = "SCANNER_BASE_URL"
	rpcPortKey            = "RPC_PORT"
	otterscanPortKey      = "OTTERSCAN_PORT"
	deployerPrivateKeyKey = "DEPLOYER_PRIVATE_KEY"
	indexKey              = "INDEX"
)

type (
	configLoader interface {
		Load(ctx context.Context, env string, extra *document.Map) (*deployconfig.ResolvedConfig, error)
	}

	rpcWaiter interface {
		Wait(ctx context.Context, url string) (uint64, error)
	}

	scriptRunner interface {
		RunScript(ctx context.Context, inv forge.Invocation) (string, error)
	}

	devnetBootstrapper interface {
		Bootstrap(ctx context.Context) error
	}

	Params struct {
		Script string
		Remote bool
	}

	// NetworkResult describes what one script did on one network.
	NetworkResult struct {
		Network     string
		Invocations int
		Skipped     bool
		Outputs     map[string]string
	}

	Result struct {
		Script   string
		Networks []NetworkResult
	}

	Sequencer struct {
		cfg       configs.Deploy
		loader    configLoader
		reader    filesystem.Reader
		writer    filesystem.Writer
		waiter    rpcWaiter
		runner    scriptRunner
		bootstrap devnetBootstrapper
		lookupEnv LookupEnv
		logger    *slog.Logger
	}
)

func NewSequencer(
	cfg configs.Deploy,
	loader configLoader,
	reader filesystem.Reader,
	writer filesystem.Writer,
	waiter rpcWaiter,
	runner scriptRunner,
	bootstrap devnetBootstrapper,
	lookupEnv LookupEnv,
) *Sequencer {
	return &Sequencer{
		cfg:       cfg,
		loader:    loader,
		reader:    reader,
		writer:    writer,
		waiter:    waiter,
		runner:    runner,
		bootstrap: bootstrap,
		lookupEnv: lookupEnv,
		logger:    logger.Named("deploy"),
	}
}

// Deploy runs params.Script on every network in order. Outputs are saved after
// each network so a failure keeps what earlier networks deployed.
func (s *Sequencer) Deploy(ctx context.Context, params Params) (*Result, error) {
	if params.Script == "" {
		return nil, errors.New("script name is required")
	}

	creds, err := ResolveCredentials(params.Remote, s.lookupEnv)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("script", params.Script).With("remote", params.Remote)
	credsLog := log.With("deployer", creds.Deployer.Hex()).With("owner", creds.WalletAddress)
	if creds.Defaulted {
		credsLog.Info("using local development credentials")
	} else {
		credsLog.Info("using credentials from environment")
	}

	deployedPath := s.cfg.DeployedFile(params.Remote)
	deployed, err := s.reader.ReadYAML(deployedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployed contracts: %w", err)
	}

	result := &Result{Script: params.Script}
	for _, network := range s.cfg.Networks {
		nr, err := s.deployOnNetwork(ctx, params, network, creds, deployed)
		if err != nil {
			return result, err
		}
		result.Networks = append(result.Networks, nr)

		if err := s.writer.WriteYAML(deployedPath, deployed); err != nil {
			return result, fmt.Errorf("failed to save deployed contracts: %w", err)
		}
	}

	log.With("deployed_file", deployedPath).Info("deployment finished")

	return result, nil
}

// DeployAll runs every configured script in order. Local-only scripts are left out
// of remote runs.
func (s *Sequencer) DeployAll(ctx context.Context, remote bool) ([]*Result, error) {
	if !remote && s.cfg.BootstrapDevnet && s.bootstrap != nil {
		if err := s.bootstrap.Bootstrap(ctx); err != nil {
			return nil, fmt.Errorf("failed to bootstrap devnet: %w", err)
		}
	}

	var results []*Result
	for _, script := range s.cfg.Scripts {
		if remote && script.LocalOnly {
			s.logger.With("script", script.Name).Info("skipping local-only script")
			continue
		}

		result, err := s.Deploy(ctx, Params{Script: script.Name, Remote: remote})
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			return results, fmt.Errorf("failed to deploy %s: %w", script.Name, err)
		}
	}

	return results, nil
}

func (s *Sequencer) deployOnNetwork(ctx context.Context, params Params, network string, creds Credentials, deployed *document.Map) (NetworkResult, error) {
	log := s.logger.With("network", network).With("script", params.Script)
	nr := NetworkResult{Network: network, Outputs: make(map[string]string)}

	extra := document.NewMap()
	extra.SetString(PrivateKeyEnv, creds.PrivateKey)
	extra.SetString(WalletAddressEnv, creds.WalletAddress)
	if previous, err := deployed.Map(network); err == nil {
		extra = document.Merge(extra, previous)
	}

	cfg, err := s.loader.Load(ctx, network, extra)
	if err != nil {
		return nr, fmt.Errorf("failed to load config for network %s: %w", network, err)
	}
	cfg.Log(log)

	if err := validateNetworkConfig(cfg, network, params.Remote); err != nil {
		return nr, err
	}

	rpcURL, _ := cfg.String(rpcURLKey)
	if _, err := s.waiter.Wait(ctx, rpcURL); err != nil {
		return nr, err
	}

	privateKey, err := cfg.String(deployerPrivateKeyKey)
	if err != nil || privateKey == "" {
		privateKey = creds.PrivateKey
	}

	runs, skip := planRuns(cfg.Doc, params.Script)
	if skip {
		log.Info("skipped deployment, script entry is not a list")
		nr.Skipped = true
		return nr, nil
	}

	base := cfg.Doc.StringEntries()
	base[deployerPrivateKeyKey] = privateKey

	for _, step := range runs {
		env := step.env(base)

		log.With("rpc_url", rpcURL).With("index", step.index).Info("deploying contracts")
		out, err := s.runner.RunScript(ctx, forge.Invocation{
			Script:     params.Script,
			RPCURL:     rpcURL,
			PrivateKey: privateKey,
			Env:        env,
		})
		if err != nil {
			return nr, err
		}
		nr.Invocations++

		outputs := forge.ParseOutput(out)
		recordOutputs(deployed, network, outputs)
		for k, v := range outputs {
			nr.Outputs[k] = v
		}
	}

	return nr, nil
}

// validateNetworkConfig checks the endpoints needed for the mode. Local configs get
// their URLs derived from the configured ports.
func validateNetworkConfig(cfg *deployconfig.ResolvedConfig, network string, remote bool) error {
	if remote {
		if err := cfg.RequireSettings(rpcURLKey, scannerBaseURLKey); err != nil {
			return deployconfig.ForNetwork(err, network)
		}
		return nil
	}

	if err := cfg.RequireSettings(rpcPortKey, otterscanPortKey); err != nil {
		return deployconfig.ForNetwork(err, network)
	}

	var invalid []string
	urls := make(map[string]string, 2)
	for key, target := range map[string]string{rpcPortKey: rpcURLKey, otterscanPortKey: scannerBaseURLKey} {
		url, err := cfg.LocalURL(key)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		urls[target] = url
	}
	if len(invalid) > 0 {
		slices.Sort(invalid)
		return &deployconfig.ConfigValidationError{Network: network, Invalid: invalid}
	}

	cfg.Doc.SetString(rpcURLKey, urls[rpcURLKey])
	cfg.Doc.SetString(scannerBaseURLKey, urls[scannerBaseURLKey])

	return nil
}

func recordOutputs(deployed *document.Map, network string, outputs map[string]string) {
	if len(outputs) == 0 {
		return
	}

	entry, err := deployed.Map(network)
	if err != nil {
		entry = document.NewMap()
	}
	for _, name := range sortedKeys(outputs) {
		entry.SetString(name, outputs[name])
	}
	deployed.Set(network, document.FromMap(entry))
}
