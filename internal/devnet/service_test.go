package devnet

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dahlia-labs/deployctl/configs"
	"github.com/dahlia-labs/deployctl/internal/deployconfig"
	"github.com/dahlia-labs/deployctl/internal/envid"
	"github.com/dahlia-labs/deployctl/internal/infra/filesystem/yaml"
	"github.com/dahlia-labs/deployctl/internal/resolve"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "0x1111111111111111111111111111111111111111"

type fakeDocker struct {
	pingErr error
	ensured []string
}

func (f *fakeDocker) Ping(context.Context) error { return f.pingErr }

func (f *fakeDocker) EnsureImage(_ context.Context, name string) error {
	f.ensured = append(f.ensured, name)
	return nil
}

type composeCall struct {
	op      string
	file    string
	project string
	rpcURL  string
}

type fakeCompose struct {
	calls []composeCall
}

func (f *fakeCompose) Up(_ context.Context, file string, env map[string]string, _ ...string) error {
	f.calls = append(f.calls, composeCall{"up", file, env["COMPOSE_PROJECT_NAME"], env["FORK_URL"]})
	return nil
}

func (f *fakeCompose) Down(_ context.Context, file string, env map[string]string, _ bool) error {
	f.calls = append(f.calls, composeCall{"down", file, env["COMPOSE_PROJECT_NAME"], env["FORK_URL"]})
	return nil
}

type fakeWaiter struct {
	urls []string
}

func (f *fakeWaiter) Wait(_ context.Context, url string) (uint64, error) {
	f.urls = append(f.urls, url)
	return 1, nil
}

type funding struct {
	url      string
	from, to common.Address
	amount   string
}

type fakeFunder struct {
	fundings []funding
}

func (f *fakeFunder) Fund(_ context.Context, url string, from, to common.Address, amount *big.Int) (common.Hash, error) {
	f.fundings = append(f.fundings, funding{url, from, to, amount.String()})
	return common.HexToHash("0x01"), nil
}

func newLoader(t *testing.T, content string) *deployconfig.Loader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	noEnv := func(string) (string, bool) { return "", false }
	return deployconfig.NewLoader(path, yaml.NewReader(), envid.NewResolver(nil), resolve.New(resolve.WithLookupEnv(noEnv)), time.Unix(0, 0))
}

const devnetConfig = `
environments:
  static: [mainnet, cartio]
DAHLIA_OWNER: "` + owner + `"
mainnet:
  RPC_PORT: 8546
  FORK_URL: https://eth.example.org
cartio:
  RPC_PORT: 8547
  FORK_URL: https://cartio.example.org
`

func devnetSettings() configs.Devnet {
	return configs.Devnet{
		ComposeFile:   "/srv/docker/docker-compose.yml",
		ProjectPrefix: "dahlia",
		Images:        []string{"otterscan/otterscan:latest"},
		FundKey:       "DAHLIA_OWNER",
		FundAmountWei: "10000000000000000000",
		FunderAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	}
}

func TestBootstrap(t *testing.T) {
	dockerClient := &fakeDocker{}
	compose := &fakeCompose{}
	waiter := &fakeWaiter{}
	funder := &fakeFunder{}

	svc := NewService(devnetSettings(), []string{"mainnet", "cartio"}, dockerClient, compose, newLoader(t, devnetConfig), waiter, funder)
	require.NoError(t, svc.Bootstrap(context.Background()))

	assert.Equal(t, []string{"otterscan/otterscan:latest"}, dockerClient.ensured)
	assert.Equal(t, []composeCall{
		{"down", "/srv/docker/docker-compose.yml", "dahlia-mainnet", "https://eth.example.org"},
		{"up", "/srv/docker/docker-compose.yml", "dahlia-mainnet", "https://eth.example.org"},
		{"down", "/srv/docker/docker-compose.yml", "dahlia-cartio", "https://cartio.example.org"},
		{"up", "/srv/docker/docker-compose.yml", "dahlia-cartio", "https://cartio.example.org"},
	}, compose.calls)

	assert.Equal(t, []string{"http://localhost:8546", "http://localhost:8547"}, waiter.urls)
	require.Len(t, funder.fundings, 2)
	assert.Equal(t, common.HexToAddress(owner), funder.fundings[0].to)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), funder.fundings[0].from)
	assert.Equal(t, "10000000000000000000", funder.fundings[1].amount)
	assert.Equal(t, "http://localhost:8547", funder.fundings[1].url)
}

func TestRecreateExplorersNeedsDocker(t *testing.T) {
	compose := &fakeCompose{}
	svc := NewService(devnetSettings(), []string{"mainnet"}, &fakeDocker{pingErr: errors.New("no daemon")}, compose, newLoader(t, devnetConfig), &fakeWaiter{}, &fakeFunder{})

	require.Error(t, svc.RecreateExplorers(context.Background()))
	assert.Empty(t, compose.calls)
}

func TestFundAccountsValidation(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   string
	}{
		{"missing owner", "RPC_PORT: 8546\n", "DAHLIA_OWNER is required"},
		{"bad owner", "RPC_PORT: 8546\nDAHLIA_OWNER: nobody\n", "is not a hex address"},
		{"bad port", "RPC_PORT: nope\nDAHLIA_OWNER: \"" + owner + "\"\n", "invalid port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			funder := &fakeFunder{}
			svc := NewService(devnetSettings(), []string{"mainnet"}, &fakeDocker{}, &fakeCompose{}, newLoader(t, tt.config), &fakeWaiter{}, funder)

			err := svc.FundAccounts(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var validationErr *deployconfig.ConfigValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, "mainnet", validationErr.Network)
			assert.Empty(t, funder.fundings)
		})
	}
}

func TestFundAccountsRejectsBadAmount(t *testing.T) {
	settings := devnetSettings()
	settings.FundAmountWei = "ten"
	svc := NewService(settings, []string{"mainnet"}, &fakeDocker{}, &fakeCompose{}, newLoader(t, devnetConfig), &fakeWaiter{}, &fakeFunder{})

	assert.Error(t, svc.FundAccounts(context.Background()))
}

func TestAnvilFunder(t *testing.T) {
	txHash := "0x" + strings.Repeat("ab", 32)
	var (
		mu      sync.Mutex
		methods []string
		sent    map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		mu.Lock()
		methods = append(methods, req.Method)
		var result any
		switch req.Method {
		case "eth_sendTransaction":
			assert.NoError(t, json.Unmarshal(req.Params[0], &sent))
			result = txHash
		default:
			result = nil
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	defer srv.Close()

	from := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	to := common.HexToAddress(owner)
	amount, _ := new(big.Int).SetString("10000000000000000000", 10)

	hash, err := NewAnvilFunder().Fund(context.Background(), srv.URL, from, to, amount)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(txHash), hash)

	assert.Equal(t, []string{"anvil_impersonateAccount", "eth_sendTransaction", "anvil_stopImpersonatingAccount"}, methods)
	assert.Equal(t, "0x8ac7230489e80000", sent["value"])
	assert.Equal(t, to.Hex(), common.HexToAddress(sent["to"].(string)).Hex())
}
