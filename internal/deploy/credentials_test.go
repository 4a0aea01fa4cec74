package deploy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) LookupEnv {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestResolveCredentialsLocalDefaults(t *testing.T) {
	creds, err := ResolveCredentials(false, envOf(nil))
	require.NoError(t, err)

	assert.True(t, creds.Defaulted)
	assert.Equal(t, localPrivateKey, creds.PrivateKey)
	assert.Equal(t, localWalletAddress, creds.WalletAddress)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", creds.Deployer.Hex())
}

func TestResolveCredentialsFromEnvironment(t *testing.T) {
	creds, err := ResolveCredentials(true, envOf(map[string]string{
		PrivateKeyEnv:    "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		WalletAddressEnv: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
	}))
	require.NoError(t, err)

	assert.False(t, creds.Defaulted)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", creds.Deployer.Hex())
}

func TestResolveCredentialsRemoteMissing(t *testing.T) {
	_, err := ResolveCredentials(true, envOf(map[string]string{WalletAddressEnv: ""}))

	var missing *MissingCredentialsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{PrivateKeyEnv, WalletAddressEnv}, missing.Missing)
	assert.Equal(t, "missing required environment variables: PRIVATE_KEY, WALLET_ADDRESS", err.Error())
}

func TestResolveCredentialsRejectsMalformedValues(t *testing.T) {
	_, err := ResolveCredentials(false, envOf(map[string]string{PrivateKeyEnv: "0xnothex"}))
	assert.ErrorContains(t, err, "failed to parse PRIVATE_KEY")

	_, err = ResolveCredentials(false, envOf(map[string]string{WalletAddressEnv: "owner"}))
	assert.ErrorContains(t, err, "is not a hex address")
}
