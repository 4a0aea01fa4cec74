package deploy

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	PrivateKeyEnv    = "PRIVATE_KEY"
	WalletAddressEnv = "WALLET_ADDRESS"

	// anvil's second well-known development account
	localPrivateKey    = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	localWalletAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

// LookupEnv resolves a name against the process environment.
type LookupEnv func(name string) (string, bool)

// Credentials are the deployer key and the address that will own the contracts.
type Credentials struct {
	PrivateKey    string
	WalletAddress string
	Deployer      common.Address
	Defaulted     bool
}

// ResolveCredentials reads PRIVATE_KEY and WALLET_ADDRESS. Remote deployments
// require both; local ones fall back to anvil development accounts.
func ResolveCredentials(remote bool, lookup LookupEnv) (Credentials, error) {
	privateKey, hasKey := nonEmpty(lookup, PrivateKeyEnv)
	wallet, hasWallet := nonEmpty(lookup, WalletAddressEnv)

	if remote {
		var missing []string
		if !hasKey {
			missing = append(missing, PrivateKeyEnv)
		}
		if !hasWallet {
			missing = append(missing, WalletAddressEnv)
		}
		if len(missing) > 0 {
			return Credentials{}, &MissingCredentialsError{Missing: missing}
		}
	}

	creds := Credentials{PrivateKey: privateKey, WalletAddress: wallet}
	if !hasKey {
		creds.PrivateKey = localPrivateKey
		creds.Defaulted = true
	}
	if !hasWallet {
		creds.WalletAddress = localWalletAddress
		creds.Defaulted = true
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(creds.PrivateKey, "0x"))
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to parse %s: %w", PrivateKeyEnv, err)
	}
	creds.Deployer = crypto.PubkeyToAddress(key.PublicKey)

	if !common.IsHexAddress(creds.WalletAddress) {
		return Credentials{}, fmt.Errorf("%s '%s' is not a hex address", WalletAddressEnv, creds.WalletAddress)
	}

	return creds, nil
}

func nonEmpty(lookup LookupEnv, name string) (string, bool) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
