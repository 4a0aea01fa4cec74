package devnet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// AnvilFunder moves ether out of an anvil account by impersonating it.
type AnvilFunder struct{}

func NewAnvilFunder() *AnvilFunder {
	return &AnvilFunder{}
}

type sendTxArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
}

func (f *AnvilFunder) Fund(ctx context.Context, url string, from, to common.Address, amount *big.Int) (common.Hash, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	defer client.Close()

	if err := client.CallContext(ctx, nil, "anvil_impersonateAccount", from); err != nil {
		return common.Hash{}, fmt.Errorf("failed to impersonate %s: %w", from.Hex(), err)
	}

	var hash common.Hash
	sendErr := client.CallContext(ctx, &hash, "eth_sendTransaction", sendTxArgs{
		From:  from,
		To:    to,
		Value: (*hexutil.Big)(amount),
	})

	if err := client.CallContext(ctx, nil, "anvil_stopImpersonatingAccount", from); err != nil && sendErr == nil {
		return hash, fmt.Errorf("failed to stop impersonating %s: %w", from.Hex(), err)
	}
	if sendErr != nil {
		return common.Hash{}, fmt.Errorf("failed to send funds: %w", sendErr)
	}

	return hash, nil
}
