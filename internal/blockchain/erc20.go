package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// Token reads an ERC-20 contract.
type Token struct {
	client  *Client
	address common.Address
}

// Token binds the ERC-20 contract at address.
func (c *Client) Token(address string) (*Token, error) {
	addr, err := parseAddress("token", address)
	if err != nil {
		return nil, err
	}
	return &Token{client: c, address: addr}, nil
}

// Address returns the checksummed contract address.
func (t *Token) Address() string {
	return t.address.Hex()
}

// BalanceOf returns the raw balance of owner.
func (t *Token) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := parseAddress("owner", owner)
	if err != nil {
		return nil, err
	}
	return t.client.callBigInt(ctx, t.address, t.client.erc20ABI, "balanceOf", addr)
}

// Symbol returns the token's on-chain ticker.
func (t *Token) Symbol(ctx context.Context) (string, error) {
	out, err := t.client.call(ctx, t.address, t.client.erc20ABI, "symbol")
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("symbol: empty result")
	}
	sym, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("symbol: unexpected result type %T", out[0])
	}
	return sym, nil
}
