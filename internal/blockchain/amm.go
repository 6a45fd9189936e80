package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const ammABI = `[
	{"inputs":[{"name":"account","type":"address"}],"name":"share","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"totalShare","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"token","type":"address"}],"name":"totalAmount","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"PRECISION","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Pool reads an AMM pool contract.
type Pool struct {
	client  *Client
	address common.Address
}

// Pool binds the AMM contract at address.
func (c *Client) Pool(address string) (*Pool, error) {
	addr, err := parseAddress("pool", address)
	if err != nil {
		return nil, err
	}
	return &Pool{client: c, address: addr}, nil
}

// Address returns the checksummed contract address.
func (p *Pool) Address() string {
	return p.address.Hex()
}

// Share returns the pool share units held by owner.
func (p *Pool) Share(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := parseAddress("owner", owner)
	if err != nil {
		return nil, err
	}
	return p.client.callBigInt(ctx, p.address, p.client.ammABI, "share", addr)
}

// TotalShare returns the share units issued by the pool.
func (p *Pool) TotalShare(ctx context.Context) (*big.Int, error) {
	return p.client.callBigInt(ctx, p.address, p.client.ammABI, "totalShare")
}

// TotalAmount returns the pool's reserve of token.
func (p *Pool) TotalAmount(ctx context.Context, token string) (*big.Int, error) {
	addr, err := parseAddress("token", token)
	if err != nil {
		return nil, err
	}
	return p.client.callBigInt(ctx, p.address, p.client.ammABI, "totalAmount", addr)
}

// Precision returns the divisor share units are expressed in.
func (p *Pool) Precision(ctx context.Context) (*big.Int, error) {
	return p.client.callBigInt(ctx, p.address, p.client.ammABI, "PRECISION")
}
