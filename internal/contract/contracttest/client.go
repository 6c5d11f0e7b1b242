package contracttest

import (
	"context"
	"math/big"

	"ProjectSubmission-Chain/internal/web3"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultNetworkID is the network id ganache reports by default.
const DefaultNetworkID = 5777

// Client exposes a Backend through web3.Client, reporting DefaultNetworkID
// the way a local ganache would.
type Client struct {
	backend *Backend
}

var _ web3.Client = (*Client)(nil)

// NewClient wraps backend.
func NewClient(backend *Backend) *Client {
	return &Client{backend: backend}
}

func (c *Client) NetworkID(context.Context) (*big.Int, error) {
	return big.NewInt(DefaultNetworkID), nil
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.backend.ChainID(ctx)
}

func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.backend.BalanceAt(ctx, account, nil)
}

func (c *Client) Status(ctx context.Context) (web3.Status, error) {
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return web3.Status{}, err
	}
	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return web3.Status{}, err
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return web3.Status{}, err
	}
	return web3.Status{
		Chain:       "contracttest",
		Endpoint:    "memory",
		NetworkID:   big.NewInt(DefaultNetworkID),
		ChainID:     chainID,
		BlockNumber: header.Number.Uint64(),
		GasPrice:    gasPrice,
		Description: "in-memory ProjectSubmission emulator",
	}, nil
}

func (c *Client) Backend() web3.Backend { return c.backend }

func (c *Client) Close() {}
