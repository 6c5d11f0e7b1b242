package web3

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Status is what the node reports about itself at the latest block.
type Status struct {
	Chain       string
	Endpoint    string
	NetworkID   *big.Int
	ChainID     *big.Int
	BlockNumber uint64
	GasPrice    *big.Int
	Description string
}

// Backend is everything a bound contract needs: calls, transactions, log
// filtering and receipt lookups.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client is the chain access a session needs, independent of whether it
// talks to a live node or an in-process backend.
type Client interface {
	// NetworkID is the net_version value artifacts are keyed by.
	NetworkID(ctx context.Context) (*big.Int, error)
	// ChainID is the EIP-155 id used for signing.
	ChainID(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	Status(ctx context.Context) (Status, error)
	Backend() Backend
	Close()
}
