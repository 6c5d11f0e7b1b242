// Package wallet lists the accounts a session may send from and produces
// signing transact options for them.
package wallet

import (
	"context"
	"math/big"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownAccount reports a sender the wallet cannot sign for.
var ErrUnknownAccount = xerrors.New(xerrors.CodeUnknownAccount, "钱包中没有该账户")

// Wallet is an ordered set of accounts with signing capability.
type Wallet interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	Transactor(ctx context.Context, from common.Address, chainID *big.Int) (*bind.TransactOpts, error)
}

func unknownAccount(from common.Address) error {
	return xerrors.New(xerrors.CodeUnknownAccount, "钱包中没有该账户 "+from.Hex(),
		xerrors.WithMetadata("account", from.Hex()))
}
