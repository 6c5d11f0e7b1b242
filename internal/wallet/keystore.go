package wallet

import (
	"context"
	"math/big"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// Keystore signs with encrypted key files from a go-ethereum keystore
// directory. All accounts are unlocked with the same passphrase.
type Keystore struct {
	ks *keystore.KeyStore
}

// OpenKeystore opens dir and unlocks every account in it.
func OpenKeystore(dir, passphrase string) (*Keystore, error) {
	if dir == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "keystore 目录不能为空")
	}
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	for _, account := range ks.Accounts() {
		if err := ks.Unlock(account, passphrase); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解锁 keystore 账户失败",
				xerrors.WithMetadata("account", account.Address.Hex()))
		}
	}
	return &Keystore{ks: ks}, nil
}

// NewKeystore wraps an already unlocked keystore.
func NewKeystore(ks *keystore.KeyStore) *Keystore {
	return &Keystore{ks: ks}
}

// Accounts implements Wallet. Order follows the keystore's file order.
func (w *Keystore) Accounts(context.Context) ([]common.Address, error) {
	list := w.ks.Accounts()
	out := make([]common.Address, 0, len(list))
	for _, account := range list {
		out = append(out, account.Address)
	}
	return out, nil
}

// Transactor implements Wallet.
func (w *Keystore) Transactor(ctx context.Context, from common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	account := accounts.Account{Address: from}
	if !w.ks.HasAddress(from) {
		return nil, unknownAccount(from)
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(w.ks, account, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
