package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Keys signs in-process with raw ECDSA keys, in the order they were given.
type Keys struct {
	order []common.Address
	keys  map[common.Address]*ecdsa.PrivateKey
}

// NewKeys builds a wallet from private keys.
func NewKeys(keys ...*ecdsa.PrivateKey) *Keys {
	w := &Keys{keys: make(map[common.Address]*ecdsa.PrivateKey, len(keys))}
	for _, key := range keys {
		w.add(key)
	}
	return w
}

// ParseKeys builds a wallet from hex encoded private keys, with or without
// the 0x prefix.
func ParseKeys(hexKeys []string) (*Keys, error) {
	w := &Keys{keys: make(map[common.Address]*ecdsa.PrivateKey, len(hexKeys))}
	for i, raw := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, fmt.Sprintf("解析第 %d 个私钥失败", i+1))
		}
		w.add(key)
	}
	return w, nil
}

func (w *Keys) add(key *ecdsa.PrivateKey) {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	if _, ok := w.keys[addr]; ok {
		return
	}
	w.order = append(w.order, addr)
	w.keys[addr] = key
}

// Accounts implements Wallet.
func (w *Keys) Accounts(context.Context) ([]common.Address, error) {
	return append([]common.Address(nil), w.order...), nil
}

// Transactor implements Wallet.
func (w *Keys) Transactor(ctx context.Context, from common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	key, ok := w.keys[from]
	if !ok {
		return nil, unknownAccount(from)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
