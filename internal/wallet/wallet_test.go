package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"testing"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestKeysPreserveOrderAndSign(t *testing.T) {
	first, second := mustKey(t), mustKey(t)
	w := NewKeys(first, second, first)

	accounts, err := w.Accounts(context.Background())
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("duplicate keys should collapse, got %d accounts", len(accounts))
	}
	if accounts[0] != crypto.PubkeyToAddress(first.PublicKey) {
		t.Fatalf("first account should come first")
	}

	chainID := big.NewInt(1337)
	opts, err := w.Transactor(context.Background(), accounts[1], chainID)
	if err != nil {
		t.Fatalf("transactor: %v", err)
	}
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, Gas: 21000, GasPrice: big.NewInt(1)})
	signed, err := opts.Signer(accounts[1], tx)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil || sender != accounts[1] {
		t.Fatalf("unexpected sender %s (%v)", sender.Hex(), err)
	}
}

func TestKeysRejectUnknownAccount(t *testing.T) {
	w := NewKeys(mustKey(t))
	_, err := w.Transactor(context.Background(), common.HexToAddress("0x01"), big.NewInt(1))
	if !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}

func TestParseKeys(t *testing.T) {
	key := mustKey(t)
	encoded := hexutil.Encode(crypto.FromECDSA(key))
	w, err := ParseKeys([]string{encoded})
	if err != nil {
		t.Fatalf("parse keys: %v", err)
	}
	accounts, _ := w.Accounts(context.Background())
	if len(accounts) != 1 || accounts[0] != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("unexpected accounts %v", accounts)
	}

	if _, err := ParseKeys([]string{"not-a-key"}); !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func newKeystoreDir(t *testing.T, passphrase string, n int) (string, []common.Address) {
	t.Helper()
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	addrs := make([]common.Address, 0, n)
	for i := 0; i < n; i++ {
		account, err := ks.NewAccount(passphrase)
		if err != nil {
			t.Fatalf("new account: %v", err)
		}
		addrs = append(addrs, account.Address)
	}
	return dir, addrs
}

func TestKeystoreUnlocksAndSigns(t *testing.T) {
	dir, created := newKeystoreDir(t, "secret", 2)
	w, err := OpenKeystore(dir, "secret")
	if err != nil {
		t.Fatalf("open keystore: %v", err)
	}

	accounts, err := w.Accounts(context.Background())
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %v", accounts)
	}
	for _, addr := range created {
		if !w.ks.HasAddress(addr) {
			t.Fatalf("account %s missing from keystore", addr.Hex())
		}
	}

	chainID := big.NewInt(1337)
	from := created[1]
	opts, err := w.Transactor(context.Background(), from, chainID)
	if err != nil {
		t.Fatalf("transactor: %v", err)
	}
	if opts.From != from || opts.Context == nil {
		t.Fatalf("unexpected transact opts %+v", opts)
	}
	to := common.HexToAddress("0x02")
	tx := types.NewTx(&types.LegacyTx{Nonce: 3, To: &to, Gas: 21000, GasPrice: big.NewInt(1), Value: big.NewInt(5)})
	signed, err := opts.Signer(from, tx)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil || sender != from {
		t.Fatalf("unexpected sender %s (%v)", sender.Hex(), err)
	}

	_, err = w.Transactor(context.Background(), common.HexToAddress("0x01"), chainID)
	if !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}

func TestOpenKeystoreWrongPassphrase(t *testing.T) {
	dir, _ := newKeystoreDir(t, "secret", 1)
	_, err := OpenKeystore(dir, "not-the-secret")
	if !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
	if _, err := OpenKeystore("", "secret"); !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
		t.Fatalf("empty dir should be rejected, got %v", err)
	}
}

// fakeNode answers eth_accounts and signs eth_signTransaction requests with
// its own key, the way a development node does.
type fakeNode struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
	bare    bool
	methods []string
}

func (n *fakeNode) address() common.Address { return crypto.PubkeyToAddress(n.key.PublicKey) }

func (n *fakeNode) CallContext(_ context.Context, result interface{}, method string, args ...interface{}) error {
	n.methods = append(n.methods, method)
	var payload interface{}
	switch method {
	case "eth_accounts":
		payload = []common.Address{n.address()}
	case "eth_signTransaction":
		req := args[0].(signArgs)
		tx := types.NewTx(&types.LegacyTx{
			Nonce:    uint64(req.Nonce),
			To:       req.To,
			Gas:      uint64(req.Gas),
			GasPrice: (*big.Int)(req.GasPrice),
			Value:    (*big.Int)(req.Value),
			Data:     req.Data,
		})
		signed, err := types.SignTx(tx, types.LatestSignerForChainID(n.chainID), n.key)
		if err != nil {
			return err
		}
		raw, err := signed.MarshalBinary()
		if err != nil {
			return err
		}
		if n.bare {
			payload = hexutil.Bytes(raw)
		} else {
			payload = map[string]interface{}{"raw": hexutil.Bytes(raw)}
		}
	default:
		return fmt.Errorf("unexpected method %s", method)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, result)
}

func TestNodeWalletSignsThroughRPC(t *testing.T) {
	for _, bare := range []bool{false, true} {
		node := &fakeNode{key: mustKey(t), chainID: big.NewInt(5777), bare: bare}
		w := NewNode(node)

		accounts, err := w.Accounts(context.Background())
		if err != nil {
			t.Fatalf("accounts: %v", err)
		}
		if len(accounts) != 1 || accounts[0] != node.address() {
			t.Fatalf("unexpected accounts %v", accounts)
		}

		opts, err := w.Transactor(context.Background(), node.address(), node.chainID)
		if err != nil {
			t.Fatalf("transactor: %v", err)
		}
		to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
		tx := types.NewTx(&types.LegacyTx{Nonce: 3, To: &to, Gas: 50000, GasPrice: big.NewInt(2), Value: big.NewInt(7)})
		signed, err := opts.Signer(node.address(), tx)
		if err != nil {
			t.Fatalf("sign (bare=%v): %v", bare, err)
		}
		if signed.Nonce() != 3 || signed.Value().Int64() != 7 {
			t.Fatalf("signed transaction does not match request: %+v", signed)
		}
	}
}

func TestNodeWalletRejectsForeignSender(t *testing.T) {
	node := &fakeNode{key: mustKey(t), chainID: big.NewInt(1)}
	_, err := NewNode(node).Transactor(context.Background(), common.HexToAddress("0x02"), node.chainID)
	if !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
}
