package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ProjectSubmission-Chain/internal/config"
	"ProjectSubmission-Chain/internal/contract"
	xerrors "ProjectSubmission-Chain/internal/errors"
	"ProjectSubmission-Chain/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

func TestParseHash(t *testing.T) {
	want := crypto.Keccak256Hash([]byte("report"))
	for _, input := range []string{want.Hex(), strings.TrimPrefix(want.Hex(), "0x"), " " + want.Hex() + " "} {
		got, err := parseHash(input)
		if err != nil || got != want {
			t.Fatalf("%q: got %s err %v", input, got.Hex(), err)
		}
	}
	for _, input := range []string{"0x1234", "0x" + strings.Repeat("zz", 32), ""} {
		if _, err := parseHash(input); !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
			t.Fatalf("%q: expected invalid argument, got %v", input, err)
		}
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := parseAddress("university", "0x123"); !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	addr, err := parseAddress("university", "0x00000000000000000000000000000000000000aa")
	if err != nil || addr != common.HexToAddress("0xaa") {
		t.Fatalf("unexpected address %s err %v", addr.Hex(), err)
	}
}

func TestBuildResolverPrecedence(t *testing.T) {
	configured := "0x00000000000000000000000000000000000000a1"
	pinned := "0x00000000000000000000000000000000000000b2"

	resolver, err := buildResolver(config.ContractConfig{Address: configured, Artifact: "missing.json"}, web3.ChainDefinition{Contract: pinned})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	if got := resolver.(contract.AddressResolver).Address; got != common.HexToAddress(configured) {
		t.Fatalf("configured address should win, got %s", got.Hex())
	}

	resolver, err = buildResolver(config.ContractConfig{}, web3.ChainDefinition{Contract: pinned})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	if got := resolver.(contract.AddressResolver).Address; got != common.HexToAddress(pinned) {
		t.Fatalf("chain definition address expected, got %s", got.Hex())
	}

	path := filepath.Join(t.TempDir(), "ProjectSubmission.json")
	raw, _ := json.Marshal(map[string]any{"contractName": "ProjectSubmission", "networks": map[string]any{}})
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	resolver, err = buildResolver(config.ContractConfig{Artifact: path}, web3.ChainDefinition{})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	if _, ok := resolver.(contract.ArtifactResolver); !ok {
		t.Fatalf("expected artifact resolver, got %T", resolver)
	}

	if _, err := buildResolver(config.ContractConfig{}, web3.ChainDefinition{}); !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument without any source, got %v", err)
	}
}

type noRPC struct{}

func (noRPC) RPC() *gethrpc.Client { return nil }

func TestBuildWallet(t *testing.T) {
	key, _ := crypto.GenerateKey()
	hexKey := common.Bytes2Hex(crypto.FromECDSA(key))

	w, err := buildWallet(config.WalletConfig{Driver: "keys", PrivateKeys: []string{hexKey}}, noRPC{})
	if err != nil {
		t.Fatalf("keys wallet: %v", err)
	}
	accounts, _ := w.Accounts(context.Background())
	if len(accounts) != 1 || accounts[0] != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("unexpected accounts %v", accounts)
	}
	if _, err := w.Transactor(context.Background(), accounts[0], big.NewInt(1337)); err != nil {
		t.Fatalf("transactor: %v", err)
	}

	if _, err := buildWallet(config.WalletConfig{Driver: "keys"}, noRPC{}); err == nil {
		t.Fatal("expected error without keys")
	}
	if _, err := buildWallet(config.WalletConfig{Driver: "node"}, noRPC{}); err == nil {
		t.Fatal("expected error without rpc connection")
	}
	if _, err := buildWallet(config.WalletConfig{Driver: "ledger"}, noRPC{}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestBuildJournalMemory(t *testing.T) {
	recorder, err := buildJournal(context.Background(), config.JournalConfig{})
	if err != nil {
		t.Fatalf("build journal: %v", err)
	}
	defer recorder.Close()
	if recorder.Store() == nil {
		t.Fatal("expected memory store")
	}

	if _, err := buildJournal(context.Background(), config.JournalConfig{Store: config.JournalStoreConfig{Driver: "sqlite"}}); err == nil {
		t.Fatal("expected error for unsupported store")
	}
	_, err = buildJournal(context.Background(), config.JournalConfig{Publisher: config.JournalPublisherConfig{Driver: "kafka"}})
	if err == nil {
		t.Fatal("expected error for unsupported publisher")
	}
}

func TestRenderJSON(t *testing.T) {
	flags.output = "json"
	defer func() { flags.output = "text" }()

	var buf bytes.Buffer
	if err := render(&buf, []field{{"owner", "0xabc"}, {"available", true}}); err != nil {
		t.Fatalf("render: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["owner"] != "0xabc" || decoded["available"] != true {
		t.Fatalf("unexpected output %v", decoded)
	}
}

func TestTransactPassesPlainErrors(t *testing.T) {
	var buf bytes.Buffer
	cmd := rootCmd
	cmd.SetOut(&buf)
	defer cmd.SetOut(nil)

	err := transact(cmd, nil, errors.New("plain failure"))
	if err == nil || err.Error() != "plain failure" {
		t.Fatalf("plain errors pass through, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be printed without a transaction, got %q", buf.String())
	}
}
