package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ProjectSubmission-Chain/internal/config"
	xerrors "ProjectSubmission-Chain/internal/errors"
	"ProjectSubmission-Chain/internal/web3/ethereum"

	"github.com/ethereum/go-ethereum/ethclient/simulated"
)

func fakeDial(dialed *[]string) dialFunc {
	return func(_ context.Context, cfg ethereum.Config) (*ethereum.Client, error) {
		*dialed = append(*dialed, cfg.Name+"="+cfg.Endpoint)
		return ethereum.NewSimulatedClient(cfg.Name, simulated.NewBackend(nil)), nil
	}
}

func writeChains(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.yaml")
	content := `chains:
  ganache:
    rpc_url: http://127.0.0.1:7545
    contract: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
    description: local ganache
  sepolia:
    type: evm
    ws_url: wss://rpc.sepolia.org
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write chain config: %v", err)
	}
	return path
}

func TestRegistryDialsLazily(t *testing.T) {
	var dialed []string
	registry, err := newRegistry(config.Web3Config{ChainConfig: writeChains(t)}, fakeDial(&dialed))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(registry.Close)

	if got := registry.Names(); len(got) != 2 || got[0] != "ganache" || got[1] != "sepolia" {
		t.Fatalf("unexpected chains %v", got)
	}
	if len(dialed) != 0 {
		t.Fatalf("nothing should be dialed before use, got %v", dialed)
	}
	if registry.DefaultName() != "ganache" {
		t.Fatalf("default chain should be first by name, got %s", registry.DefaultName())
	}

	chain, err := registry.Chain(context.Background(), "")
	if err != nil {
		t.Fatalf("default chain: %v", err)
	}
	again, err := registry.Chain(context.Background(), "ganache")
	if err != nil || again != chain {
		t.Fatalf("second lookup should reuse the client, err %v", err)
	}
	if len(dialed) != 1 || dialed[0] != "ganache=http://127.0.0.1:7545" {
		t.Fatalf("unexpected dials %v", dialed)
	}
	if _, ok := chain.Definition.ContractAddress(); !ok {
		t.Fatal("expected contract address from definition")
	}

	if _, err := registry.Chain(context.Background(), "sepolia"); err != nil {
		t.Fatalf("sepolia: %v", err)
	}
	if dialed[1] != "sepolia=wss://rpc.sepolia.org" {
		t.Fatalf("ws endpoint should be dialed without rpc url, got %v", dialed)
	}

	if _, err := registry.Chain(context.Background(), "mainnet"); !xerrors.HasCode(err, xerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown chain, got %v", err)
	}
}

func TestRegistryFallsBackToRPCURL(t *testing.T) {
	var dialed []string
	registry, err := newRegistry(config.Web3Config{RPCURL: "http://127.0.0.1:8545"}, fakeDial(&dialed))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(registry.Close)

	chain, err := registry.Chain(context.Background(), "")
	if err != nil {
		t.Fatalf("default chain: %v", err)
	}
	if chain.Name != FallbackChain || chain.Definition.RPCURL != "http://127.0.0.1:8545" {
		t.Fatalf("unexpected fallback chain %+v", chain)
	}
}

func TestRegistryRejectsUnknownDefault(t *testing.T) {
	var dialed []string
	_, err := newRegistry(config.Web3Config{ChainConfig: writeChains(t), DefaultChain: "mainnet"}, fakeDial(&dialed))
	if !xerrors.HasCode(err, xerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistryRequiresEndpoint(t *testing.T) {
	var dialed []string
	_, err := newRegistry(config.Web3Config{}, fakeDial(&dialed))
	if !xerrors.HasCode(err, xerrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument without endpoints, got %v", err)
	}
}

func TestRegistryReportsDialFailure(t *testing.T) {
	boom := errors.New("connection refused")
	registry, err := newRegistry(config.Web3Config{RPCURL: "http://127.0.0.1:1"}, func(context.Context, ethereum.Config) (*ethereum.Client, error) {
		return nil, boom
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if _, err := registry.Chain(context.Background(), ""); !errors.Is(err, boom) {
		t.Fatalf("expected dial error, got %v", err)
	}
}
