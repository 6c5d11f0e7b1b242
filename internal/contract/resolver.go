package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNotDeployed reports that no contract code lives at the resolved address
// or that the artifact has no deployment for the current network.
var ErrNotDeployed = xerrors.New(xerrors.CodeNotDeployed, "ProjectSubmission 合约未部署")

// Resolver returns the deployed contract instance for a network, the way
// truffle's artifacts.require(...).deployed() does.
type Resolver interface {
	Deployed(ctx context.Context, networkID *big.Int, backend bind.ContractBackend) (*ProjectSubmission, error)
}

// Artifact is the subset of a truffle build artifact the client reads.
type Artifact struct {
	ContractName string                     `json:"contractName"`
	ABI          json.RawMessage            `json:"abi"`
	Bytecode     string                     `json:"bytecode"`
	Networks     map[string]ArtifactNetwork `json:"networks"`
}

// ArtifactNetwork records one deployment of the artifact.
type ArtifactNetwork struct {
	Address         string `json:"address"`
	TransactionHash string `json:"transactionHash"`
}

// LoadArtifact reads a truffle build artifact from disk.
func LoadArtifact(path string) (*Artifact, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取合约构建产物失败: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("解析合约构建产物失败: %w", err)
	}
	return &artifact, nil
}

// ParsedABI returns the artifact ABI, falling back to the embedded one when
// the artifact carries none.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	if !a.hasABI() {
		return ParseABI()
	}
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("解析构建产物 ABI 失败: %w", err)
	}
	return parsed, nil
}

// ABIJSON returns the raw ABI text used for deployment.
func (a *Artifact) ABIJSON() string {
	if !a.hasABI() {
		return ProjectSubmissionABI
	}
	return string(a.ABI)
}

// hasABI reports whether the artifact carries its own ABI; an absent field
// and an explicit null are treated the same.
func (a *Artifact) hasABI() bool {
	if a == nil {
		return false
	}
	raw := bytes.TrimSpace(a.ABI)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// Code returns the creation bytecode.
func (a *Artifact) Code() []byte {
	if a == nil {
		return nil
	}
	return common.FromHex(strings.TrimSpace(a.Bytecode))
}

// AddressFor returns the deployment address recorded for networkID.
func (a *Artifact) AddressFor(networkID *big.Int) (common.Address, error) {
	if a == nil || networkID == nil {
		return common.Address{}, ErrNotDeployed
	}
	network, ok := a.Networks[networkID.String()]
	if !ok || !common.IsHexAddress(network.Address) {
		return common.Address{}, xerrors.Wrap(xerrors.CodeNotDeployed,
			fmt.Errorf("network %s", networkID), "构建产物中没有该网络的部署记录",
			xerrors.WithMetadata("network_id", networkID.String()))
	}
	return common.HexToAddress(network.Address), nil
}

// ArtifactResolver resolves the address from the artifact's networks map.
type ArtifactResolver struct {
	Artifact *Artifact
}

// Deployed implements Resolver.
func (r ArtifactResolver) Deployed(ctx context.Context, networkID *big.Int, backend bind.ContractBackend) (*ProjectSubmission, error) {
	address, err := r.Artifact.AddressFor(networkID)
	if err != nil {
		return nil, err
	}
	parsed, err := r.Artifact.ParsedABI()
	if err != nil {
		return nil, err
	}
	return bindDeployed(ctx, address, parsed, backend)
}

// AddressResolver binds a fixed address regardless of network.
type AddressResolver struct {
	Address common.Address
}

// Deployed implements Resolver.
func (r AddressResolver) Deployed(ctx context.Context, _ *big.Int, backend bind.ContractBackend) (*ProjectSubmission, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, err
	}
	return bindDeployed(ctx, r.Address, parsed, backend)
}

func bindDeployed(ctx context.Context, address common.Address, parsed abi.ABI, backend bind.ContractBackend) (*ProjectSubmission, error) {
	if backend == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "缺少合约访问后端")
	}
	code, err := backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, xerrors.Wrap(xerrors.CodeNotDeployed, fmt.Errorf("no code at %s", address.Hex()), "ProjectSubmission 合约未部署")
	}
	return NewProjectSubmissionWithABI(address, parsed, backend)
}
