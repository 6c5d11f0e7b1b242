package web3

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	xerrors "ProjectSubmission-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// ChainDefinitions is the decoded form of chain.yaml.
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition is one named node. RPCURL is dialed when set, otherwise
// WSURL. Contract pins the ProjectSubmission address on that chain and
// takes precedence over the truffle artifact.
type ChainDefinition struct {
	Type        string `yaml:"type"`
	RPCURL      string `yaml:"rpc_url"`
	WSURL       string `yaml:"ws_url"`
	Contract    string `yaml:"contract"`
	Description string `yaml:"description"`
}

// Endpoint returns the URL a client should dial.
func (d ChainDefinition) Endpoint() string {
	if url := strings.TrimSpace(d.RPCURL); url != "" {
		return url
	}
	return strings.TrimSpace(d.WSURL)
}

// ContractAddress returns the pinned contract address, if any.
func (d ChainDefinition) ContractAddress() (common.Address, bool) {
	if !common.IsHexAddress(strings.TrimSpace(d.Contract)) {
		return common.Address{}, false
	}
	return common.HexToAddress(strings.TrimSpace(d.Contract)), true
}

func (d ChainDefinition) validate(name string) error {
	if kind := strings.ToLower(strings.TrimSpace(d.Type)); kind != "" && kind != "evm" {
		return fmt.Errorf("链 %s 使用了不支持的类型 %s", name, d.Type)
	}
	if d.Endpoint() == "" {
		return fmt.Errorf("链 %s 未配置 rpc_url 或 ws_url", name)
	}
	if strings.TrimSpace(d.Contract) != "" {
		if _, ok := d.ContractAddress(); !ok {
			return fmt.Errorf("链 %s 的 contract 不是合法地址: %q", name, d.Contract)
		}
	}
	return nil
}

// Names returns the chain names in sorted order.
func (d ChainDefinitions) Names() []string {
	names := make([]string, 0, len(d.Chains))
	for name := range d.Chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadChainDefinitions reads chain.yaml. An empty path yields no chains.
// Every definition is validated; all problems are reported together.
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	defs := ChainDefinitions{Chains: map[string]ChainDefinition{}}
	if strings.TrimSpace(path) == "" {
		return defs, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return ChainDefinitions{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "读取链配置失败")
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return ChainDefinitions{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析链配置失败",
			xerrors.WithMetadata("path", path))
	}
	if defs.Chains == nil {
		defs.Chains = map[string]ChainDefinition{}
	}

	var problems []error
	for _, name := range defs.Names() {
		if err := defs.Chains[name].validate(name); err != nil {
			problems = append(problems, err)
		}
	}
	if err := errors.Join(problems...); err != nil {
		return ChainDefinitions{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "链配置无效",
			xerrors.WithMetadata("path", path))
	}
	return defs, nil
}
