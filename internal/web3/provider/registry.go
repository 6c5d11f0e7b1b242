package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ProjectSubmission-Chain/internal/config"
	xerrors "ProjectSubmission-Chain/internal/errors"
	"ProjectSubmission-Chain/internal/web3"
	"ProjectSubmission-Chain/internal/web3/ethereum"
)

// FallbackChain names the chain built from web3.rpc_url when chain.yaml
// defines none.
const FallbackChain = "default"

// Chain couples a dialed client with the definition it was built from.
type Chain struct {
	Name       string
	Definition web3.ChainDefinition
	Client     *ethereum.Client
}

// dialFunc is swapped in tests.
type dialFunc func(ctx context.Context, cfg ethereum.Config) (*ethereum.Client, error)

// Registry resolves chain names to clients. A chain is dialed the first
// time it is requested and the client is reused afterwards.
type Registry struct {
	defs         web3.ChainDefinitions
	defaultChain string
	dial         dialFunc

	mu     sync.Mutex
	dialed map[string]*Chain
}

// NewRegistry loads chain definitions without connecting to any node.
func NewRegistry(cfg config.Web3Config) (*Registry, error) {
	return newRegistry(cfg, ethereum.Dial)
}

func newRegistry(cfg config.Web3Config, dial dialFunc) (*Registry, error) {
	defs, err := web3.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}
	if len(defs.Chains) == 0 {
		if strings.TrimSpace(cfg.RPCURL) == "" {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "未配置任何链的节点地址")
		}
		defs.Chains[FallbackChain] = web3.ChainDefinition{Type: "evm", RPCURL: cfg.RPCURL}
	}

	r := &Registry{defs: defs, dial: dial, dialed: map[string]*Chain{}}
	r.defaultChain = strings.TrimSpace(cfg.DefaultChain)
	if r.defaultChain == "" {
		r.defaultChain = defs.Names()[0]
	}
	if _, ok := defs.Chains[r.defaultChain]; !ok {
		return nil, xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("默认链 %s 未在配置中找到", r.defaultChain))
	}
	return r, nil
}

// DefaultName returns the chain selected when no name is given.
func (r *Registry) DefaultName() string { return r.defaultChain }

// Names returns the configured chain names in sorted order.
func (r *Registry) Names() []string { return r.defs.Names() }

// Definition returns the configuration of name without dialing it.
func (r *Registry) Definition(name string) (web3.ChainDefinition, bool) {
	def, ok := r.defs.Chains[name]
	return def, ok
}

// Chain returns the client for name, dialing it on first use; an empty
// name selects the default chain.
func (r *Registry) Chain(ctx context.Context, name string) (*Chain, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.defaultChain
	}
	def, ok := r.defs.Chains[name]
	if !ok {
		return nil, xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("链 %s 未在配置中找到", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if chain, ok := r.dialed[name]; ok {
		return chain, nil
	}
	client, err := r.dial(ctx, ethereum.Config{Name: name, Endpoint: def.Endpoint(), Description: def.Description})
	if err != nil {
		return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
	}
	chain := &Chain{Name: name, Definition: def, Client: client}
	r.dialed[name] = chain
	return chain, nil
}

// Close releases every dialed client.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, chain := range r.dialed {
		chain.Client.Close()
		delete(r.dialed, name)
	}
}
