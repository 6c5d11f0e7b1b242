package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"ProjectSubmission-Chain/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// ErrClosed is returned by every call made after Close.
var ErrClosed = errors.New("以太坊客户端已关闭")

// Config names one node endpoint. Endpoint may be http(s), ws(s) or an IPC path.
type Config struct {
	Name        string
	Endpoint    string
	Description string
}

// Client implements web3.Client on top of ethclient or a simulated backend.
type Client struct {
	name        string
	endpoint    string
	description string

	mu      sync.RWMutex
	rpc     *gethrpc.Client
	eth     *ethclient.Client
	backend web3.Backend
	release func()
}

var _ web3.Client = (*Client)(nil)

// backendReader covers the ethclient methods bind backends leave out.
type backendReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error)
}

// Dial connects to the endpoint in cfg.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("链 %s 未配置节点地址", cfg.Name)
	}
	rpc, err := gethrpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("连接节点 %s 失败: %w", endpoint, err)
	}
	eth := ethclient.NewClient(rpc)
	return &Client{
		name:        cfg.Name,
		endpoint:    endpoint,
		description: cfg.Description,
		rpc:         rpc,
		eth:         eth,
		backend:     eth,
		release:     eth.Close,
	}, nil
}

// NewSimulatedClient wraps a go-ethereum simulated backend. Every accepted
// transaction is mined immediately, the way development nodes behave.
func NewSimulatedClient(name string, backend *simulated.Backend) *Client {
	return &Client{
		name:        name,
		endpoint:    "simulated",
		description: "go-ethereum simulated backend",
		backend:     &autoMining{Client: backend.Client(), commit: func() { backend.Commit() }},
		release:     func() { _ = backend.Close() },
	}
}

type autoMining struct {
	simulated.Client
	commit func()
}

func (a *autoMining) SendTransaction(ctx context.Context, tx *coretypes.Transaction) error {
	if err := a.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	a.commit()
	return nil
}

func (c *Client) current() (web3.Backend, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.backend == nil {
		return nil, ErrClosed
	}
	return c.backend, nil
}

func (c *Client) reader() (backendReader, error) {
	backend, err := c.current()
	if err != nil {
		return nil, err
	}
	r, ok := backend.(backendReader)
	if !ok {
		return nil, fmt.Errorf("后端 %T 不支持链 ID 与余额查询", backend)
	}
	return r, nil
}

// NetworkID returns net_version. Simulated backends have no separate
// network id and report their chain id instead.
func (c *Client) NetworkID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	eth := c.eth
	c.mu.RUnlock()
	if eth != nil {
		return eth.NetworkID(ctx)
	}
	return c.ChainID(ctx)
}

// ChainID returns the EIP-155 chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	r, err := c.reader()
	if err != nil {
		return nil, err
	}
	return r.ChainID(ctx)
}

// Balance returns the balance of account at the latest block.
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	r, err := c.reader()
	if err != nil {
		return nil, err
	}
	return r.BalanceAt(ctx, account, nil)
}

// Status collects identifiers, head block and the suggested gas price.
func (c *Client) Status(ctx context.Context) (web3.Status, error) {
	backend, err := c.current()
	if err != nil {
		return web3.Status{}, err
	}
	status := web3.Status{Chain: c.name, Endpoint: c.endpoint, Description: c.description}
	if status.NetworkID, err = c.NetworkID(ctx); err != nil {
		return web3.Status{}, fmt.Errorf("获取网络 ID 失败: %w", err)
	}
	if status.ChainID, err = c.ChainID(ctx); err != nil {
		return web3.Status{}, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return web3.Status{}, fmt.Errorf("获取最新区块失败: %w", err)
	}
	status.BlockNumber = head.Number.Uint64()
	if status.GasPrice, err = backend.SuggestGasPrice(ctx); err != nil {
		return web3.Status{}, fmt.Errorf("获取建议 gas 价格失败: %w", err)
	}
	return status, nil
}

// RPC exposes the raw JSON-RPC connection; nil for simulated clients.
func (c *Client) RPC() *gethrpc.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rpc
}

// Backend returns the contract backend used for calls and transactions.
func (c *Client) Backend() web3.Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend
}

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	release := c.release
	c.rpc, c.eth, c.backend, c.release = nil, nil, nil, nil
	c.mu.Unlock()
	if release != nil {
		release()
	}
}
